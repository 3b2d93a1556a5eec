package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type UserService struct {
	store     store.Store
	ledger    *LedgerService
	referrals *ReferralService
	logger    zerolog.Logger

	adminEmail string
}

func NewUserService(st store.Store, ledger *LedgerService, referrals *ReferralService, logger zerolog.Logger, adminEmail string) *UserService {
	return &UserService{
		store:      st,
		ledger:     ledger,
		referrals:  referrals,
		logger:     logger,
		adminEmail: adminEmail,
	}
}

// Register creates the user, their zero balance row, and their referral code.
// A referral code supplied at signup links the new user to the referrer; a
// bad code is ignored so it never blocks registration.
func (s *UserService) Register(req *models.RegisterRequest, ip string) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	if _, err := s.store.GetUserByEmail(req.Email); err == nil {
		return nil, errors.New("user with this email already exists")
	} else if !isNotFound(err) {
		s.logger.Error().Err(err).Msg("Error checking existing user")
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := s.generateReferralCode()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		IsAdmin:      s.adminEmail != "" && strings.EqualFold(req.Email, s.adminEmail),
		ReferralCode: code,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(user); err != nil {
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.ledger.GetBalance(user.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to initialize balance at registration")
	}

	if req.ReferralCode != "" {
		if _, err := s.referrals.Apply(user.ID, req.ReferralCode, ip); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Referral code not applied")
		}
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered successfully")
	return user, nil
}

func (s *UserService) Authenticate(req *models.LoginRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	user, err := s.store.GetUserByEmail(req.Email)
	if isNotFound(err) {
		return nil, errors.New("invalid email or password")
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error querying user")
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
		return nil, errors.New("invalid email or password")
	}

	if user.IsBanned {
		return nil, errors.New("account is banned")
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User authenticated successfully")
	return user, nil
}

func (s *UserService) GetUser(id string) (*models.User, error) {
	user, err := s.store.GetUser(id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *UserService) SetBanned(userID string, banned bool) (*models.User, error) {
	user, err := s.store.GetUser(userID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.IsBanned = banned
	if err := s.store.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Bool("banned", banned).Msg("User ban flag updated")
	return user, nil
}

// generateReferralCode draws an 8 character code and retries on the rare
// collision with an existing user.
func (s *UserService) generateReferralCode() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		b := make([]byte, 8)
		for i := range b {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeAlphabet))))
			if err != nil {
				return "", fmt.Errorf("failed to generate referral code: %w", err)
			}
			b[i] = referralCodeAlphabet[n.Int64()]
		}
		code := string(b)

		_, err := s.store.GetUserByReferralCode(code)
		if isNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
	}
	return "", errors.New("could not generate a unique referral code")
}
