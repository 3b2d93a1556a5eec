package services

import (
	"errors"
	"fmt"
	"time"

	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReferralService links a new user to a referrer and pays the referral bonus
// once an admin validates the referral. Bonuses go through the ledger like
// every other balance movement.
type ReferralService struct {
	store  store.Store
	ledger *LedgerService
	logger zerolog.Logger

	defaultReferralReward string
}

func NewReferralService(st store.Store, ledger *LedgerService, logger zerolog.Logger, defaultReferralReward string) *ReferralService {
	return &ReferralService{
		store:                 st,
		ledger:                ledger,
		logger:                logger,
		defaultReferralReward: defaultReferralReward,
	}
}

// Apply attaches a referral code to a freshly registered user. Self-referrals
// and second referrals for the same user are rejected; an unknown code is
// ignored silently so a typo does not break registration.
func (s *ReferralService) Apply(userID, code, ip string) (*models.Referral, error) {
	referrer, err := s.store.GetUserByReferralCode(code)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	if referrer.ID == userID {
		return nil, errors.New("cannot refer yourself")
	}

	if _, err := s.store.ReferralByReferred(userID); err == nil {
		return nil, ErrAlreadyProcessed
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check existing referral: %w", err)
	}

	referral := &models.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrer.ID,
		ReferredID: userID,
		Code:       code,
		Status:     models.ReferralStatusPending,
		IP:         ip,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateReferral(referral); err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}

	user, err := s.store.GetUser(userID)
	if err == nil {
		user.ReferredBy = referrer.ID
		if err := s.store.UpdateUser(user); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to stamp referrer on user")
		}
	}

	s.logger.Info().
		Str("referrer_id", referrer.ID).
		Str("referred_id", userID).
		Msg("Referral recorded")

	return referral, nil
}

// Review is the admin decision on a pending referral. Marking it credited
// pays the referrer the configured bonus; crediting twice is a no-op error.
func (s *ReferralService) Review(referralID string, newStatus models.ReferralStatus) (*models.Referral, error) {
	switch newStatus {
	case models.ReferralStatusValid, models.ReferralStatusCredited, models.ReferralStatusInvalid:
	default:
		return nil, fmt.Errorf("invalid referral status: %s", newStatus)
	}

	referral, err := s.store.GetReferral(referralID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load referral: %w", err)
	}

	if referral.Status == models.ReferralStatusCredited {
		return referral, ErrAlreadyProcessed
	}

	if newStatus == models.ReferralStatusCredited {
		reward := decimalSetting(s.store, store.SettingReferralReward, s.defaultReferralReward)
		if reward.Sign() > 0 {
			if _, err := s.ledger.Credit(referral.ReferrerID, reward, models.KindReferral, "Referral bonus for user ID: "+referral.ReferredID, nil); err != nil {
				return nil, fmt.Errorf("failed to credit referral bonus: %w", err)
			}
		}
	}

	now := time.Now()
	referral.Status = newStatus
	referral.ValidatedAt = &now
	if err := s.store.PutReferral(referral); err != nil {
		return nil, fmt.Errorf("failed to update referral: %w", err)
	}

	s.logger.Info().
		Str("referral_id", referralID).
		Str("status", string(newStatus)).
		Msg("Referral reviewed")

	return referral, nil
}

// ReferralStats summarizes a referrer's referrals for their dashboard.
type ReferralStats struct {
	Total       int             `json:"total"`
	Credited    int             `json:"credited"`
	Pending     int             `json:"pending"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

func (s *ReferralService) StatsFor(referrerID string) (*ReferralStats, error) {
	referrals, err := s.store.ReferralsByReferrer(referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}

	reward := decimalSetting(s.store, store.SettingReferralReward, s.defaultReferralReward)
	stats := &ReferralStats{Total: len(referrals)}
	for _, r := range referrals {
		switch r.Status {
		case models.ReferralStatusCredited:
			stats.Credited++
			stats.TotalEarned = stats.TotalEarned.Add(reward)
		case models.ReferralStatusPending, models.ReferralStatusValid:
			stats.Pending++
		}
	}
	return stats, nil
}

func (s *ReferralService) ByReferrer(referrerID string) ([]*models.Referral, error) {
	return s.store.ReferralsByReferrer(referrerID)
}

func (s *ReferralService) All() ([]*models.Referral, error) {
	return s.store.AllReferrals()
}
