package services

import (
	"fmt"
	"strings"
	"time"

	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WithdrawalService validates and creates withdrawal requests and handles
// their admin processing. All balance movement goes through the ledger.
type WithdrawalService struct {
	store  store.Store
	ledger *LedgerService
	logger zerolog.Logger

	defaultMinWithdrawal  string
	defaultSupportedCoins string
}

func NewWithdrawalService(st store.Store, ledger *LedgerService, logger zerolog.Logger, defaultMinWithdrawal, defaultSupportedCoins string) *WithdrawalService {
	return &WithdrawalService{
		store:                 st,
		ledger:                ledger,
		logger:                logger,
		defaultMinWithdrawal:  defaultMinWithdrawal,
		defaultSupportedCoins: defaultSupportedCoins,
	}
}

// Request validates and debits a withdrawal, creating the pending request.
//
// The "no other pending request" guard is a plain read before the debit, not
// held under any lock: two perfectly simultaneous requests can both pass it
// and both debit. Contention on withdrawal requests is a single human
// clicking a form, so the window is accepted rather than closed; the debit
// itself still can never overdraw.
func (s *WithdrawalService) Request(userID string, amount decimal.Decimal, coinType string) (*models.WithdrawalRequest, error) {
	balance, err := s.ledger.GetBalance(userID)
	if err != nil {
		return nil, err
	}
	if balance.PayoutAddress == "" {
		return nil, ErrNoPayoutAddress
	}

	minWithdrawal := decimalSetting(s.store, store.SettingMinWithdrawal, s.defaultMinWithdrawal)
	if amount.LessThan(minWithdrawal) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, minWithdrawal.String())
	}

	coins := strings.Split(settingOr(s.store, store.SettingSupportedCoins, s.defaultSupportedCoins), ",")
	supported := false
	for _, c := range coins {
		if strings.EqualFold(strings.TrimSpace(c), coinType) {
			supported = true
			break
		}
	}
	if !supported {
		return nil, ErrUnsupportedCoin
	}

	pending, err := s.store.PendingWithdrawals()
	if err != nil {
		return nil, fmt.Errorf("failed to check pending withdrawals: %w", err)
	}
	for _, w := range pending {
		if w.UserID == userID {
			return nil, ErrPendingExists
		}
	}

	tx, err := s.ledger.Debit(userID, amount, models.KindWithdrawal, "Withdrawal request: "+coinType)
	if err != nil {
		return nil, err
	}

	request := &models.WithdrawalRequest{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		CoinType:      coinType,
		PayoutAddress: balance.PayoutAddress,
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   time.Now(),
	}
	if err := s.store.CreateWithdrawal(request); err != nil {
		// The debit landed but the request row did not; give the money back.
		if _, rbErr := s.ledger.Credit(userID, amount, models.KindRefund, "Withdrawal request failed - refund", nil); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("user_id", userID).Msg("Refund failed after withdrawal creation failure")
		}
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	s.logger.Info().
		Str("request_id", request.ID).
		Str("user_id", userID).
		Str("amount", amount.String()).
		Str("coin_type", coinType).
		Str("debit_tx", tx.ID).
		Msg("Withdrawal requested")

	return request, nil
}

// Process applies an admin decision. A request already paid is terminal and
// returns ErrAlreadyProcessed. Rejecting a pending request credits a
// compensating refund of the same amount before the status flips; approving
// or paying has no ledger effect since the debit happened at request time.
func (s *WithdrawalService) Process(requestID string, newStatus models.WithdrawalStatus, txHash, notes string) (*models.WithdrawalRequest, error) {
	switch newStatus {
	case models.WithdrawalStatusApproved, models.WithdrawalStatusRejected, models.WithdrawalStatusPaid:
	default:
		return nil, fmt.Errorf("invalid withdrawal status: %s", newStatus)
	}

	request, err := s.store.GetWithdrawal(requestID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load withdrawal request: %w", err)
	}

	if request.Status == models.WithdrawalStatusPaid {
		return request, ErrAlreadyProcessed
	}

	if newStatus == models.WithdrawalStatusRejected && request.Status == models.WithdrawalStatusPending {
		if _, err := s.ledger.Credit(request.UserID, request.Amount, models.KindRefund, "Withdrawal rejected - refund", nil); err != nil {
			return nil, fmt.Errorf("failed to refund rejected withdrawal: %w", err)
		}
	}

	now := time.Now()
	request.Status = newStatus
	request.TxHash = txHash
	request.AdminNotes = notes
	request.ProcessedAt = &now
	if err := s.store.PutWithdrawal(request); err != nil {
		return nil, fmt.Errorf("failed to update withdrawal request: %w", err)
	}

	s.logger.Info().
		Str("request_id", requestID).
		Str("status", string(newStatus)).
		Msg("Withdrawal processed")

	return request, nil
}

func (s *WithdrawalService) RequestsByUser(userID string) ([]*models.WithdrawalRequest, error) {
	return s.store.WithdrawalsByUser(userID)
}

func (s *WithdrawalService) PendingRequests() ([]*models.WithdrawalRequest, error) {
	return s.store.PendingWithdrawals()
}
