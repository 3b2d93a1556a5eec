package services

import (
	"errors"
	"fmt"
	"time"

	"earnlink/internal/locks"
	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService owns UserBalance and Transaction rows. Credit and Debit are
// the only code paths that change a balance; both run under the user's
// balance lock, so concurrent operations on one user serialize instead of
// losing updates.
type LedgerService struct {
	store  store.Store
	locks  *locks.KeyedMutex
	logger zerolog.Logger
}

func NewLedgerService(st store.Store, km *locks.KeyedMutex, logger zerolog.Logger) *LedgerService {
	return &LedgerService{
		store:  st,
		locks:  km,
		logger: logger,
	}
}

// CreditMeta carries the optional offerwall context stored on the transaction.
type CreditMeta struct {
	Network  string
	OfferID  string
	SourceIP string
}

// Credit adds amount to the user's balance and totalEarned, appending the
// paired positive transaction. The balance row is created lazily on first
// credit. If appending the transaction fails, the balance is restored to its
// pre-mutation snapshot before returning: a ledger operation is
// all-or-nothing.
func (s *LedgerService) Credit(userID string, amount decimal.Decimal, kind models.TransactionKind, description string, meta *CreditMeta) (*models.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}

	unlock := s.locks.Lock(locks.UserKey(userID))
	defer unlock()

	balance, err := s.store.GetBalance(userID)
	if isNotFound(err) {
		balance = &models.UserBalance{
			ID:        uuid.NewString(),
			UserID:    userID,
			UpdatedAt: time.Now(),
		}
		if err := s.store.CreateBalance(balance); err != nil {
			return nil, fmt.Errorf("failed to initialize balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	snapshot := *balance

	balance.Balance = balance.Balance.Add(amount)
	balance.TotalEarned = balance.TotalEarned.Add(amount)
	balance.UpdatedAt = time.Now()
	if err := s.store.PutBalance(balance); err != nil {
		return nil, fmt.Errorf("failed to persist balance: %w", err)
	}

	tx := s.newTransaction(userID, amount, kind, description, meta)
	if err := s.store.AppendTransaction(tx); err != nil {
		// The balance moved but its paired transaction did not land; put the
		// snapshot back so the two never diverge.
		if rbErr := s.store.PutBalance(&snapshot); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("user_id", userID).Msg("Balance rollback failed after transaction append failure")
		}
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("kind", string(kind)).
		Str("amount", amount.String()).
		Str("balance", balance.Balance.String()).
		Msg("Balance credited")

	return tx, nil
}

// Debit subtracts amount from the user's balance and adds it to
// totalWithdrawn, appending the paired negative transaction. A debit larger
// than the balance returns ErrInsufficientFunds with no side effects; that
// check under the lock is the only thing keeping balances non-negative, so
// no caller may bypass this method.
func (s *LedgerService) Debit(userID string, amount decimal.Decimal, kind models.TransactionKind, description string) (*models.Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, errors.New("amount must be greater than zero")
	}

	unlock := s.locks.Lock(locks.UserKey(userID))
	defer unlock()

	balance, err := s.store.GetBalance(userID)
	if isNotFound(err) {
		s.logger.Warn().Str("user_id", userID).Msg("Debit attempted with no balance row")
		return nil, ErrNoBalance
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	if balance.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	snapshot := *balance

	balance.Balance = balance.Balance.Sub(amount)
	balance.TotalWithdrawn = balance.TotalWithdrawn.Add(amount)
	balance.UpdatedAt = time.Now()
	if err := s.store.PutBalance(balance); err != nil {
		return nil, fmt.Errorf("failed to persist balance: %w", err)
	}

	tx := s.newTransaction(userID, amount.Neg(), kind, description, nil)
	if err := s.store.AppendTransaction(tx); err != nil {
		if rbErr := s.store.PutBalance(&snapshot); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("user_id", userID).Msg("Balance rollback failed after transaction append failure")
		}
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("kind", string(kind)).
		Str("amount", amount.Neg().String()).
		Str("balance", balance.Balance.String()).
		Msg("Balance debited")

	return tx, nil
}

func (s *LedgerService) newTransaction(userID string, amount decimal.Decimal, kind models.TransactionKind, description string, meta *CreditMeta) *models.Transaction {
	tx := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Status:      models.TransactionStatusCompleted,
		CreatedAt:   time.Now(),
	}
	if meta != nil {
		tx.Network = meta.Network
		tx.OfferID = meta.OfferID
		tx.SourceIP = meta.SourceIP
	}
	return tx
}

// GetBalance returns the user's balance, creating the row lazily so that a
// fresh user always sees a zero balance rather than an error.
func (s *LedgerService) GetBalance(userID string) (*models.UserBalance, error) {
	unlock := s.locks.Lock(locks.UserKey(userID))
	defer unlock()

	balance, err := s.store.GetBalance(userID)
	if isNotFound(err) {
		balance = &models.UserBalance{
			ID:        uuid.NewString(),
			UserID:    userID,
			UpdatedAt: time.Now(),
		}
		if err := s.store.CreateBalance(balance); err != nil {
			return nil, fmt.Errorf("failed to initialize balance: %w", err)
		}
		return balance, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return balance, nil
}

// SetPayoutAddress updates the payout destination under the balance lock so
// it cannot race a concurrent credit or debit.
func (s *LedgerService) SetPayoutAddress(userID, address string) (*models.UserBalance, error) {
	unlock := s.locks.Lock(locks.UserKey(userID))
	defer unlock()

	balance, err := s.store.GetBalance(userID)
	if isNotFound(err) {
		return nil, ErrNoBalance
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	balance.PayoutAddress = address
	balance.UpdatedAt = time.Now()
	if err := s.store.PutBalance(balance); err != nil {
		return nil, fmt.Errorf("failed to persist balance: %w", err)
	}
	return balance, nil
}

func (s *LedgerService) Transactions(userID string) ([]*models.Transaction, error) {
	return s.store.TransactionsByUser(userID)
}
