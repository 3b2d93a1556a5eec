package services

import (
	"fmt"
	"time"

	"earnlink/internal/locks"
	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OfferwallService guards offerwall postbacks against double credit. The
// check for an existing completion and the write of a new one happen inside
// one try-locked critical section per (user, network, offer) key, so exactly
// one delivery of a completion ever credits.
type OfferwallService struct {
	store  store.Store
	locks  *locks.KeyedMutex
	ledger *LedgerService
	logger zerolog.Logger

	defaultRevenueShare string
}

func NewOfferwallService(st store.Store, km *locks.KeyedMutex, ledger *LedgerService, logger zerolog.Logger, defaultRevenueShare string) *OfferwallService {
	return &OfferwallService{
		store:               st,
		locks:               km,
		ledger:              ledger,
		logger:              logger,
		defaultRevenueShare: defaultRevenueShare,
	}
}

// CompletionResult reports what a postback delivery did.
type CompletionResult struct {
	Credited    bool
	Transaction *models.Transaction
	// UserReward is the post-split amount credited; zero when Credited is false.
	UserReward decimal.Decimal
}

// RecordCompletion is the idempotent postback entry point. The first call
// for a (user, network, offer) key records the completion with the gross
// network payout and credits the user their revenue-share split. Every later
// call — and any call racing the first — returns Credited=false with no
// error, so handlers can still answer success and stop the network retrying.
func (s *OfferwallService) RecordCompletion(userID, network, offerID string, grossPayout decimal.Decimal, networkTxID, sourceIP string) (*CompletionResult, error) {
	unlock, ok := s.locks.TryLock(locks.CompletionKey(userID, network, offerID))
	if !ok {
		// A concurrent delivery of the same completion holds the key; it will
		// credit, we must not.
		s.logger.Info().
			Str("user_id", userID).
			Str("network", network).
			Str("offer_id", offerID).
			Msg("Concurrent postback for same completion, treating as duplicate")
		return &CompletionResult{Credited: false}, nil
	}
	defer unlock()

	_, err := s.store.GetCompletion(userID, network, offerID)
	if err == nil {
		s.logger.Info().
			Str("user_id", userID).
			Str("network", network).
			Str("offer_id", offerID).
			Msg("Duplicate offerwall completion ignored")
		return &CompletionResult{Credited: false}, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check completion: %w", err)
	}

	share := decimalSetting(s.store, store.SettingRevenueShare, s.defaultRevenueShare)
	userReward := grossPayout.Mul(share).Round(6)

	record := &models.CompletionRecord{
		ID:            uuid.NewString(),
		UserID:        userID,
		Network:       network,
		OfferID:       offerID,
		TransactionID: networkTxID,
		Payout:        grossPayout,
		SourceIP:      sourceIP,
		CompletedAt:   time.Now(),
	}
	if err := s.store.PutCompletion(record); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	tx, err := s.ledger.Credit(
		userID,
		userReward,
		models.KindOfferwall,
		fmt.Sprintf("%s offer: %s", network, offerID),
		&CreditMeta{Network: network, OfferID: offerID, SourceIP: sourceIP},
	)
	if err != nil {
		// Drop the reservation so a network retry can credit cleanly.
		if delErr := s.store.DeleteCompletion(userID, network, offerID); delErr != nil {
			s.logger.Error().Err(delErr).
				Str("user_id", userID).
				Str("network", network).
				Str("offer_id", offerID).
				Msg("Failed to roll back completion record after credit failure")
		}
		return nil, fmt.Errorf("failed to credit offerwall reward: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("network", network).
		Str("offer_id", offerID).
		Str("gross_payout", grossPayout.String()).
		Str("user_reward", userReward.String()).
		Msg("Offerwall completion credited")

	return &CompletionResult{Credited: true, Transaction: tx, UserReward: userReward}, nil
}

// Completed reports whether the (user, network, offer) key was already paid.
func (s *OfferwallService) Completed(userID, network, offerID string) (bool, error) {
	_, err := s.store.GetCompletion(userID, network, offerID)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}
