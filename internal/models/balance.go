package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance is the single running balance per user. It is only ever
// mutated by the ledger service, under that user's balance lock.
type UserBalance struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	PayoutAddress  string          `json:"payout_address,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type TransactionKind string

const (
	KindOfferwall      TransactionKind = "offerwall"
	KindTaskCompletion TransactionKind = "task_completion"
	KindReferral       TransactionKind = "referral"
	KindWithdrawal     TransactionKind = "withdrawal"
	KindRefund         TransactionKind = "refund"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is an immutable, signed ledger entry. Positive amounts are
// credits, negative amounts are debits. Every balance mutation has exactly
// one paired transaction.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Kind        TransactionKind   `json:"kind"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	Network     string            `json:"network,omitempty"`
	OfferID     string            `json:"offer_id,omitempty"`
	SourceIP    string            `json:"source_ip,omitempty"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CompletionRecord marks "(user, network, offer) already paid". Its presence
// is the sole idempotency check for offerwall postbacks. Payout holds the
// gross network payout for audit, not the user's split.
type CompletionRecord struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Network       string          `json:"network"`
	OfferID       string          `json:"offer_id"`
	TransactionID string          `json:"transaction_id"`
	Payout        decimal.Decimal `json:"payout"`
	SourceIP      string          `json:"source_ip,omitempty"`
	CompletedAt   time.Time       `json:"completed_at"`
}
