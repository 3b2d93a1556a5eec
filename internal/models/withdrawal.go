package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
)

type WithdrawalRequest struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Amount        decimal.Decimal  `json:"amount"`
	CoinType      string           `json:"coin_type"`
	PayoutAddress string           `json:"payout_address"`
	Status        WithdrawalStatus `json:"status"`
	AdminNotes    string           `json:"admin_notes,omitempty"`
	TxHash        string           `json:"tx_hash,omitempty"`
	RequestedAt   time.Time        `json:"requested_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

type WithdrawalRequestInput struct {
	Amount   string `json:"amount"`
	CoinType string `json:"coin_type"`
}
