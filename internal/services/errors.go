package services

import "errors"

var (
	// ErrInsufficientFunds rejects a debit larger than the current balance.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrNoBalance means the balance row is missing for a user expected to
	// have one. Treated as a data-integrity signal, not lazily repaired.
	ErrNoBalance = errors.New("no balance found")

	// ErrAlreadyProcessed is an idempotent no-op: the entity already reached
	// a terminal state. Callers should treat it as success without effect.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrCapReached means the task is at its maximum completions.
	ErrCapReached = errors.New("task has reached maximum completions")

	ErrNotFound = errors.New("not found")

	ErrBelowMinimum    = errors.New("amount is below the minimum withdrawal")
	ErrUnsupportedCoin = errors.New("unsupported coin type")
	ErrNoPayoutAddress = errors.New("payout address not set")
	ErrPendingExists   = errors.New("a pending withdrawal request already exists")
)
