package store

import (
	"errors"

	"earnlink/internal/models"
)

// ErrNotFound is returned for any lookup whose row does not exist.
var ErrNotFound = errors.New("record not found")

// Earning setting keys. Admin-editable; defaults are seeded at startup.
const (
	SettingMinWithdrawal  = "minWithdrawal"
	SettingSupportedCoins = "supportedCoins"
	SettingRevenueShare   = "revenueShare"
	SettingReferralReward = "referralReward"
	SettingPostbackSecret = "postbackSecret"
)

// Store is the persistence boundary for the earning system. Every method is
// individually atomic with read-your-writes consistency inside one process.
// Multi-write atomicity (balance + transaction, submission + counter) is the
// services' responsibility, enforced with the keyed locks and
// snapshot-rollback — the store stays oblivious to it, so the same service
// code runs against the in-memory and the MySQL implementation.
type Store interface {
	// Users
	GetUser(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByReferralCode(code string) (*models.User, error)
	CreateUser(u *models.User) error
	UpdateUser(u *models.User) error

	// Balances
	GetBalance(userID string) (*models.UserBalance, error)
	CreateBalance(b *models.UserBalance) error
	PutBalance(b *models.UserBalance) error

	// Transactions (append-only)
	AppendTransaction(tx *models.Transaction) error
	GetTransaction(id string) (*models.Transaction, error)
	TransactionsByUser(userID string) ([]*models.Transaction, error)
	AllTransactions() ([]*models.Transaction, error)

	// Offerwall completions
	GetCompletion(userID, network, offerID string) (*models.CompletionRecord, error)
	PutCompletion(c *models.CompletionRecord) error
	DeleteCompletion(userID, network, offerID string) error

	// Tasks
	GetTask(id string) (*models.Task, error)
	CreateTask(t *models.Task) error
	PutTask(t *models.Task) error
	ActiveTasks() ([]*models.Task, error)
	AllTasks() ([]*models.Task, error)

	// Task submissions
	GetSubmission(id string) (*models.TaskSubmission, error)
	CreateSubmission(s *models.TaskSubmission) error
	PutSubmission(s *models.TaskSubmission) error
	SubmissionsByUser(userID string) ([]*models.TaskSubmission, error)
	PendingSubmissions() ([]*models.TaskSubmission, error)
	HasUserSubmitted(userID, taskID string) (bool, error)

	// Withdrawal requests
	GetWithdrawal(id string) (*models.WithdrawalRequest, error)
	CreateWithdrawal(w *models.WithdrawalRequest) error
	PutWithdrawal(w *models.WithdrawalRequest) error
	WithdrawalsByUser(userID string) ([]*models.WithdrawalRequest, error)
	PendingWithdrawals() ([]*models.WithdrawalRequest, error)

	// Referrals
	GetReferral(id string) (*models.Referral, error)
	CreateReferral(r *models.Referral) error
	PutReferral(r *models.Referral) error
	ReferralsByReferrer(referrerID string) ([]*models.Referral, error)
	ReferralByReferred(referredID string) (*models.Referral, error)
	AllReferrals() ([]*models.Referral, error)

	// Earning settings
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	AllSettings() (map[string]string, error)
}
