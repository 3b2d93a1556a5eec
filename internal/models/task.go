package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Task struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Instructions      string          `json:"instructions,omitempty"`
	ProofInstructions string          `json:"proof_instructions,omitempty"`
	RewardAmount      decimal.Decimal `json:"reward_amount"`
	ProofType         string          `json:"proof_type"`
	IsActive          bool            `json:"is_active"`
	// MaxCompletions nil means unlimited. CompletedCount only increments
	// under the task lock, after the cap check passed.
	MaxCompletions *int      `json:"max_completions,omitempty"`
	CompletedCount int       `json:"completed_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

type TaskSubmission struct {
	ID          string           `json:"id"`
	TaskID      string           `json:"task_id"`
	UserID      string           `json:"user_id"`
	ProofData   string           `json:"proof_data"`
	ProofURL    string           `json:"proof_url,omitempty"`
	ProofText   string           `json:"proof_text,omitempty"`
	Status      SubmissionStatus `json:"status"`
	AdminNotes  string           `json:"admin_notes,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
}
