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

// TaskService owns the submission review state machine:
// pending -> approved or pending -> rejected, both terminal. Review uses
// try-locks so a duplicate admin click fails fast instead of queuing.
type TaskService struct {
	store  store.Store
	locks  *locks.KeyedMutex
	ledger *LedgerService
	logger zerolog.Logger
}

func NewTaskService(st store.Store, km *locks.KeyedMutex, ledger *LedgerService, logger zerolog.Logger) *TaskService {
	return &TaskService{
		store:  st,
		locks:  km,
		ledger: ledger,
		logger: logger,
	}
}

type CreateTaskInput struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Instructions      string          `json:"instructions"`
	ProofInstructions string          `json:"proof_instructions"`
	RewardAmount      decimal.Decimal `json:"reward_amount"`
	ProofType         string          `json:"proof_type"`
	IsActive          *bool           `json:"is_active"`
	MaxCompletions    *int            `json:"max_completions"`
}

func (s *TaskService) CreateTask(in CreateTaskInput) (*models.Task, error) {
	proofType := in.ProofType
	if proofType == "" {
		proofType = "screenshot"
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	task := &models.Task{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Description:       in.Description,
		Instructions:      in.Instructions,
		ProofInstructions: in.ProofInstructions,
		RewardAmount:      in.RewardAmount,
		ProofType:         proofType,
		IsActive:          active,
		MaxCompletions:    in.MaxCompletions,
		CreatedAt:         time.Now(),
	}
	if err := s.store.CreateTask(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Submit records a user's proof for a task. One submission per user per
// task; further attempts are rejected up front.
func (s *TaskService) Submit(taskID, userID, proofData, proofURL, proofText string) (*models.TaskSubmission, error) {
	task, err := s.store.GetTask(taskID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if !task.IsActive {
		return nil, fmt.Errorf("task is not active")
	}

	submitted, err := s.store.HasUserSubmitted(userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior submissions: %w", err)
	}
	if submitted {
		return nil, ErrAlreadyProcessed
	}

	sub := &models.TaskSubmission{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		UserID:      userID,
		ProofData:   proofData,
		ProofURL:    proofURL,
		ProofText:   proofText,
		Status:      models.SubmissionStatusPending,
		SubmittedAt: time.Now(),
	}
	if err := s.store.CreateSubmission(sub); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return sub, nil
}

// Approve transitions a pending submission to approved, increments the
// task's completion counter against its cap, and credits the reward.
//
// Lock order is task first, then submission: the cap check has to see a
// consistent completedCount across every submission of the task, so the
// coarser lock goes on first. Both are try-locks with distinct busy reasons.
// The submission transition and the counter increment are rolled back to
// their snapshots if the credit fails, so a failed approval can be retried
// cleanly.
func (s *TaskService) Approve(submissionID, taskID, userID string, notes string) (*models.TaskSubmission, error) {
	unlockTask, ok := s.locks.TryLock(locks.TaskKey(taskID))
	if !ok {
		return nil, fmt.Errorf("task %w", locks.ErrBusy)
	}
	defer unlockTask()

	unlockSub, ok := s.locks.TryLock(locks.SubmissionKey(submissionID))
	if !ok {
		return nil, fmt.Errorf("submission %w", locks.ErrBusy)
	}
	defer unlockSub()

	// Re-read everything under the locks; whatever the caller saw before is
	// stale by definition.
	sub, err := s.store.GetSubmission(submissionID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub.Status != models.SubmissionStatusPending {
		return sub, ErrAlreadyProcessed
	}

	task, err := s.store.GetTask(taskID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task.MaxCompletions != nil && task.CompletedCount >= *task.MaxCompletions {
		return nil, ErrCapReached
	}

	subSnapshot := *sub
	taskSnapshot := *task

	now := time.Now()
	sub.Status = models.SubmissionStatusApproved
	sub.AdminNotes = notes
	sub.ReviewedAt = &now
	if err := s.store.PutSubmission(sub); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	task.CompletedCount++
	if err := s.store.PutTask(task); err != nil {
		if rbErr := s.store.PutSubmission(&subSnapshot); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("submission_id", submissionID).Msg("Submission rollback failed")
		}
		return nil, fmt.Errorf("failed to update task counter: %w", err)
	}

	if _, err := s.ledger.Credit(userID, task.RewardAmount, models.KindTaskCompletion, "Task: "+task.Title, nil); err != nil {
		// Undo the transition and the counter before releasing the locks so
		// the admin can retry the approval.
		if rbErr := s.store.PutSubmission(&subSnapshot); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("submission_id", submissionID).Msg("Submission rollback failed after credit failure")
		}
		if rbErr := s.store.PutTask(&taskSnapshot); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("task_id", taskID).Msg("Task counter rollback failed after credit failure")
		}
		return nil, fmt.Errorf("failed to credit reward: %w", err)
	}

	s.logger.Info().
		Str("submission_id", submissionID).
		Str("task_id", taskID).
		Str("user_id", userID).
		Int("completed_count", task.CompletedCount).
		Msg("Task submission approved")

	return sub, nil
}

// Reject transitions a pending submission to rejected. No ledger effect.
func (s *TaskService) Reject(submissionID, notes string) (*models.TaskSubmission, error) {
	unlockSub, ok := s.locks.TryLock(locks.SubmissionKey(submissionID))
	if !ok {
		return nil, fmt.Errorf("submission %w", locks.ErrBusy)
	}
	defer unlockSub()

	sub, err := s.store.GetSubmission(submissionID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub.Status != models.SubmissionStatusPending {
		return sub, ErrAlreadyProcessed
	}

	now := time.Now()
	sub.Status = models.SubmissionStatusRejected
	sub.AdminNotes = notes
	sub.ReviewedAt = &now
	if err := s.store.PutSubmission(sub); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	s.logger.Info().
		Str("submission_id", submissionID).
		Msg("Task submission rejected")

	return sub, nil
}

func (s *TaskService) ActiveTasks() ([]*models.Task, error) {
	return s.store.ActiveTasks()
}

func (s *TaskService) AllTasks() ([]*models.Task, error) {
	return s.store.AllTasks()
}

func (s *TaskService) GetTask(id string) (*models.Task, error) {
	t, err := s.store.GetTask(id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *TaskService) UpdateTask(t *models.Task) error {
	err := s.store.PutTask(t)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *TaskService) GetSubmission(id string) (*models.TaskSubmission, error) {
	sub, err := s.store.GetSubmission(id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (s *TaskService) PendingSubmissions() ([]*models.TaskSubmission, error) {
	return s.store.PendingSubmissions()
}

func (s *TaskService) SubmissionsByUser(userID string) ([]*models.TaskSubmission, error) {
	return s.store.SubmissionsByUser(userID)
}
