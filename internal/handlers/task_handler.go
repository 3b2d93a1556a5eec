package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"earnlink/internal/locks"
	"earnlink/internal/middleware"
	"earnlink/internal/models"
	"earnlink/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type TaskHandler struct {
	tasks  *services.TaskService
	logger zerolog.Logger
}

func NewTaskHandler(tasks *services.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: logger,
	}
}

func (h *TaskHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ActiveTasks()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tasks")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	taskID := mux.Vars(r)["id"]

	var req struct {
		ProofData string `json:"proof_data"`
		ProofURL  string `json:"proof_url"`
		ProofText string `json:"proof_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	sub, err := h.tasks.Submit(taskID, userID, req.ProofData, req.ProofURL, req.ProofText)
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "not_found", "Task not found")
		return
	}
	if errors.Is(err, services.ErrAlreadyProcessed) {
		respondWithError(w, http.StatusConflict, "already_submitted", "You have already submitted this task")
		return
	}
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "submit_failed", err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, sub)
}

func (h *TaskHandler) MySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	subs, err := h.tasks.SubmissionsByUser(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch submissions")
		return
	}
	respondWithJSON(w, http.StatusOK, subs)
}

// Admin endpoints.

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if in.Title == "" || in.RewardAmount.Sign() <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "title and a positive reward_amount are required")
		return
	}

	task, err := h.tasks.CreateTask(in)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create task")
		respondWithError(w, http.StatusInternalServerError, "create_failed", "Failed to create task")
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) AllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.AllTasks()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) PendingSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.tasks.PendingSubmissions()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch submissions")
		return
	}
	respondWithJSON(w, http.StatusOK, subs)
}

// Review applies an admin approve or reject decision to a submission. Busy
// locks and repeated decisions come back as conflicts the admin UI can show
// verbatim; a cap hit explains itself.
func (h *TaskHandler) Review(w http.ResponseWriter, r *http.Request) {
	submissionID := mux.Vars(r)["id"]

	var req struct {
		Status     string `json:"status"`
		AdminNotes string `json:"admin_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	var (
		sub *models.TaskSubmission
		err error
	)
	switch req.Status {
	case string(models.SubmissionStatusApproved):
		existing, lookupErr := h.tasks.GetSubmission(submissionID)
		if lookupErr != nil {
			respondWithError(w, http.StatusNotFound, "not_found", "Submission not found")
			return
		}
		sub, err = h.tasks.Approve(submissionID, existing.TaskID, existing.UserID, req.AdminNotes)
	case string(models.SubmissionStatusRejected):
		sub, err = h.tasks.Reject(submissionID, req.AdminNotes)
	default:
		respondWithError(w, http.StatusBadRequest, "invalid_status", "status must be approved or rejected")
		return
	}

	switch {
	case errors.Is(err, locks.ErrBusy):
		respondWithError(w, http.StatusConflict, "busy", "This submission is being processed by another request")
	case errors.Is(err, services.ErrAlreadyProcessed):
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"submission": sub,
			"message":    "Submission was already processed",
		})
	case errors.Is(err, services.ErrCapReached):
		respondWithError(w, http.StatusConflict, "cap_reached", "Task has reached its maximum completions")
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", "Submission not found")
	case err != nil:
		h.logger.Error().Err(err).Str("submission_id", submissionID).Msg("Review failed")
		respondWithError(w, http.StatusInternalServerError, "review_failed", "Failed to review submission")
	default:
		respondWithJSON(w, http.StatusOK, sub)
	}
}
