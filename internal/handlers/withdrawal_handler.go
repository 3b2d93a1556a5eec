package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"earnlink/internal/middleware"
	"earnlink/internal/models"
	"earnlink/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
	logger      zerolog.Logger
}

func NewWithdrawalHandler(withdrawals *services.WithdrawalService, logger zerolog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawals: withdrawals,
		logger:      logger,
	}
}

func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req models.WithdrawalRequestInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive decimal string")
		return
	}

	request, err := h.withdrawals.Request(userID, amount, req.CoinType)
	switch {
	case errors.Is(err, services.ErrNoPayoutAddress):
		respondWithError(w, http.StatusBadRequest, "no_payout_address", "Set a payout address before requesting a withdrawal")
	case errors.Is(err, services.ErrBelowMinimum):
		respondWithError(w, http.StatusBadRequest, "below_minimum", err.Error())
	case errors.Is(err, services.ErrUnsupportedCoin):
		respondWithError(w, http.StatusBadRequest, "unsupported_coin", "This coin type is not supported")
	case errors.Is(err, services.ErrPendingExists):
		respondWithError(w, http.StatusConflict, "pending_exists", "You already have a pending withdrawal request")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondWithError(w, http.StatusBadRequest, "insufficient_funds", "Insufficient balance")
	case err != nil:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Withdrawal request failed")
		respondWithError(w, http.StatusInternalServerError, "request_failed", "Failed to create withdrawal request")
	default:
		respondWithJSON(w, http.StatusCreated, request)
	}
}

func (h *WithdrawalHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	requests, err := h.withdrawals.RequestsByUser(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch withdrawal requests")
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

// Admin endpoints.

func (h *WithdrawalHandler) Pending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.withdrawals.PendingRequests()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch pending withdrawals")
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

func (h *WithdrawalHandler) Process(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	var req struct {
		Status     string `json:"status"`
		TxHash     string `json:"tx_hash"`
		AdminNotes string `json:"admin_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	request, err := h.withdrawals.Process(requestID, models.WithdrawalStatus(req.Status), req.TxHash, req.AdminNotes)
	switch {
	case errors.Is(err, services.ErrAlreadyProcessed):
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"request": request,
			"message": "Withdrawal was already paid",
		})
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", "Withdrawal request not found")
	case err != nil:
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("Withdrawal processing failed")
		respondWithError(w, http.StatusBadRequest, "process_failed", err.Error())
	default:
		respondWithJSON(w, http.StatusOK, request)
	}
}
