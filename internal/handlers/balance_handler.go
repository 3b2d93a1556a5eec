package handlers

import (
	"encoding/json"
	"net/http"

	"earnlink/internal/middleware"
	"earnlink/internal/services"

	"github.com/rs/zerolog"
)

type BalanceHandler struct {
	ledger *services.LedgerService
	logger zerolog.Logger
}

func NewBalanceHandler(ledger *services.LedgerService, logger zerolog.Logger) *BalanceHandler {
	return &BalanceHandler{
		ledger: ledger,
		logger: logger,
	}
}

func (h *BalanceHandler) GetCurrentBalance(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	userID := currentUserID
	if role, _ := middleware.GetUserRole(r); role == middleware.RoleAdmin {
		if qid := r.URL.Query().Get("user_id"); qid != "" {
			userID = qid
		}
	}

	balance, err := h.ledger.GetBalance(userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch balance")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch balance")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

func (h *BalanceHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	userID := currentUserID
	if role, _ := middleware.GetUserRole(r); role == middleware.RoleAdmin {
		if qid := r.URL.Query().Get("user_id"); qid != "" {
			userID = qid
		}
	}

	transactions, err := h.ledger.Transactions(userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch transactions")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, transactions)
}

func (h *BalanceHandler) SetPayoutAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req struct {
		PayoutAddress string `json:"payout_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.PayoutAddress == "" {
		respondWithError(w, http.StatusBadRequest, "missing_parameter", "payout_address is required")
		return
	}

	balance, err := h.ledger.SetPayoutAddress(userID, req.PayoutAddress)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to set payout address")
		respondWithError(w, http.StatusInternalServerError, "update_failed", "Failed to set payout address")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}
