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
)

type ReferralHandler struct {
	referrals *services.ReferralService
	logger    zerolog.Logger
}

func NewReferralHandler(referrals *services.ReferralService, logger zerolog.Logger) *ReferralHandler {
	return &ReferralHandler{
		referrals: referrals,
		logger:    logger,
	}
}

func (h *ReferralHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	stats, err := h.referrals.StatsFor(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch referral stats")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ReferralHandler) MyReferrals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	referrals, err := h.referrals.ByReferrer(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch referrals")
		return
	}
	respondWithJSON(w, http.StatusOK, referrals)
}

// Admin endpoints.

func (h *ReferralHandler) All(w http.ResponseWriter, r *http.Request) {
	referrals, err := h.referrals.All()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch referrals")
		return
	}
	respondWithJSON(w, http.StatusOK, referrals)
}

func (h *ReferralHandler) Review(w http.ResponseWriter, r *http.Request) {
	referralID := mux.Vars(r)["id"]

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	referral, err := h.referrals.Review(referralID, models.ReferralStatus(req.Status))
	switch {
	case errors.Is(err, services.ErrAlreadyProcessed):
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"referral": referral,
			"message":  "Referral was already credited",
		})
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", "Referral not found")
	case err != nil:
		h.logger.Error().Err(err).Str("referral_id", referralID).Msg("Referral review failed")
		respondWithError(w, http.StatusBadRequest, "review_failed", err.Error())
	default:
		respondWithJSON(w, http.StatusOK, referral)
	}
}
