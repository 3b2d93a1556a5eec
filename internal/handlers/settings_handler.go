package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"earnlink/internal/store"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettingsHandler exposes the admin-editable earning settings. Values are
// stored as strings; decimal-valued keys are validated on write so a typo
// cannot poison every later payout calculation.
type SettingsHandler struct {
	store  store.Store
	logger zerolog.Logger
}

func NewSettingsHandler(st store.Store, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  st,
		logger: logger,
	}
}

var decimalSettings = map[string]bool{
	store.SettingMinWithdrawal:  true,
	store.SettingRevenueShare:   true,
	store.SettingReferralReward: true,
}

var knownSettings = map[string]bool{
	store.SettingMinWithdrawal:  true,
	store.SettingSupportedCoins: true,
	store.SettingRevenueShare:   true,
	store.SettingReferralReward: true,
	store.SettingPostbackSecret: true,
}

// Per-network postback secrets use the "postbackSecret:<network>" form.
func isKnownSetting(key string) bool {
	return knownSettings[key] || strings.HasPrefix(key, store.SettingPostbackSecret+":")
}

func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.AllSettings()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch settings")
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	for key, value := range updates {
		if !isKnownSetting(key) {
			respondWithError(w, http.StatusBadRequest, "unknown_setting", "Unknown setting: "+key)
			return
		}
		if decimalSettings[key] {
			if _, err := decimal.NewFromString(value); err != nil {
				respondWithError(w, http.StatusBadRequest, "invalid_value", key+" must be a decimal string")
				return
			}
		}
	}

	for key, value := range updates {
		if err := h.store.SetSetting(key, value); err != nil {
			h.logger.Error().Err(err).Str("key", key).Msg("Failed to update setting")
			respondWithError(w, http.StatusInternalServerError, "update_failed", "Failed to update setting: "+key)
			return
		}
		h.logger.Info().Str("key", key).Msg("Earning setting updated")
	}

	settings, err := h.store.AllSettings()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch settings")
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}
