package handlers

import (
	"net/http"

	"earnlink/internal/services"
	"earnlink/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PostbackHandler is the server-to-server callback endpoint offerwall
// networks hit when a user finishes an offer. Networks retry on anything but
// a success body, so the handler answers "1" for duplicates too and reserves
// "0" for requests it could not even parse.
type PostbackHandler struct {
	offerwall *services.OfferwallService
	store     store.Store
	logger    zerolog.Logger
}

func NewPostbackHandler(offerwall *services.OfferwallService, st store.Store, logger zerolog.Logger) *PostbackHandler {
	return &PostbackHandler{
		offerwall: offerwall,
		store:     st,
		logger:    logger,
	}
}

func (h *PostbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	network := mux.Vars(r)["network"]
	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		userID = q.Get("subid")
	}
	offerID := q.Get("offer_id")
	if offerID == "" {
		offerID = q.Get("transaction_id")
	}
	payoutStr := q.Get("payout")
	if payoutStr == "" {
		payoutStr = q.Get("amount")
	}

	if userID == "" || offerID == "" || payoutStr == "" {
		h.logger.Warn().Str("network", network).Str("query", r.URL.RawQuery).Msg("Postback missing parameters")
		h.respondRaw(w, "0")
		return
	}

	payout, err := decimal.NewFromString(payoutStr)
	if err != nil || payout.Sign() <= 0 {
		h.logger.Warn().Str("network", network).Str("payout", payoutStr).Msg("Postback with invalid payout")
		h.respondRaw(w, "0")
		return
	}

	if secret := h.postbackSecret(network); secret != "" && q.Get("secret") != secret {
		h.logger.Warn().Str("network", network).Str("ip", clientIP(r)).Msg("Postback with bad secret")
		h.respondRaw(w, "0")
		return
	}

	result, err := h.offerwall.RecordCompletion(userID, network, offerID, payout, q.Get("txid"), clientIP(r))
	if err != nil {
		h.logger.Error().Err(err).
			Str("network", network).
			Str("user_id", userID).
			Str("offer_id", offerID).
			Msg("Postback processing failed")
		h.respondRaw(w, "0")
		return
	}

	if result.Credited {
		h.logger.Info().
			Str("network", network).
			Str("user_id", userID).
			Str("offer_id", offerID).
			Str("user_reward", result.UserReward.String()).
			Msg("Postback credited")
	}

	// Duplicates answer "1" as well: the network already paid out once and a
	// "0" would only make it retry forever.
	h.respondRaw(w, "1")
}

// postbackSecret prefers a per-network secret over the global one. An empty
// result disables the check for that network.
func (h *PostbackHandler) postbackSecret(network string) string {
	if s, err := h.store.GetSetting(store.SettingPostbackSecret + ":" + network); err == nil && s != "" {
		return s
	}
	if s, err := h.store.GetSetting(store.SettingPostbackSecret); err == nil {
		return s
	}
	return ""
}

func (h *PostbackHandler) respondRaw(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
