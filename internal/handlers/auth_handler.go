package handlers

import (
	"encoding/json"
	"net/http"

	"earnlink/internal/middleware"
	"earnlink/internal/models"
	"earnlink/internal/services"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.userService.Register(&req, clientIP(r))
	if err != nil {
		h.logger.Warn().Err(err).Str("email", req.Email).Msg("Registration failed")
		respondWithError(w, http.StatusBadRequest, "registration_failed", err.Error())
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, roleFor(user))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "token_failed", "Failed to generate token")
		return
	}

	respondWithJSON(w, http.StatusCreated, models.AuthResponse{User: user, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.userService.Authenticate(&req)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, roleFor(user))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "token_failed", "Failed to generate token")
		return
	}

	respondWithJSON(w, http.StatusOK, models.AuthResponse{User: user, Token: token})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "not_found", "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

func roleFor(u *models.User) string {
	if u.IsAdmin {
		return middleware.RoleAdmin
	}
	return middleware.RoleUser
}
