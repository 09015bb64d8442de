package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fitfoco/internal/auth"
	"fitfoco/internal/middleware"
	ffoerrors "fitfoco/pkg/errors"
	"fitfoco/pkg/logger"
	"fitfoco/pkg/validator"
)

// TokenRevoker invalidates issued tokens on logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string) error
}

type AuthHandler struct {
	service   *auth.Service
	revoker   TokenRevoker
	validator *validator.Validator
	logger    logger.Logger
}

func NewAuthHandler(service *auth.Service, revoker TokenRevoker, val *validator.Validator, log logger.Logger) *AuthHandler {
	return &AuthHandler{service: service, revoker: revoker, validator: val, logger: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ffoerrors.ErrTOTPRequired):
			respondJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error":         "TOTP code required",
				"totp_required": true,
			})
		case errors.Is(err, ffoerrors.ErrInvalidTOTPCode):
			respondError(w, http.StatusUnauthorized, "Invalid TOTP code")
		case errors.Is(err, ffoerrors.ErrInvalidCredentials), errors.Is(err, ffoerrors.ErrAccountNotFound):
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			h.logger.Error("Login failed", map[string]interface{}{"error": err.Error()})
			respondError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Me returns the identity claims of the presented token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	email, _ := middleware.EmailFromContext(r.Context())
	role, _ := middleware.RoleFromContext(r.Context())

	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": userID.String(),
		"email":   email,
		"role":    role,
	})
}

// Logout revokes the current token. Tokens without a jti claim cannot be
// revoked individually and are simply discarded client side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	jti, ok := middleware.TokenIDFromContext(r.Context())
	if ok && h.revoker != nil {
		if err := h.revoker.Revoke(r.Context(), jti); err != nil {
			h.logger.Error("Failed to revoke token", map[string]interface{}{"error": err.Error()})
			respondError(w, http.StatusInternalServerError, "Failed to log out")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// EnrollTOTP generates a TOTP secret for the calling admin and returns the
// otpauth provisioning URL. The secret stays disabled until confirmed.
func (h *AuthHandler) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	url, err := h.service.EnrollTOTP(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enroll TOTP")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"otpauth_url": url})
}

func (h *AuthHandler) ConfirmTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	if err := h.service.ConfirmTOTP(r.Context(), userID, req.Code); err != nil {
		if errors.Is(err, ffoerrors.ErrInvalidTOTPCode) {
			respondError(w, http.StatusBadRequest, "Invalid TOTP code")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to confirm TOTP")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "totp_enabled"})
}
