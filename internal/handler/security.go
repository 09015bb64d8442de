package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fitfoco/internal/middleware"
	"fitfoco/internal/security"
	ffoerrors "fitfoco/pkg/errors"
	"fitfoco/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SecurityHandler exposes the back-office device and blacklist operations.
// All of its routes sit behind the admin role middleware.
type SecurityHandler struct {
	service   *security.Service
	validator *validator.Validator
}

func NewSecurityHandler(service *security.Service, val *validator.Validator) *SecurityHandler {
	return &SecurityHandler{service: service, validator: val}
}

func (h *SecurityHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	devices, total, err := h.service.GetDevices(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch devices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   total,
	})
}

func (h *SecurityHandler) BlockDevice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}

	if err := h.service.BlockDevice(r.Context(), id); err != nil {
		if errors.Is(err, ffoerrors.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, "Device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to block device")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (h *SecurityHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid device ID")
		return
	}

	if err := h.service.DeleteDevice(r.Context(), id); err != nil {
		if errors.Is(err, ffoerrors.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, "Device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to delete device")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *SecurityHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	activities, total, err := h.service.GetActivities(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch suspicious activities")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"activities": activities,
		"total":      total,
	})
}

// BlockActivityIP marks a suspicious activity as handled and blacklists the
// IP it came from.
func (h *SecurityHandler) BlockActivityIP(w http.ResponseWriter, r *http.Request) {
	activityID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	var req struct {
		IPAddress string `json:"ip_address" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	adminID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.service.BlockIP(r.Context(), activityID, req.IPAddress, adminID); err != nil {
		if errors.Is(err, ffoerrors.ErrActivityNotFound) {
			respondError(w, http.StatusNotFound, "Activity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to block IP")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (h *SecurityHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetBlacklist(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch blacklist")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

type addBlacklistRequest struct {
	IPAddress string     `json:"ip_address" validate:"required"`
	Reason    string     `json:"reason" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *SecurityHandler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req addBlacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	adminID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.service.Block(r.Context(), req.IPAddress, req.Reason, &adminID, req.ExpiresAt); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to add IP to blacklist")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "blocked"})
}

func (h *SecurityHandler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}

	if err := h.service.Unblock(r.Context(), id); err != nil {
		if errors.Is(err, ffoerrors.ErrActivityNotFound) {
			respondError(w, http.StatusNotFound, "Blacklist entry not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to remove blacklist entry")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "expired"})
}
