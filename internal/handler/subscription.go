package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"fitfoco/internal/domain"
	"fitfoco/internal/middleware"
	"fitfoco/internal/provision"
	ffoerrors "fitfoco/pkg/errors"
	"fitfoco/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionHandler struct {
	provisioner *provision.Service
	validator   *validator.Validator
}

func NewSubscriptionHandler(p *provision.Service, val *validator.Validator) *SubscriptionHandler {
	return &SubscriptionHandler{provisioner: p, validator: val}
}

// GetMySubscription returns the calling user's active subscription.
func (h *SubscriptionHandler) GetMySubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, err := h.provisioner.ActiveSubscription(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ffoerrors.ErrNoActiveSubscription) {
			respondError(w, http.StatusNotFound, "No active subscription")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch subscription")
		return
	}

	respondJSON(w, http.StatusOK, sub)
}

type manualApproveRequest struct {
	UserID   uuid.UUID       `json:"user_id" validate:"required"`
	PlanType domain.PlanType `json:"plan_type" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// ManualApprove lets an admin grant a subscription without a payment event,
// for chargebacks resolved out of band or manual sales.
func (h *SubscriptionHandler) ManualApprove(w http.ResponseWriter, r *http.Request) {
	var req manualApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	sub, err := h.provisioner.ManualApprove(r.Context(), req.UserID, req.PlanType, req.Amount)
	if err != nil {
		if errors.Is(err, ffoerrors.ErrInvalidPlanType) {
			respondError(w, http.StatusBadRequest, "Invalid plan type")
			return
		}
		if errors.Is(err, ffoerrors.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "Account not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to approve subscription")
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}

// CreateClient creates an account plus subscription in one step from the
// back office.
func (h *SubscriptionHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req provision.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}
	req.FullName = validator.Sanitize(req.FullName)

	userID, err := h.provisioner.CreateClient(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ffoerrors.ErrAccountAlreadyExists) {
			respondError(w, http.StatusConflict, "Email already registered")
			return
		}
		if errors.Is(err, ffoerrors.ErrInvalidPlanType) {
			respondError(w, http.StatusBadRequest, "Invalid plan type")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id": userID,
		"status":  "created",
	})
}
