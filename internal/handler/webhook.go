package handler

import (
	"errors"
	"io"
	"net/http"

	"fitfoco/internal/domain"
	"fitfoco/internal/provision"
	"fitfoco/internal/webhook"
	"fitfoco/pkg/logger"
)

type WebhookHandler struct {
	normalizer  *webhook.Normalizer
	provisioner *provision.Service
	logger      logger.Logger
}

func NewWebhookHandler(n *webhook.Normalizer, p *provision.Service, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{normalizer: n, provisioner: p, logger: log}
}

// RisePay handles payment notifications from RisePay.
func (h *WebhookHandler) RisePay(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.ProviderRisePay)
}

// Cakto handles payment notifications from Cakto.
func (h *WebhookHandler) Cakto(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.ProviderCakto)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, provider domain.PaymentProvider) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := h.normalizer.Normalize(provider, body)
	if err != nil {
		var verr *webhook.ValidationError
		if errors.As(err, &verr) {
			h.logger.Warn("Webhook payload rejected", map[string]interface{}{
				"provider": string(provider),
				"error":    verr.Error(),
			})
			respondValidationErrors(w, verr.Fields)
			return
		}
		h.logger.Error("Failed to normalize webhook", map[string]interface{}{
			"provider": string(provider),
			"error":    err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	// Non-affirmative events are acknowledged so the provider stops
	// retrying, but nothing is provisioned.
	if !event.Approved {
		h.logger.Info("Webhook acknowledged without provisioning", map[string]interface{}{
			"provider":       string(provider),
			"transaction_id": event.TransactionID,
		})
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"provisioned": false,
			"message":     "Event acknowledged",
		})
		return
	}

	result, err := h.provisioner.Provision(r.Context(), event)
	if err != nil {
		h.logger.Error("Failed to provision from webhook", map[string]interface{}{
			"provider":       string(provider),
			"transaction_id": event.TransactionID,
			"email":          event.Email,
			"error":          err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "Failed to process payment")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"provisioned":     true,
		"user_id":         result.UserID,
		"account_created": result.AccountIsNew,
		"plan_type":       event.PlanType,
	})
}
