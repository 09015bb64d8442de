// Package webhook normalizes provider-specific payment payloads into
// canonical payment events.
package webhook

import (
	"fmt"
	"sort"
	"strings"

	"fitfoco/internal/domain"
	"fitfoco/pkg/validator"
)

// DefaultPlanOnUnmapped is the explicit lenient-default policy: a payload
// whose product or offer cannot be mapped to a plan is provisioned as mensal
// with a warning, never rejected for that reason alone.
const DefaultPlanOnUnmapped = domain.PlanMensal

// affirmativeStatuses are the provider status values that settle a payment.
var affirmativeStatuses = map[string]bool{
	"paid":      true,
	"approved":  true,
	"completed": true,
}

// affirmativeEvents are event-name fragments that settle a payment even when
// the status field says otherwise.
var affirmativeEvents = []string{
	"approved",
	"subscription_created",
	"order_paid",
	"payment_approved",
}

// ValidationError carries the field-level schema violations of a payload.
// Surfaced as HTTP 400; providers are not expected to resend on 400.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid webhook payload: %s", strings.Join(names, ", "))
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Normalizer validates raw provider payloads and produces canonical events.
type Normalizer struct {
	validator *validator.Validator
	logger    Logger
}

func NewNormalizer(val *validator.Validator, log Logger) *Normalizer {
	return &Normalizer{validator: val, logger: log}
}

// Normalize parses and validates a raw payload for the given provider.
// Schema violations return *ValidationError; an event that merely is not yet
// approved is NOT an error and comes back with Approved=false so the caller
// can acknowledge without provisioning.
func (n *Normalizer) Normalize(provider domain.PaymentProvider, payload []byte) (*domain.PaymentEvent, error) {
	switch provider {
	case domain.ProviderRisePay:
		return n.normalizeRisePay(payload)
	case domain.ProviderCakto:
		return n.normalizeCakto(payload)
	default:
		return nil, fmt.Errorf("unknown payment provider: %q", provider)
	}
}

// isApproved applies the shared affirmative-token rule to an event name and
// a status value, both matched case-insensitively.
func isApproved(event, status string) bool {
	if affirmativeStatuses[strings.ToLower(strings.TrimSpace(status))] {
		return true
	}
	ev := strings.ToLower(event)
	for _, token := range affirmativeEvents {
		if strings.Contains(ev, token) {
			return true
		}
	}
	return false
}
