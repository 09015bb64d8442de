package webhook

import (
	"encoding/json"

	"fitfoco/internal/domain"
	"fitfoco/pkg/validator"

	"github.com/shopspring/decimal"
)

// risePayPayload is the RisePay webhook shape.
type risePayPayload struct {
	Event string `json:"event"`
	Data  struct {
		TransactionID string          `json:"transaction_id" validate:"required,max=255"`
		Status        string          `json:"status"`
		Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
		Customer      struct {
			Email string `json:"email" validate:"required,email,max=255"`
			Name  string `json:"name" validate:"required,max=100"`
		} `json:"customer"`
		Metadata *struct {
			PlanType string `json:"plan_type"`
		} `json:"metadata,omitempty"`
	} `json:"data"`
}

func (n *Normalizer) normalizeRisePay(payload []byte) (*domain.PaymentEvent, error) {
	var p risePayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"_body": "malformed JSON"}}
	}

	if errs := n.validator.ValidateStructured(&p); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	planType := DefaultPlanOnUnmapped
	if p.Data.Metadata != nil && p.Data.Metadata.PlanType != "" {
		candidate := domain.PlanType(p.Data.Metadata.PlanType)
		if candidate.Valid() {
			planType = candidate
		} else {
			n.logger.Warn("unmappable risepay plan type, applying default", map[string]interface{}{
				"plan_type": p.Data.Metadata.PlanType,
				"default":   string(DefaultPlanOnUnmapped),
			})
		}
	} else {
		n.logger.Warn("risepay webhook missing plan type, applying default", map[string]interface{}{
			"transaction_id": p.Data.TransactionID,
			"default":        string(DefaultPlanOnUnmapped),
		})
	}

	return &domain.PaymentEvent{
		Provider:      domain.ProviderRisePay,
		TransactionID: p.Data.TransactionID,
		Email:         p.Data.Customer.Email,
		Name:          validator.Sanitize(p.Data.Customer.Name),
		PlanType:      planType,
		Amount:        p.Data.Amount,
		Approved:      isApproved(p.Event, p.Data.Status),
	}, nil
}
