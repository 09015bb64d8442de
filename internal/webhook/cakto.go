package webhook

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"fitfoco/internal/domain"
	"fitfoco/pkg/validator"

	"github.com/shopspring/decimal"
)

// caktoProductPlans maps Cakto checkout-link / product short ids to plans.
var caktoProductPlans = map[string]domain.PlanType{
	"oe4gntt_660033": domain.PlanMensal,
	"3bkvcdo_660047": domain.PlanTrimestral,
	"3fyyh99_660056": domain.PlanAnual,
}

// caktoOfferPlans maps Cakto offer ids to plans. Populated as offers are
// created on the Cakto side.
var caktoOfferPlans = map[string]domain.PlanType{}

// planPrices are the advertised plan prices in BRL; they override whatever
// amount the webhook reports once a plan is mapped.
var planPrices = map[domain.PlanType]decimal.Decimal{
	domain.PlanMensal:     decimal.RequireFromString("18.90"),
	domain.PlanTrimestral: decimal.RequireFromString("38.90"),
	domain.PlanAnual:      decimal.RequireFromString("73.90"),
}

var caktoCheckoutRe = regexp.MustCompile(`(?i)pay\.cakto\.com\.br/([a-z0-9_]+)`)

// PlanPrice returns the advertised price for plan, zero if unknown.
func PlanPrice(plan domain.PlanType) decimal.Decimal {
	return planPrices[plan]
}

// CaktoCheckoutSlug returns the Cakto checkout short id that sells plan.
func CaktoCheckoutSlug(plan domain.PlanType) (string, bool) {
	for slug, p := range caktoProductPlans {
		if p == plan {
			return slug, true
		}
	}
	return "", false
}

// caktoPayload is the Cakto webhook shape. The optional secret field is
// parsed but deliberately not verified, matching current provider setup;
// see the security notes in the README.
type caktoPayload struct {
	Secret string `json:"secret,omitempty"`
	Event  string `json:"event" validate:"required"`
	Data   struct {
		ID       string `json:"id,omitempty"`
		RefID    string `json:"refId,omitempty"`
		Customer struct {
			Name  string `json:"name" validate:"required,max=100"`
			Email string `json:"email" validate:"required,email,max=255"`
			Phone string `json:"phone,omitempty"`
		} `json:"customer"`
		Product *struct {
			ID      string `json:"id,omitempty"`
			ShortID string `json:"short_id,omitempty"`
			Name    string `json:"name,omitempty"`
		} `json:"product,omitempty"`
		Offer *struct {
			ID    string           `json:"id,omitempty"`
			Name  string           `json:"name,omitempty"`
			Price *decimal.Decimal `json:"price,omitempty"`
		} `json:"offer,omitempty"`
		Status      string          `json:"status" validate:"required"`
		Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
		BaseAmount  decimal.Decimal `json:"baseAmount,omitempty"`
		CheckoutURL string          `json:"checkoutUrl,omitempty"`
	} `json:"data"`
}

func (n *Normalizer) normalizeCakto(payload []byte) (*domain.PaymentEvent, error) {
	var p caktoPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"_body": "malformed JSON"}}
	}

	if errs := n.validator.ValidateStructured(&p); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	planType, mapped := n.resolveCaktoPlan(&p)
	if !mapped {
		n.logger.Warn("could not map cakto product/offer to plan, applying default", map[string]interface{}{
			"checkout_url": p.Data.CheckoutURL,
			"product_id":   caktoProductID(&p),
			"offer_id":     caktoOfferID(&p),
			"default":      string(DefaultPlanOnUnmapped),
		})
		planType = DefaultPlanOnUnmapped
	}

	// The mapped plan's advertised price wins over the reported amount; the
	// providers occasionally report installment values here.
	amount := planPrices[planType]

	txID := p.Data.ID
	if txID == "" {
		txID = p.Data.RefID
	}
	if txID == "" {
		txID = fmt.Sprintf("cakto_%d", time.Now().UnixMilli())
	}

	return &domain.PaymentEvent{
		Provider:      domain.ProviderCakto,
		TransactionID: txID,
		Email:         p.Data.Customer.Email,
		Name:          validator.Sanitize(p.Data.Customer.Name),
		PlanType:      planType,
		Amount:        amount,
		Approved:      isApproved(p.Event, p.Data.Status),
	}, nil
}

// resolveCaktoPlan tries, in order: the id embedded in the checkout URL, the
// offer id, then the product id.
func (n *Normalizer) resolveCaktoPlan(p *caktoPayload) (domain.PlanType, bool) {
	if m := caktoCheckoutRe.FindStringSubmatch(p.Data.CheckoutURL); m != nil {
		if plan, ok := caktoProductPlans[m[1]]; ok {
			return plan, true
		}
	}
	if id := caktoOfferID(p); id != "" {
		if plan, ok := caktoOfferPlans[id]; ok {
			return plan, true
		}
	}
	if id := caktoProductID(p); id != "" {
		if plan, ok := caktoProductPlans[id]; ok {
			return plan, true
		}
	}
	return "", false
}

func caktoProductID(p *caktoPayload) string {
	if p.Data.Product == nil {
		return ""
	}
	if p.Data.Product.ShortID != "" {
		return p.Data.Product.ShortID
	}
	return p.Data.Product.ID
}

func caktoOfferID(p *caktoPayload) string {
	if p.Data.Offer == nil {
		return ""
	}
	return p.Data.Offer.ID
}
