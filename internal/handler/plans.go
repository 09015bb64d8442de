package handler

import (
	"fmt"
	"net/http"

	"fitfoco/internal/domain"
	"fitfoco/internal/webhook"

	"github.com/shopspring/decimal"
)

// PlansHandler exposes the public plan catalog with checkout links, the
// data the pricing page renders.
type PlansHandler struct {
	caktoBaseURL string
}

func NewPlansHandler(caktoBaseURL string) *PlansHandler {
	return &PlansHandler{caktoBaseURL: caktoBaseURL}
}

type planInfo struct {
	PlanType    domain.PlanType `json:"plan_type"`
	Price       decimal.Decimal `json:"price"`
	Months      int             `json:"months"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
}

func (h *PlansHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	order := []domain.PlanType{domain.PlanMensal, domain.PlanTrimestral, domain.PlanAnual}

	plans := make([]planInfo, 0, len(order))
	for _, plan := range order {
		info := planInfo{
			PlanType: plan,
			Price:    webhook.PlanPrice(plan),
			Months:   plan.PeriodMonths(),
		}
		if slug, ok := webhook.CaktoCheckoutSlug(plan); ok {
			info.CheckoutURL = fmt.Sprintf("%s/%s", h.caktoBaseURL, slug)
		}
		plans = append(plans, info)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}
