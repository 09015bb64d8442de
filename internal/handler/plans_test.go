package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlansListsCatalogWithCheckoutLinks(t *testing.T) {
	h := NewPlansHandler("https://pay.cakto.com.br")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
	rec := httptest.NewRecorder()
	h.GetPlans(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Plans []struct {
			PlanType    string `json:"plan_type"`
			Price       string `json:"price"`
			Months      int    `json:"months"`
			CheckoutURL string `json:"checkout_url"`
		} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Plans, 3)

	assert.Equal(t, "mensal", resp.Plans[0].PlanType)
	assert.Equal(t, "18.9", resp.Plans[0].Price)
	assert.Equal(t, 1, resp.Plans[0].Months)
	assert.Equal(t, "https://pay.cakto.com.br/oe4gntt_660033", resp.Plans[0].CheckoutURL)

	assert.Equal(t, "trimestral", resp.Plans[1].PlanType)
	assert.Equal(t, 3, resp.Plans[1].Months)
	assert.Equal(t, "https://pay.cakto.com.br/3bkvcdo_660047", resp.Plans[1].CheckoutURL)

	assert.Equal(t, "anual", resp.Plans[2].PlanType)
	assert.Equal(t, 12, resp.Plans[2].Months)
	assert.Equal(t, "https://pay.cakto.com.br/3fyyh99_660056", resp.Plans[2].CheckoutURL)
}
