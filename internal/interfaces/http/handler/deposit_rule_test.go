package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *billingEnv) mustCreateRule(t *testing.T, body gin.H) map[string]any {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/billing/deposit-rules", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataOf(t, w)
}

func TestDepositRuleHandler_Create(t *testing.T) {
	t.Run("creates an active rule", func(t *testing.T) {
		env := newBillingEnv(t)

		data := env.mustCreateRule(t, gin.H{
			"name":             "Peak season 50%",
			"calculation_type": "PERCENTAGE",
			"value":            50,
			"priority":         10,
			"min_stay_nights":  2,
			"valid_from":       "2026-06-01T00:00:00Z",
			"valid_to":         "2026-09-01T00:00:00Z",
		})
		assert.Equal(t, "Peak season 50%", data["name"])
		assert.Equal(t, "PERCENTAGE", data["calculation_type"])
		assert.Equal(t, true, data["is_active"])
		assert.InDelta(t, 2, data["min_stay_nights"], 0.001)
	})

	t.Run("rejects a percentage above 100", func(t *testing.T) {
		env := newBillingEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/billing/deposit-rules", gin.H{
			"name":             "Broken",
			"calculation_type": "PERCENTAGE",
			"value":            150,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("rejects an unknown calculation type", func(t *testing.T) {
		env := newBillingEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/billing/deposit-rules", gin.H{
			"name":             "Broken",
			"calculation_type": "LUNAR_PHASE",
			"value":            10,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a malformed valid_from", func(t *testing.T) {
		env := newBillingEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/billing/deposit-rules", gin.H{
			"name":             "Broken",
			"calculation_type": "PERCENTAGE",
			"value":            30,
			"valid_from":       "June 1st",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDepositRuleHandler_Update(t *testing.T) {
	env := newBillingEnv(t)
	ruleID := env.mustCreateRule(t, gin.H{
		"name":             "Standard 30%",
		"calculation_type": "PERCENTAGE",
		"value":            30,
	})["id"].(string)

	t.Run("updates value and priority", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/billing/deposit-rules/"+ruleID, gin.H{
			"value":    40,
			"priority": 20,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := dataOf(t, w)
		assert.InDelta(t, 40, data["value"], 0.001)
		assert.InDelta(t, 20, data["priority"], 0.001)
		assert.Equal(t, "Standard 30%", data["name"])
	})

	t.Run("rejects an invalid updated value", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/billing/deposit-rules/"+ruleID, gin.H{
			"value": 120,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown rule", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/billing/deposit-rules/"+uuid.New().String(), gin.H{
			"value": 25,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDepositRuleHandler_ActivateDeactivate(t *testing.T) {
	env := newBillingEnv(t)
	ruleID := env.mustCreateRule(t, gin.H{
		"name":             "Toggle me",
		"calculation_type": "FIXED_AMOUNT",
		"value":            500000,
	})["id"].(string)

	w := env.do(t, http.MethodPost, "/api/v1/billing/deposit-rules/"+ruleID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, dataOf(t, w)["is_active"])

	w = env.do(t, http.MethodPost, "/api/v1/billing/deposit-rules/"+ruleID+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, dataOf(t, w)["is_active"])
}

func TestDepositRuleHandler_GetListDelete(t *testing.T) {
	env := newBillingEnv(t)
	ruleID := env.mustCreateRule(t, gin.H{
		"name":             "Short stays",
		"calculation_type": "NIGHTS_BASED",
		"value":            1,
		"max_stay_nights":  3,
	})["id"].(string)
	env.mustCreateRule(t, gin.H{
		"name":             "Catch-all",
		"calculation_type": "PERCENTAGE",
		"value":            20,
	})

	t.Run("get by id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/billing/deposit-rules/"+ruleID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "Short stays", dataOf(t, w)["name"])
	})

	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/billing/deposit-rules", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeBody(t, w)
		rules, ok := body["data"].([]any)
		require.True(t, ok)
		assert.Len(t, rules, 2)
	})

	t.Run("delete", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/v1/billing/deposit-rules/"+ruleID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(t, http.MethodGet, "/api/v1/billing/deposit-rules/"+ruleID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
