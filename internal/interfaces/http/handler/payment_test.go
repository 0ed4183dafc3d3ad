package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentHandler_Record(t *testing.T) {
	t.Run("full payment settles the invoice", func(t *testing.T) {
		env := newBillingEnv(t)
		invoiceID, _ := env.mustCreateInvoice(t, 1000000)

		w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
			"booking_id": env.booking.ID.String(),
			"invoice_id": invoiceID.String(),
			"kind":       "PARTIAL",
			"method":     "CASH",
			"amount":     1000000,
			"currency":   "VND",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := dataOf(t, w)
		payment := data["payment"].(map[string]any)
		assert.Equal(t, "COMPLETED", payment["status"])
		assert.NotEmpty(t, payment["payment_number"])

		invoice, ok := data["invoice"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "PAID", invoice["status"])
		assert.InDelta(t, 0, invoice["balance_due"], 0.001)
	})

	t.Run("partial payment leaves a balance", func(t *testing.T) {
		env := newBillingEnv(t)
		invoiceID, _ := env.mustCreateInvoice(t, 1000000)

		w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
			"booking_id": env.booking.ID.String(),
			"invoice_id": invoiceID.String(),
			"kind":       "PARTIAL",
			"method":     "BANK_TRANSFER",
			"amount":     400000,
			"currency":   "VND",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := dataOf(t, w)
		invoice := data["invoice"].(map[string]any)
		assert.Equal(t, "PARTIAL", invoice["status"])
		assert.InDelta(t, 600000, invoice["balance_due"], 0.001)
	})

	t.Run("overpayment rejected without allow_advance", func(t *testing.T) {
		env := newBillingEnv(t)
		invoiceID, _ := env.mustCreateInvoice(t, 1000000)

		w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
			"booking_id": env.booking.ID.String(),
			"invoice_id": invoiceID.String(),
			"kind":       "PARTIAL",
			"method":     "CASH",
			"amount":     1500000,
			"currency":   "VND",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeBusinessRule, errorCodeOf(t, w))
	})

	t.Run("overpayment splits an advance credit when allowed", func(t *testing.T) {
		env := newBillingEnv(t)
		invoiceID, _ := env.mustCreateInvoice(t, 1000000)

		w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
			"booking_id":    env.booking.ID.String(),
			"invoice_id":    invoiceID.String(),
			"kind":          "PARTIAL",
			"method":        "CASH",
			"amount":        1500000,
			"currency":      "VND",
			"allow_advance": true,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := dataOf(t, w)
		payment := data["payment"].(map[string]any)
		assert.InDelta(t, 1000000, payment["amount"], 0.001)

		advance, ok := data["advance_payment"].(map[string]any)
		require.True(t, ok, "expected advance payment in %s", w.Body.String())
		assert.InDelta(t, 500000, advance["amount"], 0.001)

		invoice := data["invoice"].(map[string]any)
		assert.Equal(t, "PAID", invoice["status"])
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		env := newBillingEnv(t)

		w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
			"booking_id": env.booking.ID.String(),
			"kind":       "PARTIAL",
			"method":     "CHEQUE",
			"amount":     100000,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentHandler_Refund(t *testing.T) {
	env := newBillingEnv(t)
	invoiceID, _ := env.mustCreateInvoice(t, 1000000)

	w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
		"booking_id": env.booking.ID.String(),
		"invoice_id": invoiceID.String(),
		"kind":       "PARTIAL",
		"method":     "CASH",
		"amount":     1000000,
		"currency":   "VND",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paymentID := dataOf(t, w)["payment"].(map[string]any)["id"].(string)

	t.Run("refunds part of a completed payment", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/billing/payments/"+paymentID+"/refund", gin.H{
			"amount": 300000,
			"reason": "Early checkout",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := dataOf(t, w)
		assert.InDelta(t, 300000, data["amount"], 0.001)
		assert.Equal(t, paymentID, data["original_payment_id"])
		assert.Equal(t, "Early checkout", data["refund_reason"])
		assert.Equal(t, env.userID.String(), data["approved_by"])
	})

	t.Run("refund cannot exceed the original", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/billing/payments/"+paymentID+"/refund", gin.H{
			"amount": 900000,
			"reason": "Too much",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeBusinessRule, errorCodeOf(t, w))
	})

	t.Run("unknown payment", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/billing/payments/"+uuid.New().String()+"/refund", gin.H{
			"amount": 100000,
			"reason": "No such payment",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPaymentHandler_GetByID(t *testing.T) {
	env := newBillingEnv(t)
	invoiceID, _ := env.mustCreateInvoice(t, 500000)

	w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
		"booking_id": env.booking.ID.String(),
		"invoice_id": invoiceID.String(),
		"kind":       "PARTIAL",
		"method":     "CASH",
		"amount":     500000,
		"currency":   "VND",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paymentID := dataOf(t, w)["payment"].(map[string]any)["id"].(string)

	t.Run("found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/billing/payments/"+paymentID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := dataOf(t, w)
		assert.Equal(t, paymentID, data["id"])
		assert.Equal(t, invoiceID.String(), data["invoice_id"])
	})

	t.Run("not found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/billing/payments/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPaymentHandler_List(t *testing.T) {
	env := newBillingEnv(t)
	invoiceID, _ := env.mustCreateInvoice(t, 800000)

	for _, amount := range []float64{300000, 500000} {
		w := env.do(t, http.MethodPost, "/api/v1/billing/payments", gin.H{
			"booking_id": env.booking.ID.String(),
			"invoice_id": invoiceID.String(),
			"kind":       "PARTIAL",
			"method":     "CASH",
			"amount":     amount,
			"currency":   "VND",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	t.Run("lists payments", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/billing/payments", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		items, ok := body["data"].([]any)
		require.True(t, ok)
		assert.Len(t, items, 2)
	})

	t.Run("rejects malformed invoice_id filter", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/billing/payments?invoice_id=bad", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
