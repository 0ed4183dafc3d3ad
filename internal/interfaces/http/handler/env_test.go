package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	domainbilling "github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "test-webhook-secret"

// billingEnv wires the real application services over in-memory stores and
// mounts every billing route on a test router. Authenticated routes get JWT
// context injected by middleware; the webhook route stays unauthenticated,
// matching the production router.
type billingEnv struct {
	router     *gin.Engine
	propertyID uuid.UUID
	userID     uuid.UUID
	booking    *domainbilling.Booking

	invoiceRepo  *fakeInvoiceRepo
	paymentRepo  *fakePaymentRepo
	ruleRepo     *fakeRuleRepo
	scheduleRepo *fakeScheduleRepo
	qrRepo       *fakeQRRepo
	bankTxnRepo  *fakeBankTxnRepo
	folioRepo    *fakeFolioRepo

	invoiceSvc  *billing.InvoiceService
	paymentSvc  *billing.PaymentService
	scheduleSvc *billing.ScheduleService
	folioSvc    *billing.FolioService
	qrSvc       *billing.QRReconciliationService
	ruleSvc     *billing.DepositRuleService
}

func newBillingEnv(t *testing.T, rules ...*domainbilling.DepositRule) *billingEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &billingEnv{
		propertyID:   uuid.New(),
		userID:       uuid.New(),
		invoiceRepo:  newFakeInvoiceRepo(),
		paymentRepo:  newFakePaymentRepo(),
		ruleRepo:     newFakeRuleRepo(rules...),
		scheduleRepo: newFakeScheduleRepo(),
		qrRepo:       newFakeQRRepo(),
		bankTxnRepo:  newFakeBankTxnRepo(),
		folioRepo:    newFakeFolioRepo(),
	}
	for _, r := range rules {
		r.PropertyID = env.propertyID
	}

	bookingDate := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	env.booking = &domainbilling.Booking{
		ID:          uuid.New(),
		PropertyID:  env.propertyID,
		RoomTypeID:  uuid.New(),
		BookingDate: bookingDate,
		CheckIn:     bookingDate.AddDate(0, 0, 14),
		CheckOut:    bookingDate.AddDate(0, 0, 18),
		Nights:      4,
		TotalAmount: valueobject.NewMoneyVNDFromInt(3000000),
		Status:      "CONFIRMED",
	}
	bookingReader := newFakeBookingReader(env.booking)

	logger := zap.NewNop()
	env.invoiceSvc = billing.NewInvoiceService(
		env.invoiceRepo, env.ruleRepo, env.folioRepo, bookingReader, noopPublisher{}, logger)
	env.paymentSvc = billing.NewPaymentService(
		env.paymentRepo, env.invoiceRepo, env.folioRepo, noopPublisher{}, logger)
	env.scheduleSvc = billing.NewScheduleService(
		env.scheduleRepo, env.invoiceRepo, bookingReader, logger)
	env.folioSvc = billing.NewFolioService(
		env.folioRepo, env.invoiceRepo, env.paymentRepo, env.scheduleRepo, bookingReader, logger)
	env.qrSvc = billing.NewQRReconciliationService(
		env.qrRepo, env.bankTxnRepo, env.invoiceRepo, env.paymentSvc,
		newFakeIdempotencyStore(), shared.DefaultIdempotencyConfig(), logger)
	env.ruleSvc = billing.NewDepositRuleService(env.ruleRepo, logger)

	billingCfg := config.BillingConfig{
		DefaultCurrency:  "VND",
		QRExpiryMinutes:  30,
		IdempotencyTTL:   time.Hour,
		WebhookSignature: testWebhookSecret,
	}

	invoiceHandler := NewInvoiceHandler(env.invoiceSvc)
	paymentHandler := NewPaymentHandler(env.paymentSvc)
	scheduleHandler := NewScheduleHandler(env.scheduleSvc)
	folioHandler := NewFolioHandler(env.folioSvc)
	qrHandler := NewQRPaymentHandler(env.qrSvc, billingCfg)
	ruleHandler := NewDepositRuleHandler(env.ruleSvc)

	env.router = gin.New()
	authed := env.router.Group("/api/v1")
	authed.Use(func(c *gin.Context) {
		setJWTContext(c, env.propertyID, env.userID)
		c.Next()
	})

	invoices := authed.Group("/billing/invoices")
	{
		invoices.POST("", invoiceHandler.Create)
		invoices.GET("", invoiceHandler.List)
		invoices.POST("/deposit", invoiceHandler.CreateDeposit)
		invoices.GET("/:id", invoiceHandler.GetByID)
		invoices.POST("/:id/cancel", invoiceHandler.Cancel)
		invoices.POST("/:id/qr", qrHandler.IssueRequest)
	}
	payments := authed.Group("/billing/payments")
	{
		payments.POST("", paymentHandler.Record)
		payments.GET("", paymentHandler.List)
		payments.GET("/:id", paymentHandler.GetByID)
		payments.POST("/:id/refund", paymentHandler.Refund)
	}
	bookings := authed.Group("/billing/bookings")
	{
		bookings.POST("/:id/schedule/auto", scheduleHandler.GenerateAuto)
		bookings.POST("/:id/schedule/custom", scheduleHandler.GenerateCustom)
		bookings.GET("/:id/schedule", scheduleHandler.Get)
		bookings.POST("/:id/folio", folioHandler.Open)
		bookings.GET("/:id/folio", folioHandler.Get)
		bookings.POST("/:id/folio/close", folioHandler.Close)
		bookings.POST("/:id/folio/reopen", folioHandler.Reopen)
	}
	entries := authed.Group("/billing/schedule-entries")
	{
		entries.POST("/:id/link-invoice", scheduleHandler.LinkInvoice)
		entries.POST("/:id/mark-paid", scheduleHandler.MarkPaid)
		entries.POST("/:id/cancel", scheduleHandler.CancelEntry)
	}
	rulesGroup := authed.Group("/billing/deposit-rules")
	{
		rulesGroup.POST("", ruleHandler.Create)
		rulesGroup.GET("", ruleHandler.List)
		rulesGroup.GET("/:id", ruleHandler.GetByID)
		rulesGroup.PUT("/:id", ruleHandler.Update)
		rulesGroup.DELETE("/:id", ruleHandler.Delete)
		rulesGroup.POST("/:id/activate", ruleHandler.Activate)
		rulesGroup.POST("/:id/deactivate", ruleHandler.Deactivate)
	}
	env.router.POST("/api/v1/webhooks/bank-transactions", qrHandler.HandleBankTransaction)

	return env
}

// do performs a JSON request against the test router
func (e *billingEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals the response envelope
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// dataOf returns the data payload of a successful response
func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"], "expected success envelope, got %s", w.Body.String())
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected object data, got %s", w.Body.String())
	return data
}

// errorCodeOf returns the error code of a failed response
func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"], "expected error envelope, got %s", w.Body.String())
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error object, got %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

// mustCreateInvoice creates a PARTIAL invoice through the API and returns its ID
func (e *billingEnv) mustCreateInvoice(t *testing.T, amount float64) (uuid.UUID, map[string]any) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/billing/invoices", gin.H{
		"booking_id": e.booking.ID.String(),
		"kind":       "PARTIAL",
		"currency":   "VND",
		"items": []gin.H{
			{"type": "ROOM", "description": "Room charge", "quantity": 1, "unit_price": amount},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := dataOf(t, w)
	id, err := uuid.Parse(data["id"].(string))
	require.NoError(t, err)
	return id, data
}
