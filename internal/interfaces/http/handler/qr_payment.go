package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/config"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WebhookSignatureHeader carries the HMAC-SHA256 hex digest of the raw
// webhook body, computed by the bank with the shared secret
const WebhookSignatureHeader = "X-Signature"

// QRPaymentHandler handles QR payment request and bank webhook endpoints
type QRPaymentHandler struct {
	BaseHandler
	qrService  *billingapp.QRReconciliationService
	billingCfg config.BillingConfig
}

// NewQRPaymentHandler creates a new QRPaymentHandler
func NewQRPaymentHandler(qrService *billingapp.QRReconciliationService, billingCfg config.BillingConfig) *QRPaymentHandler {
	return &QRPaymentHandler{
		qrService:  qrService,
		billingCfg: billingCfg,
	}
}

// IssueQRRequest represents a request to issue a QR payment request
// @Description Request body for issuing a QR bank-transfer matching request
type IssueQRRequest struct {
	ExpiryMinutes int `json:"expiry_minutes" binding:"gte=0,lte=1440" example:"30"`
}

// QRPaymentResponse represents a QR payment request in API responses
// @Description QR payment request response
type QRPaymentResponse struct {
	ID              string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440060"`
	PropertyID      string     `json:"property_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	BookingID       string     `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	InvoiceID       string     `json:"invoice_id" example:"550e8400-e29b-41d4-a716-446655440010"`
	MatchingToken   string     `json:"matching_token" example:"A1B2C3D4E5F6"`
	TransferContent string     `json:"transfer_content" example:"INV-2026-00001 A1B2C3D4E5F6"`
	ExpectedAmount  float64    `json:"expected_amount" example:"2712000"`
	ReceivedAmount  float64    `json:"received_amount" example:"0"`
	Currency        string     `json:"currency" example:"VND"`
	Status          string     `json:"status" example:"PENDING"`
	ExpiresAt       time.Time  `json:"expires_at"`
	MatchedAt       *time.Time `json:"matched_at,omitempty"`
	FailureReason   string     `json:"failure_reason,omitempty" example:""`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BankTransactionWebhookRequest represents one bank-transfer notification
// @Description Bank transaction webhook payload
type BankTransactionWebhookRequest struct {
	TransactionID string  `json:"transaction_id" binding:"required,min=1,max=100" example:"FT26241000123"`
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"2712000"`
	Currency      string  `json:"currency" example:"VND"`
	Memo          string  `json:"memo" example:"INV-2026-00001 A1B2C3D4E5F6"`
	OccurredAt    string  `json:"occurred_at" binding:"required" example:"2026-08-28T10:15:00Z"`
}

// BankTransactionWebhookResponse represents the outcome of a webhook delivery
// @Description Bank transaction ingestion outcome
type BankTransactionWebhookResponse struct {
	Outcome   string             `json:"outcome" example:"MATCHED"`
	QRPayment *QRPaymentResponse `json:"qr_payment,omitempty"`
	Payment   *PaymentResponse   `json:"payment,omitempty"`
}

// IssueRequest godoc
// @Summary      Issue a QR payment request
// @Description  Issue a bank-transfer matching request for an invoice's balance due
// @Tags         qr-payments
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body IssueQRRequest false "QR request options"
// @Success      201 {object} dto.Response{data=QRPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices/{id}/qr [post]
func (h *QRPaymentHandler) IssueRequest(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req IssueQRRequest
	// Allow empty body
	_ = c.ShouldBindJSON(&req)

	expiryMinutes := req.ExpiryMinutes
	if expiryMinutes <= 0 {
		expiryMinutes = h.billingCfg.QRExpiryMinutes
	}

	qr, err := h.qrService.IssueRequest(c.Request.Context(), billingapp.IssueRequestInput{
		PropertyID:    propertyID,
		InvoiceID:     invoiceID,
		ExpiryMinutes: expiryMinutes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toQRPaymentResponse(qr))
}

// HandleBankTransaction godoc
// @Summary      Ingest a bank transaction
// @Description  Receive a bank-transfer notification and match it against open QR payment requests
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Signature header string true "HMAC-SHA256 hex digest of the raw body"
// @Param        request body BankTransactionWebhookRequest true "Bank transaction payload"
// @Success      200 {object} dto.Response{data=BankTransactionWebhookResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/bank-transactions [post]
func (h *QRPaymentHandler) HandleBankTransaction(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}

	if !h.verifySignature(c, body) {
		logger.FromContext(c.Request.Context()).Warn("Bank webhook signature rejected",
			zap.String("remote_addr", c.ClientIP()))
		h.Unauthorized(c, "Invalid webhook signature")
		return
	}

	var req BankTransactionWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.BadRequest(c, "Invalid JSON payload")
		return
	}
	if req.TransactionID == "" || req.Amount <= 0 || req.OccurredAt == "" {
		h.BadRequest(c, "transaction_id, amount and occurred_at are required")
		return
	}

	occurredAt, err := time.Parse(time.RFC3339, req.OccurredAt)
	if err != nil {
		h.BadRequest(c, "Invalid occurred_at, expected RFC 3339")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.billingCfg.DefaultCurrency
	}

	result, err := h.qrService.IngestTransaction(c.Request.Context(), billingapp.BankTransactionInput{
		TransactionID: req.TransactionID,
		Amount:        decimal.NewFromFloat(req.Amount),
		Currency:      valueobject.Currency(currency),
		Memo:          req.Memo,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBankTransactionWebhookResponse(result))
}

// verifySignature checks the HMAC-SHA256 signature of the raw body against
// the shared webhook secret. Unsigned deliveries pass only when explicitly
// allowed, which the configuration restricts to non-production.
func (h *QRPaymentHandler) verifySignature(c *gin.Context, body []byte) bool {
	signature := c.GetHeader(WebhookSignatureHeader)
	if signature == "" {
		return h.billingCfg.AllowWebhookUnsigned
	}
	if h.billingCfg.WebhookSignature == "" {
		return h.billingCfg.AllowWebhookUnsigned
	}

	mac := hmac.New(sha256.New, []byte(h.billingCfg.WebhookSignature))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// toQRPaymentResponse converts a domain QR payment request to the handler response
func toQRPaymentResponse(qr *billing.QRPayment) QRPaymentResponse {
	return QRPaymentResponse{
		ID:              qr.ID.String(),
		PropertyID:      qr.PropertyID.String(),
		BookingID:       qr.BookingID.String(),
		InvoiceID:       qr.InvoiceID.String(),
		MatchingToken:   qr.MatchingToken,
		TransferContent: qr.TransferContent,
		ExpectedAmount:  qr.ExpectedAmount.InexactFloat64(),
		ReceivedAmount:  qr.ReceivedAmount.InexactFloat64(),
		Currency:        string(qr.Currency),
		Status:          string(qr.Status),
		ExpiresAt:       qr.ExpiresAt,
		MatchedAt:       qr.MatchedAt,
		FailureReason:   qr.FailureReason,
		CreatedAt:       qr.CreatedAt,
		UpdatedAt:       qr.UpdatedAt,
	}
}

// toBankTransactionWebhookResponse converts an ingestion result to the handler response
func toBankTransactionWebhookResponse(result *billingapp.IngestResult) BankTransactionWebhookResponse {
	resp := BankTransactionWebhookResponse{
		Outcome: string(result.Outcome),
	}
	if result.QRPayment != nil {
		qr := toQRPaymentResponse(result.QRPayment)
		resp.QRPayment = &qr
	}
	if result.Payment != nil {
		payment := toPaymentResponse(result.Payment)
		resp.Payment = &payment
	}
	return resp
}
