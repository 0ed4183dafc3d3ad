package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RecordPaymentRequest represents a request to record a payment
// @Description Request body for recording a received payment
type RecordPaymentRequest struct {
	BookingID       string         `json:"booking_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	InvoiceID       *string        `json:"invoice_id" example:"550e8400-e29b-41d4-a716-446655440010"`
	Kind            string         `json:"kind" binding:"required,oneof=DEPOSIT PARTIAL FINAL" example:"DEPOSIT"`
	Method          string         `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CREDIT_CARD QR_TRANSFER" example:"CASH"`
	Amount          float64        `json:"amount" binding:"required,gt=0" example:"500000"`
	Currency        string         `json:"currency" example:"VND"`
	ReferenceNumber string         `json:"reference_number" example:"FT26241000123"`
	Details         map[string]any `json:"details"`
	AllowAdvance    bool           `json:"allow_advance" example:"false"`
}

// RecordRefundRequest represents a request to record a refund
// @Description Request body for refunding a completed payment
type RecordRefundRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0" example:"200000"`
	Reason string  `json:"reason" binding:"required,min=1,max=500" example:"Early checkout"`
}

// PaymentListQuery holds the query parameters for listing payments
type PaymentListQuery struct {
	BookingID string `form:"booking_id"`
	InvoiceID string `form:"invoice_id"`
	Kind      string `form:"kind"`
	Method    string `form:"method"`
	Status    string `form:"status"`
	FromDate  string `form:"from_date"`
	ToDate    string `form:"to_date"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir"`
}

// PaymentResponse represents a payment in API responses
// @Description Payment response
type PaymentResponse struct {
	ID                string         `json:"id" example:"550e8400-e29b-41d4-a716-446655440030"`
	PropertyID        string         `json:"property_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PaymentNumber     string         `json:"payment_number" example:"PAY-2026-00001"`
	BookingID         string         `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	InvoiceID         *string        `json:"invoice_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440010"`
	Kind              string         `json:"kind" example:"DEPOSIT"`
	Method            string         `json:"method" example:"CASH"`
	Amount            float64        `json:"amount" example:"500000"`
	Currency          string         `json:"currency" example:"VND"`
	Status            string         `json:"status" example:"COMPLETED"`
	ReferenceNumber   string         `json:"reference_number,omitempty" example:"FT26241000123"`
	ReceivedBy        *string        `json:"received_by,omitempty" example:"550e8400-e29b-41d4-a716-446655440005"`
	PaidAt            *time.Time     `json:"paid_at,omitempty"`
	FailureReason     string         `json:"failure_reason,omitempty" example:""`
	Details           map[string]any `json:"details,omitempty"`
	OriginalPaymentID *string        `json:"original_payment_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440031"`
	RefundReason      string         `json:"refund_reason,omitempty" example:""`
	ApprovedBy        *string        `json:"approved_by,omitempty" example:"550e8400-e29b-41d4-a716-446655440006"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Version           int            `json:"version" example:"1"`
}

// RecordPaymentResponse represents the outcome of recording a payment
// @Description Payment recording response, including any advance credit split off
type RecordPaymentResponse struct {
	Payment        PaymentResponse  `json:"payment"`
	AdvancePayment *PaymentResponse `json:"advance_payment,omitempty"`
	Invoice        *InvoiceResponse `json:"invoice,omitempty"`
}

// Record godoc
// @Summary      Record a payment
// @Description  Record a received payment, optionally applying it to an invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        request body RecordPaymentRequest true "Payment recording request"
// @Success      201 {object} dto.Response{data=RecordPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.BadRequest(c, "Invalid booking ID format")
		return
	}

	appReq := billingapp.RecordPaymentRequest{
		PropertyID:      propertyID,
		BookingID:       bookingID,
		Kind:            billing.PaymentKind(req.Kind),
		Method:          billing.PaymentMethod(req.Method),
		Amount:          toDecimal(req.Amount),
		Currency:        valueobject.Currency(req.Currency),
		ReferenceNumber: req.ReferenceNumber,
		Details:         req.Details,
		AllowAdvance:    req.AllowAdvance,
	}

	if req.InvoiceID != nil && *req.InvoiceID != "" {
		invoiceID, err := uuid.Parse(*req.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID format")
			return
		}
		appReq.InvoiceID = &invoiceID
	}

	if userID, err := getUserID(c); err == nil {
		appReq.ReceivedBy = &userID
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toRecordPaymentResponse(result))
}

// Refund godoc
// @Summary      Refund a payment
// @Description  Record a refund against a completed payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Original payment ID" format(uuid)
// @Param        request body RecordRefundRequest true "Refund request"
// @Success      201 {object} dto.Response{data=PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req RecordRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	approvedBy, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Refunds require an authenticated approver")
		return
	}

	refund, err := h.paymentService.RecordRefund(c.Request.Context(), billingapp.RecordRefundRequest{
		PropertyID:        propertyID,
		OriginalPaymentID: paymentID,
		Amount:            toDecimal(req.Amount),
		Reason:            req.Reason,
		ApprovedBy:        approvedBy,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(refund))
}

// GetByID godoc
// @Summary      Get payment by ID
// @Description  Retrieve a payment by its ID
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), propertyID, paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// List godoc
// @Summary      List payments
// @Description  Retrieve a paginated list of payments with optional filtering
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        booking_id query string false "Booking ID" format(uuid)
// @Param        invoice_id query string false "Invoice ID" format(uuid)
// @Param        kind query string false "Payment kind" Enums(DEPOSIT, PARTIAL, FINAL, REFUND)
// @Param        method query string false "Payment method" Enums(CASH, BANK_TRANSFER, CREDIT_CARD, QR_TRANSFER)
// @Param        status query string false "Payment status" Enums(PENDING, COMPLETED, FAILED, REFUNDED)
// @Param        from_date query string false "Creation date range start (ISO 8601)" format(date-time)
// @Param        to_date query string false "Creation date range end (ISO 8601)" format(date-time)
// @Param        search query string false "Search term (payment number, reference)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var query PaymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), propertyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]PaymentResponse, len(payments))
	for i, payment := range payments {
		responses[i] = toPaymentResponse(payment)
	}

	h.Success(c, responses)
}

// toFilter converts the query parameters to a domain payment filter
func (q PaymentListQuery) toFilter() (billing.PaymentFilter, error) {
	filter := billing.PaymentFilter{}
	filter.Filter = parseBaseFilter(q.Page, q.PageSize, q.OrderBy, q.OrderDir, q.Search)

	if q.BookingID != "" {
		bookingID, err := uuid.Parse(q.BookingID)
		if err != nil {
			return filter, errInvalidQueryUUID("booking_id")
		}
		filter.BookingID = &bookingID
	}
	if q.InvoiceID != "" {
		invoiceID, err := uuid.Parse(q.InvoiceID)
		if err != nil {
			return filter, errInvalidQueryUUID("invoice_id")
		}
		filter.InvoiceID = &invoiceID
	}
	if q.Kind != "" {
		kind := billing.PaymentKind(q.Kind)
		filter.Kind = &kind
	}
	if q.Method != "" {
		method := billing.PaymentMethod(q.Method)
		filter.Method = &method
	}
	if q.Status != "" {
		status := billing.PaymentStatus(q.Status)
		filter.Status = &status
	}

	var err error
	if filter.FromDate, err = parseTimePtr(q.FromDate, "from_date"); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseTimePtr(q.ToDate, "to_date"); err != nil {
		return filter, err
	}

	return filter, nil
}

// toPaymentResponse converts a domain payment to the handler response
func toPaymentResponse(payment *billing.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              payment.ID.String(),
		PropertyID:      payment.PropertyID.String(),
		PaymentNumber:   payment.PaymentNumber,
		BookingID:       payment.BookingID.String(),
		Kind:            string(payment.Kind),
		Method:          string(payment.Method),
		Amount:          payment.Amount.InexactFloat64(),
		Currency:        string(payment.Currency),
		Status:          string(payment.Status),
		ReferenceNumber: payment.ReferenceNumber,
		PaidAt:          payment.PaidAt,
		FailureReason:   payment.FailureReason,
		Details:         payment.Details,
		RefundReason:    payment.RefundReason,
		CreatedAt:       payment.CreatedAt,
		UpdatedAt:       payment.UpdatedAt,
		Version:         payment.Version,
	}

	if payment.InvoiceID != nil {
		invoiceID := payment.InvoiceID.String()
		resp.InvoiceID = &invoiceID
	}
	if payment.ReceivedBy != nil {
		receivedBy := payment.ReceivedBy.String()
		resp.ReceivedBy = &receivedBy
	}
	if payment.OriginalPaymentID != nil {
		originalID := payment.OriginalPaymentID.String()
		resp.OriginalPaymentID = &originalID
	}
	if payment.ApprovedBy != nil {
		approvedBy := payment.ApprovedBy.String()
		resp.ApprovedBy = &approvedBy
	}

	return resp
}

// toRecordPaymentResponse converts a payment recording result to the handler response
func toRecordPaymentResponse(result *billingapp.RecordPaymentResult) RecordPaymentResponse {
	resp := RecordPaymentResponse{
		Payment: toPaymentResponse(result.Payment),
	}
	if result.AdvancePayment != nil {
		advance := toPaymentResponse(result.AdvancePayment)
		resp.AdvancePayment = &advance
	}
	if result.Invoice != nil {
		invoice := toInvoiceResponse(result.Invoice)
		resp.Invoice = &invoice
	}
	return resp
}
