package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// CreateDepositInvoiceRequest represents a request to create a deposit invoice
// @Description Request body for creating a deposit invoice for a booking
type CreateDepositInvoiceRequest struct {
	BookingID      string   `json:"booking_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	OverrideAmount *float64 `json:"override_amount" example:"500000"`
	DueDate        *string  `json:"due_date" example:"2026-09-01T00:00:00Z"`
}

// CreateInvoiceItemInput represents a line item in an invoice creation request
// @Description Invoice line item for creation
type CreateInvoiceItemInput struct {
	Type            string   `json:"type" binding:"required,oneof=ROOM SERVICE PRODUCT FEE CUSTOM" example:"ROOM"`
	ReferenceID     *string  `json:"reference_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Description     string   `json:"description" binding:"required,min=1,max=500" example:"Deluxe Double, 2 nights"`
	Quantity        float64  `json:"quantity" binding:"required,gt=0" example:"2"`
	UnitPrice       float64  `json:"unit_price" binding:"required,gt=0" example:"1200000"`
	DiscountPercent *float64 `json:"discount_percent" example:"10"`
	DiscountAmount  float64  `json:"discount_amount" example:"0"`
	TaxRate         float64  `json:"tax_rate" example:"8"`
}

// CreateInvoiceRequest represents a request to create an invoice from line items
// @Description Request body for creating a partial, final or additional invoice
type CreateInvoiceRequest struct {
	BookingID         string                   `json:"booking_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Kind              string                   `json:"kind" binding:"required,oneof=PARTIAL FINAL ADDITIONAL" example:"FINAL"`
	Currency          string                   `json:"currency" example:"VND"`
	Items             []CreateInvoiceItemInput `json:"items" binding:"required,min=1,dive"`
	ServiceChargeRate float64                  `json:"service_charge_rate" example:"5"`
	TaxRate           float64                  `json:"tax_rate" example:"8"`
	DiscountAmount    float64                  `json:"discount_amount" example:"0"`
	DueDate           *string                  `json:"due_date" example:"2026-09-01T00:00:00Z"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
// @Description Request body for cancelling an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Booking cancelled by guest"`
}

// InvoiceListQuery holds the query parameters for listing invoices
type InvoiceListQuery struct {
	BookingID  string `form:"booking_id"`
	CustomerID string `form:"customer_id"`
	Kind       string `form:"kind"`
	Status     string `form:"status"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	DueFrom    string `form:"due_from"`
	DueTo      string `form:"due_to"`
	Overdue    *bool  `form:"overdue"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir"`
}

// InvoiceItemResponse represents an invoice line item in API responses
// @Description Invoice line item response
type InvoiceItemResponse struct {
	ID              string   `json:"id" example:"550e8400-e29b-41d4-a716-446655440020"`
	Type            string   `json:"type" example:"ROOM"`
	ReferenceID     *string  `json:"reference_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440002"`
	Description     string   `json:"description" example:"Deluxe Double, 2 nights"`
	Quantity        float64  `json:"quantity" example:"2"`
	UnitPrice       float64  `json:"unit_price" example:"1200000"`
	DiscountPercent *float64 `json:"discount_percent,omitempty" example:"10"`
	DiscountAmount  float64  `json:"discount_amount" example:"0"`
	TaxRate         float64  `json:"tax_rate" example:"8"`
	LineTotal       float64  `json:"line_total" example:"2160000"`
}

// InvoiceResponse represents an invoice in API responses
// @Description Invoice response
type InvoiceResponse struct {
	ID             string                `json:"id" example:"550e8400-e29b-41d4-a716-446655440010"`
	PropertyID     string                `json:"property_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	InvoiceNumber  string                `json:"invoice_number" example:"INV-2026-00001"`
	BookingID      string                `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	CustomerID     *string               `json:"customer_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440003"`
	Kind           string                `json:"kind" example:"DEPOSIT"`
	Currency       string                `json:"currency" example:"VND"`
	Subtotal       float64               `json:"subtotal" example:"2400000"`
	ServiceCharge  float64               `json:"service_charge" example:"120000"`
	TaxAmount      float64               `json:"tax_amount" example:"192000"`
	DiscountAmount float64               `json:"discount_amount" example:"0"`
	TotalAmount    float64               `json:"total_amount" example:"2712000"`
	PaidAmount     float64               `json:"paid_amount" example:"0"`
	BalanceDue     float64               `json:"balance_due" example:"2712000"`
	Status         string                `json:"status" example:"PENDING"`
	InvoiceDate    time.Time             `json:"invoice_date"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	PaidAt         *time.Time            `json:"paid_at,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason   string                `json:"cancel_reason,omitempty" example:""`
	RefundedAt     *time.Time            `json:"refunded_at,omitempty"`
	Items          []InvoiceItemResponse `json:"items"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Version        int                   `json:"version" example:"1"`
}

// CreateDeposit godoc
// @Summary      Create a deposit invoice
// @Description  Evaluate the property's deposit rules for a booking and issue a deposit invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        request body CreateDepositInvoiceRequest true "Deposit invoice creation request"
// @Success      201 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices/deposit [post]
func (h *InvoiceHandler) CreateDeposit(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var req CreateDepositInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.BadRequest(c, "Invalid booking ID format")
		return
	}

	appReq := billingapp.CreateDepositInvoiceRequest{
		PropertyID: propertyID,
		BookingID:  bookingID,
	}

	if req.OverrideAmount != nil {
		amount := decimal.NewFromFloat(*req.OverrideAmount)
		appReq.OverrideAmount = &amount
	}

	if req.DueDate != nil {
		dueDate, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due date format, expected RFC 3339")
			return
		}
		appReq.DueDate = &dueDate
	}

	if userID, err := getUserID(c); err == nil {
		appReq.CreatedBy = &userID
	}

	invoice, err := h.invoiceService.CreateDepositInvoice(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// Create godoc
// @Summary      Create an invoice from line items
// @Description  Create a partial, final or additional invoice with explicit line items
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        request body CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.BadRequest(c, "Invalid booking ID format")
		return
	}

	appReq := billingapp.CreateInvoiceRequest{
		PropertyID:        propertyID,
		BookingID:         bookingID,
		Kind:              billing.InvoiceKind(req.Kind),
		Currency:          valueobject.Currency(req.Currency),
		ServiceChargeRate: decimal.NewFromFloat(req.ServiceChargeRate),
		TaxRate:           decimal.NewFromFloat(req.TaxRate),
		DiscountAmount:    decimal.NewFromFloat(req.DiscountAmount),
	}

	for _, item := range req.Items {
		input := billingapp.InvoiceItemInput{
			Type:           billing.InvoiceItemType(item.Type),
			Description:    item.Description,
			Quantity:       decimal.NewFromFloat(item.Quantity),
			UnitPrice:      decimal.NewFromFloat(item.UnitPrice),
			DiscountAmount: decimal.NewFromFloat(item.DiscountAmount),
			TaxRate:        decimal.NewFromFloat(item.TaxRate),
		}
		if item.ReferenceID != nil && *item.ReferenceID != "" {
			referenceID, err := uuid.Parse(*item.ReferenceID)
			if err != nil {
				h.BadRequest(c, "Invalid reference ID format")
				return
			}
			input.ReferenceID = &referenceID
		}
		if item.DiscountPercent != nil {
			input.DiscountPercent = toDecimalPtr(*item.DiscountPercent)
		}
		appReq.Items = append(appReq.Items, input)
	}

	if req.DueDate != nil {
		dueDate, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due date format, expected RFC 3339")
			return
		}
		appReq.DueDate = &dueDate
	}

	if userID, err := getUserID(c); err == nil {
		appReq.CreatedBy = &userID
	}

	invoice, err := h.invoiceService.CreatePartialInvoice(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// GetByID godoc
// @Summary      Get invoice by ID
// @Description  Retrieve an invoice by its ID
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
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

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), propertyID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// List godoc
// @Summary      List invoices
// @Description  Retrieve a paginated list of invoices with optional filtering
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        booking_id query string false "Booking ID" format(uuid)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        kind query string false "Invoice kind" Enums(DEPOSIT, PARTIAL, FINAL, ADDITIONAL)
// @Param        status query string false "Invoice status" Enums(PENDING, PARTIAL, PAID, CANCELLED, REFUNDED)
// @Param        from_date query string false "Invoice date range start (ISO 8601)" format(date-time)
// @Param        to_date query string false "Invoice date range end (ISO 8601)" format(date-time)
// @Param        due_from query string false "Due date range start (ISO 8601)" format(date-time)
// @Param        due_to query string false "Due date range end (ISO 8601)" format(date-time)
// @Param        overdue query bool false "Only overdue invoices"
// @Param        search query string false "Search term (invoice number)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]InvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var query InvoiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), propertyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i, invoice := range invoices {
		responses[i] = toInvoiceResponse(invoice)
	}

	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// Cancel godoc
// @Summary      Cancel an invoice
// @Description  Cancel an unpaid invoice (PENDING or PARTIAL status)
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body CancelInvoiceRequest true "Invoice cancellation request"
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
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

	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), propertyID, invoiceID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// toFilter converts the query parameters to a domain invoice filter
func (q InvoiceListQuery) toFilter() (billing.InvoiceFilter, error) {
	filter := billing.InvoiceFilter{}
	filter.Filter = parseBaseFilter(q.Page, q.PageSize, q.OrderBy, q.OrderDir, q.Search)

	if q.BookingID != "" {
		bookingID, err := uuid.Parse(q.BookingID)
		if err != nil {
			return filter, errInvalidQueryUUID("booking_id")
		}
		filter.BookingID = &bookingID
	}
	if q.CustomerID != "" {
		customerID, err := uuid.Parse(q.CustomerID)
		if err != nil {
			return filter, errInvalidQueryUUID("customer_id")
		}
		filter.CustomerID = &customerID
	}
	if q.Kind != "" {
		kind := billing.InvoiceKind(q.Kind)
		filter.Kind = &kind
	}
	if q.Status != "" {
		status := billing.InvoiceStatus(q.Status)
		filter.Status = &status
	}

	var err error
	if filter.FromDate, err = parseTimePtr(q.FromDate, "from_date"); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseTimePtr(q.ToDate, "to_date"); err != nil {
		return filter, err
	}
	if filter.DueFrom, err = parseTimePtr(q.DueFrom, "due_from"); err != nil {
		return filter, err
	}
	if filter.DueTo, err = parseTimePtr(q.DueTo, "due_to"); err != nil {
		return filter, err
	}
	filter.Overdue = q.Overdue

	return filter, nil
}

// toInvoiceResponse converts a domain invoice to the handler response
func toInvoiceResponse(invoice *billing.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, len(invoice.Items))
	for i, item := range invoice.Items {
		itemResp := InvoiceItemResponse{
			ID:             item.ID.String(),
			Type:           string(item.Type),
			Description:    item.Description,
			Quantity:       item.Quantity.InexactFloat64(),
			UnitPrice:      item.UnitPrice.InexactFloat64(),
			DiscountAmount: item.DiscountAmount.InexactFloat64(),
			TaxRate:        item.TaxRate.InexactFloat64(),
			LineTotal:      item.LineTotal.InexactFloat64(),
		}
		if item.ReferenceID != nil {
			referenceID := item.ReferenceID.String()
			itemResp.ReferenceID = &referenceID
		}
		if item.DiscountPercent != nil {
			percent := item.DiscountPercent.InexactFloat64()
			itemResp.DiscountPercent = &percent
		}
		items[i] = itemResp
	}

	resp := InvoiceResponse{
		ID:             invoice.ID.String(),
		PropertyID:     invoice.PropertyID.String(),
		InvoiceNumber:  invoice.InvoiceNumber,
		BookingID:      invoice.BookingID.String(),
		Kind:           string(invoice.Kind),
		Currency:       string(invoice.Currency),
		Subtotal:       invoice.Subtotal.InexactFloat64(),
		ServiceCharge:  invoice.ServiceCharge.InexactFloat64(),
		TaxAmount:      invoice.TaxAmount.InexactFloat64(),
		DiscountAmount: invoice.DiscountAmount.InexactFloat64(),
		TotalAmount:    invoice.TotalAmount.InexactFloat64(),
		PaidAmount:     invoice.PaidAmount.InexactFloat64(),
		BalanceDue:     invoice.BalanceDue().Amount().InexactFloat64(),
		Status:         string(invoice.Status),
		InvoiceDate:    invoice.InvoiceDate,
		DueDate:        invoice.DueDate,
		PaidAt:         invoice.PaidAt,
		CancelledAt:    invoice.CancelledAt,
		CancelReason:   invoice.CancelReason,
		RefundedAt:     invoice.RefundedAt,
		Items:          items,
		CreatedAt:      invoice.CreatedAt,
		UpdatedAt:      invoice.UpdatedAt,
		Version:        invoice.Version,
	}

	if invoice.CustomerID != nil {
		customerID := invoice.CustomerID.String()
		resp.CustomerID = &customerID
	}

	return resp
}
