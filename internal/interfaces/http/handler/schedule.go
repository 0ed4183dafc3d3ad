package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
)

// ScheduleHandler handles payment schedule API endpoints
type ScheduleHandler struct {
	BaseHandler
	scheduleService *billingapp.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleService *billingapp.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
	}
}

// GenerateAutoScheduleRequest represents a request to generate an automatic schedule
// @Description Request body for generating a deposit-plus-installments payment schedule
type GenerateAutoScheduleRequest struct {
	DepositPercent         float64 `json:"deposit_percent" binding:"gte=0,lte=100" example:"30"`
	Installments           int     `json:"installments" binding:"gte=0" example:"2"`
	FinalPaymentOnCheckout bool    `json:"final_payment_on_checkout" example:"true"`
}

// CustomScheduleItemInput represents one entry of a custom payment plan
// @Description Custom schedule entry; exactly one of days_from_booking,
// @Description days_before_check_in or on_checkout positions the due date
type CustomScheduleItemInput struct {
	Percent           float64 `json:"percent" binding:"required,gt=0,lte=100" example:"50"`
	Description       string  `json:"description" binding:"required,min=1,max=200" example:"Second installment"`
	DaysFromBooking   *int    `json:"days_from_booking" example:"7"`
	DaysBeforeCheckIn *int    `json:"days_before_check_in" example:"14"`
	OnCheckout        bool    `json:"on_checkout" example:"false"`
}

// GenerateCustomScheduleRequest represents a request to generate a custom schedule
// @Description Request body for generating a caller-defined payment schedule
type GenerateCustomScheduleRequest struct {
	Items []CustomScheduleItemInput `json:"items" binding:"required,min=1,dive"`
}

// LinkScheduleInvoiceRequest represents a request to link a schedule entry to an invoice
// @Description Request body for linking a schedule entry to an issued invoice
type LinkScheduleInvoiceRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440010"`
}

// ScheduleEntryResponse represents a schedule entry in API responses
// @Description Payment schedule entry response
type ScheduleEntryResponse struct {
	ID             string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440040"`
	PropertyID     string     `json:"property_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	BookingID      string     `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	ScheduleNumber int        `json:"schedule_number" example:"1"`
	Description    string     `json:"description" example:"Deposit"`
	Amount         float64    `json:"amount" example:"500000"`
	Currency       string     `json:"currency" example:"VND"`
	DueDate        time.Time  `json:"due_date"`
	Status         string     `json:"status" example:"SCHEDULED"`
	InvoiceID      *string    `json:"invoice_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440010"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int        `json:"version" example:"1"`
}

// GenerateAuto godoc
// @Summary      Generate an automatic payment schedule
// @Description  Generate a deposit, evenly split installments and an optional checkout entry for a booking
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Param        request body GenerateAutoScheduleRequest true "Automatic schedule request"
// @Success      201 {object} dto.Response{data=[]ScheduleEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/schedule/auto [post]
func (h *ScheduleHandler) GenerateAuto(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid booking ID format")
		return
	}

	var req GenerateAutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, err := h.scheduleService.GenerateAuto(c.Request.Context(), bookingID, billing.AutoScheduleConfig{
		DepositPercent:         toDecimal(req.DepositPercent),
		Installments:           req.Installments,
		FinalPaymentOnCheckout: req.FinalPaymentOnCheckout,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toScheduleEntryResponses(entries))
}

// GenerateCustom godoc
// @Summary      Generate a custom payment schedule
// @Description  Generate a payment schedule from caller-defined percentages; percentages must sum to 100
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Param        request body GenerateCustomScheduleRequest true "Custom schedule request"
// @Success      201 {object} dto.Response{data=[]ScheduleEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/schedule/custom [post]
func (h *ScheduleHandler) GenerateCustom(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid booking ID format")
		return
	}

	var req GenerateCustomScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]billing.CustomScheduleItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = billing.CustomScheduleItem{
			Percent:           toDecimal(item.Percent),
			Description:       item.Description,
			DaysFromBooking:   item.DaysFromBooking,
			DaysBeforeCheckIn: item.DaysBeforeCheckIn,
			OnCheckout:        item.OnCheckout,
		}
	}

	entries, err := h.scheduleService.GenerateCustom(c.Request.Context(), bookingID, items)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toScheduleEntryResponses(entries))
}

// Get godoc
// @Summary      Get the payment schedule for a booking
// @Description  Retrieve all schedule entries for a booking ordered by schedule number
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]ScheduleEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/schedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid booking ID format")
		return
	}

	entries, err := h.scheduleService.GetSchedule(c.Request.Context(), propertyID, bookingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toScheduleEntryResponses(entries))
}

// LinkInvoice godoc
// @Summary      Link a schedule entry to an invoice
// @Description  Attach an issued invoice to a scheduled entry, marking it invoiced
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Schedule entry ID" format(uuid)
// @Param        request body LinkScheduleInvoiceRequest true "Invoice link request"
// @Success      200 {object} dto.Response{data=ScheduleEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/schedule-entries/{id}/link-invoice [post]
func (h *ScheduleHandler) LinkInvoice(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule entry ID format")
		return
	}

	var req LinkScheduleInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	entry, err := h.scheduleService.LinkInvoice(c.Request.Context(), entryID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toScheduleEntryResponse(entry))
}

// MarkPaid godoc
// @Summary      Mark a schedule entry as paid
// @Description  Mark an invoiced schedule entry as settled
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Schedule entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=ScheduleEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/schedule-entries/{id}/mark-paid [post]
func (h *ScheduleHandler) MarkPaid(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule entry ID format")
		return
	}

	entry, err := h.scheduleService.MarkPaid(c.Request.Context(), entryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toScheduleEntryResponse(entry))
}

// CancelEntry godoc
// @Summary      Cancel a schedule entry
// @Description  Cancel an unpaid schedule entry
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Schedule entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=ScheduleEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/schedule-entries/{id}/cancel [post]
func (h *ScheduleHandler) CancelEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule entry ID format")
		return
	}

	entry, err := h.scheduleService.CancelEntry(c.Request.Context(), entryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toScheduleEntryResponse(entry))
}

// toScheduleEntryResponse converts a domain schedule entry to the handler response
func toScheduleEntryResponse(entry *billing.ScheduleEntry) ScheduleEntryResponse {
	resp := ScheduleEntryResponse{
		ID:             entry.ID.String(),
		PropertyID:     entry.PropertyID.String(),
		BookingID:      entry.BookingID.String(),
		ScheduleNumber: entry.ScheduleNumber,
		Description:    entry.Description,
		Amount:         entry.Amount.InexactFloat64(),
		Currency:       string(entry.Currency),
		DueDate:        entry.DueDate,
		Status:         string(entry.Status),
		PaidAt:         entry.PaidAt,
		CreatedAt:      entry.CreatedAt,
		UpdatedAt:      entry.UpdatedAt,
		Version:        entry.Version,
	}

	if entry.InvoiceID != nil {
		invoiceID := entry.InvoiceID.String()
		resp.InvoiceID = &invoiceID
	}

	return resp
}

// toScheduleEntryResponses converts domain schedule entries to handler responses
func toScheduleEntryResponses(entries []*billing.ScheduleEntry) []ScheduleEntryResponse {
	responses := make([]ScheduleEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = toScheduleEntryResponse(entry)
	}
	return responses
}
