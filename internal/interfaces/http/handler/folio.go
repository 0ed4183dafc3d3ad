package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
)

// FolioHandler handles folio-related API endpoints
type FolioHandler struct {
	BaseHandler
	folioService *billingapp.FolioService
}

// NewFolioHandler creates a new FolioHandler
func NewFolioHandler(folioService *billingapp.FolioService) *FolioHandler {
	return &FolioHandler{
		folioService: folioService,
	}
}

// FolioResponse represents a folio in API responses
// @Description Folio response
type FolioResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440050"`
	PropertyID  string     `json:"property_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	FolioNumber string     `json:"folio_number" example:"FOL-2026-00001"`
	BookingID   string     `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Status      string     `json:"status" example:"OPEN"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	ClosedBy    *string    `json:"closed_by,omitempty" example:"550e8400-e29b-41d4-a716-446655440005"`
	ReopenedAt  *time.Time `json:"reopened_at,omitempty"`
	ReopenedBy  *string    `json:"reopened_by,omitempty" example:"550e8400-e29b-41d4-a716-446655440005"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"version" example:"1"`
}

// FolioStatementResponse represents a folio statement in API responses
// @Description Aggregated folio statement with invoices, payments and schedule
type FolioStatementResponse struct {
	Folio        FolioResponse           `json:"folio"`
	BookingID    string                  `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Invoices     []InvoiceResponse       `json:"invoices"`
	Payments     []PaymentResponse       `json:"payments"`
	Schedule     []ScheduleEntryResponse `json:"schedule"`
	Currency     string                  `json:"currency" example:"VND"`
	TotalCharges float64                 `json:"total_charges" example:"2712000"`
	TotalCredits float64                 `json:"total_credits" example:"500000"`
	Balance      float64                 `json:"balance" example:"2212000"`
}

// Open godoc
// @Summary      Open a folio
// @Description  Open the folio for a booking; a booking has at most one folio
// @Tags         folios
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Success      201 {object} dto.Response{data=FolioResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/folio [post]
func (h *FolioHandler) Open(c *gin.Context) {
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

	folio, err := h.folioService.OpenFolio(c.Request.Context(), propertyID, bookingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toFolioResponse(folio))
}

// Get godoc
// @Summary      Get the folio statement for a booking
// @Description  Retrieve the folio with its invoices, payments, schedule and running balance
// @Tags         folios
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Success      200 {object} dto.Response{data=FolioStatementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/folio [get]
func (h *FolioHandler) Get(c *gin.Context) {
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

	statement, err := h.folioService.GetFolio(c.Request.Context(), propertyID, bookingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toFolioStatementResponse(statement))
}

// Close godoc
// @Summary      Close a folio
// @Description  Close the folio at checkout, freezing it against new invoices and payments
// @Tags         folios
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Success      200 {object} dto.Response{data=FolioResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/folio/close [post]
func (h *FolioHandler) Close(c *gin.Context) {
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

	closedBy, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Closing a folio requires an authenticated user")
		return
	}

	folio, err := h.folioService.CloseFolio(c.Request.Context(), propertyID, bookingID, closedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toFolioResponse(folio))
}

// Reopen godoc
// @Summary      Reopen a folio
// @Description  Reopen a closed folio for post-checkout corrections
// @Tags         folios
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Booking ID" format(uuid)
// @Success      200 {object} dto.Response{data=FolioResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/bookings/{id}/folio/reopen [post]
func (h *FolioHandler) Reopen(c *gin.Context) {
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

	reopenedBy, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Reopening a folio requires an authenticated user")
		return
	}

	folio, err := h.folioService.ReopenFolio(c.Request.Context(), propertyID, bookingID, reopenedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toFolioResponse(folio))
}

// toFolioResponse converts a domain folio to the handler response
func toFolioResponse(folio *billing.Folio) FolioResponse {
	resp := FolioResponse{
		ID:          folio.ID.String(),
		PropertyID:  folio.PropertyID.String(),
		FolioNumber: folio.FolioNumber,
		BookingID:   folio.BookingID.String(),
		Status:      string(folio.Status),
		ClosedAt:    folio.ClosedAt,
		ReopenedAt:  folio.ReopenedAt,
		CreatedAt:   folio.CreatedAt,
		UpdatedAt:   folio.UpdatedAt,
		Version:     folio.Version,
	}

	if folio.ClosedBy != nil {
		closedBy := folio.ClosedBy.String()
		resp.ClosedBy = &closedBy
	}
	if folio.ReopenedBy != nil {
		reopenedBy := folio.ReopenedBy.String()
		resp.ReopenedBy = &reopenedBy
	}

	return resp
}

// toFolioStatementResponse converts a domain folio statement to the handler response
func toFolioStatementResponse(statement *billing.FolioStatement) FolioStatementResponse {
	invoices := make([]InvoiceResponse, len(statement.Invoices))
	for i, invoice := range statement.Invoices {
		invoices[i] = toInvoiceResponse(invoice)
	}

	payments := make([]PaymentResponse, len(statement.Payments))
	for i, payment := range statement.Payments {
		payments[i] = toPaymentResponse(payment)
	}

	return FolioStatementResponse{
		Folio:        toFolioResponse(statement.Folio),
		BookingID:    statement.BookingID.String(),
		Invoices:     invoices,
		Payments:     payments,
		Schedule:     toScheduleEntryResponses(statement.Schedule),
		Currency:     string(statement.Balance.Currency()),
		TotalCharges: statement.TotalCharges.Amount().InexactFloat64(),
		TotalCredits: statement.TotalCredits.Amount().InexactFloat64(),
		Balance:      statement.Balance.Amount().InexactFloat64(),
	}
}
