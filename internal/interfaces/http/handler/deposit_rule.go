package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
)

// DepositRuleHandler handles deposit rule API endpoints
type DepositRuleHandler struct {
	BaseHandler
	ruleService *billingapp.DepositRuleService
}

// NewDepositRuleHandler creates a new DepositRuleHandler
func NewDepositRuleHandler(ruleService *billingapp.DepositRuleService) *DepositRuleHandler {
	return &DepositRuleHandler{
		ruleService: ruleService,
	}
}

// CreateDepositRuleRequest represents a request to create a deposit rule
// @Description Request body for creating a deposit rule
type CreateDepositRuleRequest struct {
	Name              string   `json:"name" binding:"required,min=1,max=200" example:"Peak season 50%"`
	CalculationType   string   `json:"calculation_type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT NIGHTS_BASED" example:"PERCENTAGE"`
	Value             float64  `json:"value" binding:"required,gt=0" example:"50"`
	Priority          int      `json:"priority" example:"10"`
	RoomTypeID        *string  `json:"room_type_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	MinStayNights     *int     `json:"min_stay_nights" example:"2"`
	MaxStayNights     *int     `json:"max_stay_nights" example:"14"`
	BookingWindowDays *int     `json:"booking_window_days" example:"90"`
	ValidFrom         *string  `json:"valid_from" example:"2026-06-01T00:00:00Z"`
	ValidTo           *string  `json:"valid_to" example:"2026-09-01T00:00:00Z"`
}

// UpdateDepositRuleRequest represents a request to update a deposit rule
// @Description Request body for updating a deposit rule; optional matching
// @Description bounds are replaced wholesale
type UpdateDepositRuleRequest struct {
	Name              *string  `json:"name" example:"Peak season 40%"`
	CalculationType   *string  `json:"calculation_type" example:"PERCENTAGE"`
	Value             *float64 `json:"value" example:"40"`
	Priority          *int     `json:"priority" example:"20"`
	RoomTypeID        *string  `json:"room_type_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	MinStayNights     *int     `json:"min_stay_nights" example:"2"`
	MaxStayNights     *int     `json:"max_stay_nights" example:"14"`
	BookingWindowDays *int     `json:"booking_window_days" example:"90"`
	ValidFrom         *string  `json:"valid_from" example:"2026-06-01T00:00:00Z"`
	ValidTo           *string  `json:"valid_to" example:"2026-09-01T00:00:00Z"`
}

// DepositRuleListQuery holds the query parameters for listing deposit rules
type DepositRuleListQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// DepositRuleResponse represents a deposit rule in API responses
// @Description Deposit rule response
type DepositRuleResponse struct {
	ID                string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440070"`
	PropertyID        string     `json:"property_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name              string     `json:"name" example:"Peak season 50%"`
	CalculationType   string     `json:"calculation_type" example:"PERCENTAGE"`
	Value             float64    `json:"value" example:"50"`
	Priority          int        `json:"priority" example:"10"`
	IsActive          bool       `json:"is_active" example:"true"`
	RoomTypeID        *string    `json:"room_type_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440002"`
	MinStayNights     *int       `json:"min_stay_nights,omitempty" example:"2"`
	MaxStayNights     *int       `json:"max_stay_nights,omitempty" example:"14"`
	BookingWindowDays *int       `json:"booking_window_days,omitempty" example:"90"`
	ValidFrom         *time.Time `json:"valid_from,omitempty"`
	ValidTo           *time.Time `json:"valid_to,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int        `json:"version" example:"1"`
}

// Create godoc
// @Summary      Create a deposit rule
// @Description  Create a new deposit rule for the property
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        request body CreateDepositRuleRequest true "Deposit rule creation request"
// @Success      201 {object} dto.Response{data=DepositRuleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules [post]
func (h *DepositRuleHandler) Create(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var req CreateDepositRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := billingapp.CreateDepositRuleRequest{
		PropertyID:        propertyID,
		Name:              req.Name,
		CalculationType:   billing.DepositCalculationType(req.CalculationType),
		Value:             toDecimal(req.Value),
		Priority:          req.Priority,
		MinStayNights:     req.MinStayNights,
		MaxStayNights:     req.MaxStayNights,
		BookingWindowDays: req.BookingWindowDays,
	}

	if req.RoomTypeID != nil && *req.RoomTypeID != "" {
		roomTypeID, err := uuid.Parse(*req.RoomTypeID)
		if err != nil {
			h.BadRequest(c, "Invalid room type ID format")
			return
		}
		appReq.RoomTypeID = &roomTypeID
	}

	if appReq.ValidFrom, err = parseOptionalTime(req.ValidFrom, "valid_from"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if appReq.ValidTo, err = parseOptionalTime(req.ValidTo, "valid_to"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil {
		appReq.CreatedBy = &userID
	}

	rule, err := h.ruleService.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toDepositRuleResponse(rule))
}

// Update godoc
// @Summary      Update a deposit rule
// @Description  Update an existing deposit rule
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Deposit rule ID" format(uuid)
// @Param        request body UpdateDepositRuleRequest true "Deposit rule update request"
// @Success      200 {object} dto.Response{data=DepositRuleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules/{id} [put]
func (h *DepositRuleHandler) Update(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit rule ID format")
		return
	}

	var req UpdateDepositRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := billingapp.UpdateDepositRuleRequest{
		Name:              req.Name,
		Priority:          req.Priority,
		MinStayNights:     req.MinStayNights,
		MaxStayNights:     req.MaxStayNights,
		BookingWindowDays: req.BookingWindowDays,
	}

	if req.CalculationType != nil {
		calcType := billing.DepositCalculationType(*req.CalculationType)
		appReq.CalculationType = &calcType
	}
	if req.Value != nil {
		appReq.Value = toDecimalPtr(*req.Value)
	}
	if req.RoomTypeID != nil && *req.RoomTypeID != "" {
		roomTypeID, err := uuid.Parse(*req.RoomTypeID)
		if err != nil {
			h.BadRequest(c, "Invalid room type ID format")
			return
		}
		appReq.RoomTypeID = &roomTypeID
	}

	if appReq.ValidFrom, err = parseOptionalTime(req.ValidFrom, "valid_from"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if appReq.ValidTo, err = parseOptionalTime(req.ValidTo, "valid_to"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rule, err := h.ruleService.Update(c.Request.Context(), propertyID, ruleID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toDepositRuleResponse(rule))
}

// GetByID godoc
// @Summary      Get deposit rule by ID
// @Description  Retrieve a deposit rule by its ID
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Deposit rule ID" format(uuid)
// @Success      200 {object} dto.Response{data=DepositRuleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules/{id} [get]
func (h *DepositRuleHandler) GetByID(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit rule ID format")
		return
	}

	rule, err := h.ruleService.Get(c.Request.Context(), propertyID, ruleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toDepositRuleResponse(rule))
}

// List godoc
// @Summary      List deposit rules
// @Description  Retrieve all deposit rules for the property
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        search query string false "Search term (rule name)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]DepositRuleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules [get]
func (h *DepositRuleHandler) List(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	var query DepositRuleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := parseBaseFilter(query.Page, query.PageSize, query.OrderBy, query.OrderDir, query.Search)

	rules, err := h.ruleService.List(c.Request.Context(), propertyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]DepositRuleResponse, len(rules))
	for i, rule := range rules {
		responses[i] = toDepositRuleResponse(rule)
	}

	h.Success(c, responses)
}

// Activate godoc
// @Summary      Activate a deposit rule
// @Description  Enable a deposit rule so it participates in rule evaluation
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Deposit rule ID" format(uuid)
// @Success      200 {object} dto.Response{data=DepositRuleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules/{id}/activate [post]
func (h *DepositRuleHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// @Summary      Deactivate a deposit rule
// @Description  Disable a deposit rule without deleting it
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Deposit rule ID" format(uuid)
// @Success      200 {object} dto.Response{data=DepositRuleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules/{id}/deactivate [post]
func (h *DepositRuleHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *DepositRuleHandler) setActive(c *gin.Context, active bool) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit rule ID format")
		return
	}

	var rule *billing.DepositRule
	if active {
		rule, err = h.ruleService.Activate(c.Request.Context(), propertyID, ruleID)
	} else {
		rule, err = h.ruleService.Deactivate(c.Request.Context(), propertyID, ruleID)
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toDepositRuleResponse(rule))
}

// Delete godoc
// @Summary      Delete a deposit rule
// @Description  Soft delete a deposit rule
// @Tags         deposit-rules
// @Accept       json
// @Produce      json
// @Param        X-Property-ID header string false "Property ID (optional when present in JWT)"
// @Param        id path string true "Deposit rule ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/deposit-rules/{id} [delete]
func (h *DepositRuleHandler) Delete(c *gin.Context) {
	propertyID, err := getPropertyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit rule ID format")
		return
	}

	if err := h.ruleService.Delete(c.Request.Context(), propertyID, ruleID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// parseOptionalTime parses an optional RFC 3339 body value
func parseOptionalTime(value *string, name string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	return parseTimePtr(*value, name)
}

// toDepositRuleResponse converts a domain deposit rule to the handler response
func toDepositRuleResponse(rule *billing.DepositRule) DepositRuleResponse {
	resp := DepositRuleResponse{
		ID:                rule.ID.String(),
		PropertyID:        rule.PropertyID.String(),
		Name:              rule.Name,
		CalculationType:   string(rule.CalculationType),
		Value:             rule.Value.InexactFloat64(),
		Priority:          rule.Priority,
		IsActive:          rule.IsActive,
		MinStayNights:     rule.MinStayNights,
		MaxStayNights:     rule.MaxStayNights,
		BookingWindowDays: rule.BookingWindowDays,
		ValidFrom:         rule.ValidFrom,
		ValidTo:           rule.ValidTo,
		CreatedAt:         rule.CreatedAt,
		UpdatedAt:         rule.UpdatedAt,
		Version:           rule.Version,
	}

	if rule.RoomTypeID != nil {
		roomTypeID := rule.RoomTypeID.String()
		resp.RoomTypeID = &roomTypeID
	}

	return resp
}
