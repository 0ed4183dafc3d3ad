package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositRuleService manages the deposit rule catalog of a property
type DepositRuleService struct {
	ruleRepo billing.DepositRuleRepository
	logger   *zap.Logger
}

// NewDepositRuleService creates a new DepositRuleService
func NewDepositRuleService(ruleRepo billing.DepositRuleRepository, logger *zap.Logger) *DepositRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepositRuleService{
		ruleRepo: ruleRepo,
		logger:   logger,
	}
}

// CreateDepositRuleRequest carries the inputs for deposit rule creation
type CreateDepositRuleRequest struct {
	PropertyID        uuid.UUID
	Name              string
	CalculationType   billing.DepositCalculationType
	Value             decimal.Decimal
	Priority          int
	RoomTypeID        *uuid.UUID
	MinStayNights     *int
	MaxStayNights     *int
	BookingWindowDays *int
	ValidFrom         *time.Time
	ValidTo           *time.Time
	CreatedBy         *uuid.UUID
}

// UpdateDepositRuleRequest carries the updatable fields of a deposit rule.
// Nil pointers leave the current value untouched; the optional matching
// bounds are replaced wholesale since clearing one is a legitimate edit.
type UpdateDepositRuleRequest struct {
	Name              *string
	CalculationType   *billing.DepositCalculationType
	Value             *decimal.Decimal
	Priority          *int
	RoomTypeID        *uuid.UUID
	MinStayNights     *int
	MaxStayNights     *int
	BookingWindowDays *int
	ValidFrom         *time.Time
	ValidTo           *time.Time
}

// Create adds a new deposit rule for a property
func (s *DepositRuleService) Create(ctx context.Context, req CreateDepositRuleRequest) (*billing.DepositRule, error) {
	rule, err := billing.NewDepositRule(req.PropertyID, req.Name, req.CalculationType, req.Value, req.Priority)
	if err != nil {
		return nil, err
	}

	rule.RoomTypeID = req.RoomTypeID
	rule.MinStayNights = req.MinStayNights
	rule.MaxStayNights = req.MaxStayNights
	rule.BookingWindowDays = req.BookingWindowDays
	rule.ValidFrom = req.ValidFrom
	rule.ValidTo = req.ValidTo
	rule.CreatedBy = req.CreatedBy

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("name", rule.Name),
		zap.String("calculation_type", string(rule.CalculationType)))

	return rule, nil
}

// Update modifies an existing deposit rule
func (s *DepositRuleService) Update(ctx context.Context, propertyID, ruleID uuid.UUID, req UpdateDepositRuleRequest) (*billing.DepositRule, error) {
	rule, err := s.findForProperty(ctx, propertyID, ruleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, shared.NewDomainError("INVALID_RULE_NAME", "Deposit rule name cannot be empty")
		}
		rule.Name = *req.Name
	}
	if req.CalculationType != nil {
		if !req.CalculationType.IsValid() {
			return nil, shared.NewDomainError("INVALID_CALCULATION_TYPE", "Deposit calculation type is not valid")
		}
		rule.CalculationType = *req.CalculationType
	}
	if req.Value != nil {
		if req.Value.IsNegative() || req.Value.IsZero() {
			return nil, billing.ErrInvalidAmount
		}
		rule.Value = *req.Value
	}
	if rule.CalculationType == billing.DepositCalcPercentage && rule.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, billing.ErrInvalidAmount
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}

	rule.RoomTypeID = req.RoomTypeID
	rule.MinStayNights = req.MinStayNights
	rule.MaxStayNights = req.MaxStayNights
	rule.BookingWindowDays = req.BookingWindowDays
	rule.ValidFrom = req.ValidFrom
	rule.ValidTo = req.ValidTo

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit rule updated",
		zap.String("rule_id", rule.ID.String()),
		zap.String("name", rule.Name))

	return rule, nil
}

// Activate enables a deposit rule
func (s *DepositRuleService) Activate(ctx context.Context, propertyID, ruleID uuid.UUID) (*billing.DepositRule, error) {
	return s.setActive(ctx, propertyID, ruleID, true)
}

// Deactivate disables a deposit rule without deleting it
func (s *DepositRuleService) Deactivate(ctx context.Context, propertyID, ruleID uuid.UUID) (*billing.DepositRule, error) {
	return s.setActive(ctx, propertyID, ruleID, false)
}

func (s *DepositRuleService) setActive(ctx context.Context, propertyID, ruleID uuid.UUID, active bool) (*billing.DepositRule, error) {
	rule, err := s.findForProperty(ctx, propertyID, ruleID)
	if err != nil {
		return nil, err
	}

	if active {
		rule.Activate()
	} else {
		rule.Deactivate()
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit rule activation changed",
		zap.String("rule_id", rule.ID.String()),
		zap.Bool("is_active", rule.IsActive))

	return rule, nil
}

// Delete soft deletes a deposit rule
func (s *DepositRuleService) Delete(ctx context.Context, propertyID, ruleID uuid.UUID) error {
	rule, err := s.findForProperty(ctx, propertyID, ruleID)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Delete(ctx, rule.ID); err != nil {
		return err
	}

	s.logger.Info("Deposit rule deleted",
		zap.String("rule_id", rule.ID.String()),
		zap.String("name", rule.Name))

	return nil
}

// Get returns a deposit rule by id
func (s *DepositRuleService) Get(ctx context.Context, propertyID, ruleID uuid.UUID) (*billing.DepositRule, error) {
	return s.findForProperty(ctx, propertyID, ruleID)
}

// List returns all deposit rules for a property
func (s *DepositRuleService) List(ctx context.Context, propertyID uuid.UUID, filter shared.Filter) ([]*billing.DepositRule, error) {
	return s.ruleRepo.FindAllForProperty(ctx, propertyID, filter)
}

// findForProperty loads a rule and checks the property scope. Rules are
// property-owned; a cross-property id behaves like a missing record.
func (s *DepositRuleService) findForProperty(ctx context.Context, propertyID, ruleID uuid.UUID) (*billing.DepositRule, error) {
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || rule.PropertyID != propertyID {
		return nil, shared.NewDomainError("NOT_FOUND", "Deposit rule not found")
	}
	return rule, nil
}
