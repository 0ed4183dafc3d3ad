package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDepositRuleRepository implements DepositRuleRepository using GORM
type GormDepositRuleRepository struct {
	db *gorm.DB
}

// NewGormDepositRuleRepository creates a new GormDepositRuleRepository
func NewGormDepositRuleRepository(db *gorm.DB) *GormDepositRuleRepository {
	return &GormDepositRuleRepository{db: db}
}

// FindByID finds a deposit rule by its ID
func (r *GormDepositRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.DepositRule, error) {
	var model models.DepositRuleModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveForProperty finds all active rules for a property.
// Rules come back ordered by priority so the evaluator can take the first hit.
func (r *GormDepositRuleRepository) FindActiveForProperty(ctx context.Context, propertyID uuid.UUID) ([]*billing.DepositRule, error) {
	var ruleModels []models.DepositRuleModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Order("priority ASC, created_at ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	return toDomainDepositRules(ruleModels), nil
}

// FindAllForProperty finds all rules for a property
func (r *GormDepositRuleRepository) FindAllForProperty(ctx context.Context, propertyID uuid.UUID, filter shared.Filter) ([]*billing.DepositRule, error) {
	var ruleModels []models.DepositRuleModel
	query := r.db.WithContext(ctx).Model(&models.DepositRuleModel{}).
		Where("property_id = ?", propertyID)

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, DepositRuleSortFields, "priority")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("priority ASC, created_at ASC")
	}

	if err := query.Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	return toDomainDepositRules(ruleModels), nil
}

// Save creates or updates a deposit rule
func (r *GormDepositRuleRepository) Save(ctx context.Context, rule *billing.DepositRule) error {
	model := models.DepositRuleModelFromDomain(rule)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete soft deletes a deposit rule
func (r *GormDepositRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DepositRuleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainDepositRules(ruleModels []models.DepositRuleModel) []*billing.DepositRule {
	rules := make([]*billing.DepositRule, len(ruleModels))
	for i := range ruleModels {
		rules[i] = ruleModels[i].ToDomain()
	}
	return rules
}

// Ensure GormDepositRuleRepository implements DepositRuleRepository
var _ billing.DepositRuleRepository = (*GormDepositRuleRepository)(nil)
