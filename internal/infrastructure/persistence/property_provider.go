package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/scheduler"
	"gorm.io/gorm"
)

// GormPropertyProvider lists the properties known to the billing store.
// A property is active once it has issued at least one invoice.
type GormPropertyProvider struct {
	db *gorm.DB
}

// NewGormPropertyProvider creates a new property provider
func NewGormPropertyProvider(db *gorm.DB) *GormPropertyProvider {
	return &GormPropertyProvider{db: db}
}

// GetAllActivePropertyIDs returns the distinct property ids with invoices
func (p *GormPropertyProvider) GetAllActivePropertyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("invoices").
		Distinct("property_id").
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ scheduler.PropertyProvider = (*GormPropertyProvider)(nil)
