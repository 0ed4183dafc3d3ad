package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBillingMetricsProvider implements BillingMetricsProvider using GORM.
// It queries the billing tables directly for aggregated gauge values.
type GormBillingMetricsProvider struct {
	db *gorm.DB
}

// NewGormBillingMetricsProvider creates a new GormBillingMetricsProvider.
func NewGormBillingMetricsProvider(db *gorm.DB) *GormBillingMetricsProvider {
	return &GormBillingMetricsProvider{db: db}
}

// GetOpenFolioCount returns the number of open folios for a property.
func (p *GormBillingMetricsProvider) GetOpenFolioCount(ctx context.Context, propertyID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("folios").
		Where("property_id = ? AND status = ?", propertyID, "OPEN").
		Count(&count).Error
	return count, err
}

// GetOpenQRRequestCount returns the number of open QR payment requests for
// a property.
func (p *GormBillingMetricsProvider) GetOpenQRRequestCount(ctx context.Context, propertyID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("qr_payments").
		Where("property_id = ? AND status IN ?", propertyID, []string{"PENDING", "UNDERPAID"}).
		Count(&count).Error
	return count, err
}

// GormPropertyProvider implements PropertyProvider using GORM.
type GormPropertyProvider struct {
	db *gorm.DB
}

// NewGormPropertyProvider creates a new GormPropertyProvider.
func NewGormPropertyProvider(db *gorm.DB) *GormPropertyProvider {
	return &GormPropertyProvider{db: db}
}

// GetActivePropertyIDs returns the distinct property ids with invoices.
func (p *GormPropertyProvider) GetActivePropertyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("invoices").
		Distinct("property_id").
		Pluck("property_id", &ids).Error
	return ids, err
}

var (
	_ BillingMetricsProvider = (*GormBillingMetricsProvider)(nil)
	_ PropertyProvider       = (*GormPropertyProvider)(nil)
)
