package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// openStatuses are the QR request states still awaiting bank transfers.
var openStatuses = []billing.QRPaymentStatus{
	billing.QRStatusPending,
	billing.QRStatusUnderpaid,
}

// GormQRPaymentRepository implements QRPaymentRepository using GORM
type GormQRPaymentRepository struct {
	db *gorm.DB
}

// NewGormQRPaymentRepository creates a new GormQRPaymentRepository
func NewGormQRPaymentRepository(db *gorm.DB) *GormQRPaymentRepository {
	return &GormQRPaymentRepository{db: db}
}

// FindByID finds a QR payment request by its ID
func (r *GormQRPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.QRPayment, error) {
	var model models.QRPaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByToken finds the open request carrying the matching token
func (r *GormQRPaymentRepository) FindOpenByToken(ctx context.Context, token string) (*billing.QRPayment, error) {
	var model models.QRPaymentModel
	if err := r.db.WithContext(ctx).
		Where("matching_token = ? AND status IN ?", token, openStatuses).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBlockingByInvoice finds a request that blocks issuing a new one for the
// invoice. A matched request blocks as well as an open one.
func (r *GormQRPaymentRepository) FindBlockingByInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.QRPayment, error) {
	var model models.QRPaymentModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND status IN ?", invoiceID,
			[]billing.QRPaymentStatus{
				billing.QRStatusPending,
				billing.QRStatusUnderpaid,
				billing.QRStatusMatched,
			}).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindExpiredOpen finds open requests whose deadline passed before asOf
func (r *GormQRPaymentRepository) FindExpiredOpen(ctx context.Context, asOf time.Time) ([]*billing.QRPayment, error) {
	var qrModels []models.QRPaymentModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", openStatuses, asOf).
		Order("expires_at ASC").
		Find(&qrModels).Error; err != nil {
		return nil, err
	}
	qrs := make([]*billing.QRPayment, len(qrModels))
	for i := range qrModels {
		qrs[i] = qrModels[i].ToDomain()
	}
	return qrs, nil
}

// Save creates or updates a QR payment request
func (r *GormQRPaymentRepository) Save(ctx context.Context, qr *billing.QRPayment) error {
	model := models.QRPaymentModelFromDomain(qr)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormQRPaymentRepository) SaveWithLock(ctx context.Context, qr *billing.QRPayment) error {
	model := models.QRPaymentModelFromDomain(qr)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", qr.ID, qr.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormQRPaymentRepository implements QRPaymentRepository
var _ billing.QRPaymentRepository = (*GormQRPaymentRepository)(nil)
