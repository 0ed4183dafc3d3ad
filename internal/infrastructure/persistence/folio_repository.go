package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFolioRepository implements FolioRepository using GORM
type GormFolioRepository struct {
	db *gorm.DB
}

// NewGormFolioRepository creates a new GormFolioRepository
func NewGormFolioRepository(db *gorm.DB) *GormFolioRepository {
	return &GormFolioRepository{db: db}
}

// FindByID finds a folio by its ID
func (r *GormFolioRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Folio, error) {
	var model models.FolioModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBooking finds the folio for a booking
func (r *GormFolioRepository) FindByBooking(ctx context.Context, propertyID, bookingID uuid.UUID) (*billing.Folio, error) {
	var model models.FolioModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND booking_id = ?", propertyID, bookingID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a folio
func (r *GormFolioRepository) Save(ctx context.Context, folio *billing.Folio) error {
	model := models.FolioModelFromDomain(folio)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormFolioRepository) SaveWithLock(ctx context.Context, folio *billing.Folio) error {
	model := models.FolioModelFromDomain(folio)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", folio.ID, folio.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GenerateFolioNumber generates a unique folio number
func (r *GormFolioRepository) GenerateFolioNumber(ctx context.Context, propertyID uuid.UUID) (string, error) {
	// Format: FOL-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("FOL-%s-", date)

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.FolioModel{}).
		Select("folio_number").
		Where("property_id = ? AND folio_number LIKE ?", propertyID, prefix+"%").
		Order("folio_number DESC").
		Limit(1).
		Pluck("folio_number", &maxNumber).Error; err != nil {
		return "", err
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) == 3 {
			fmt.Sscanf(parts[2], "%d", &nextNum)
		}
	}
	nextNum++

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// Ensure GormFolioRepository implements FolioRepository
var _ billing.FolioRepository = (*GormFolioRepository)(nil)
