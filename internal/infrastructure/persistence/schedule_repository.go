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

// GormScheduleRepository implements ScheduleRepository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// FindByID finds a schedule entry by its ID
func (r *GormScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.ScheduleEntry, error) {
	var model models.ScheduleEntryModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBooking finds all schedule entries for a booking ordered by schedule number
func (r *GormScheduleRepository) FindByBooking(ctx context.Context, propertyID, bookingID uuid.UUID) ([]*billing.ScheduleEntry, error) {
	var entryModels []models.ScheduleEntryModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND booking_id = ?", propertyID, bookingID).
		Order("schedule_number ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainScheduleEntries(entryModels), nil
}

// FindDueBefore finds invoiced, unpaid entries due before the given time
func (r *GormScheduleRepository) FindDueBefore(ctx context.Context, propertyID uuid.UUID, asOf time.Time) ([]*billing.ScheduleEntry, error) {
	var entryModels []models.ScheduleEntryModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND due_date < ? AND status = ?",
			propertyID, asOf, billing.ScheduleStatusInvoiced).
		Order("due_date ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainScheduleEntries(entryModels), nil
}

// SaveAll persists a generated schedule atomically, replacing any non-terminal
// entries for the booking. Paid and cancelled entries are kept for audit.
func (r *GormScheduleRepository) SaveAll(ctx context.Context, bookingID uuid.UUID, entries []*billing.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("booking_id = ? AND status IN ?", bookingID,
				[]billing.ScheduleStatus{billing.ScheduleStatusScheduled, billing.ScheduleStatusInvoiced}).
			Delete(&models.ScheduleEntryModel{}).Error; err != nil {
			return err
		}
		for _, entry := range entries {
			if err := tx.Save(models.ScheduleEntryModelFromDomain(entry)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Save creates or updates a single schedule entry
func (r *GormScheduleRepository) Save(ctx context.Context, entry *billing.ScheduleEntry) error {
	model := models.ScheduleEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormScheduleRepository) SaveWithLock(ctx context.Context, entry *billing.ScheduleEntry) error {
	model := models.ScheduleEntryModelFromDomain(entry)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func toDomainScheduleEntries(entryModels []models.ScheduleEntryModel) []*billing.ScheduleEntry {
	entries := make([]*billing.ScheduleEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries
}

// Ensure GormScheduleRepository implements ScheduleRepository
var _ billing.ScheduleRepository = (*GormScheduleRepository)(nil)
