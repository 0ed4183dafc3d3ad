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

// GormBankTransactionRepository implements BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// FindByBankTransactionID finds a stored transaction by the bank's id
func (r *GormBankTransactionRepository) FindByBankTransactionID(ctx context.Context, bankTxnID string) (*billing.BankTransaction, error) {
	var model models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("bank_transaction_id = ?", bankTxnID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnmatched finds transactions stored for manual reconciliation
func (r *GormBankTransactionRepository) FindUnmatched(ctx context.Context, propertyID uuid.UUID, filter shared.Filter) ([]*billing.BankTransaction, error) {
	var txnModels []models.BankTransactionModel
	query := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Where("property_id = ? AND status = ?", propertyID, billing.BankTxnStatusUnmatched)

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("bank_transaction_id ILIKE ? OR memo ILIKE ?",
			searchPattern, searchPattern)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, BankTransactionSortFields, "occurred_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("occurred_at DESC")
	}

	if err := query.Find(&txnModels).Error; err != nil {
		return nil, err
	}
	txns := make([]*billing.BankTransaction, len(txnModels))
	for i := range txnModels {
		txns[i] = txnModels[i].ToDomain()
	}
	return txns, nil
}

// Save creates or updates a bank transaction record
func (r *GormBankTransactionRepository) Save(ctx context.Context, txn *billing.BankTransaction) error {
	model := models.BankTransactionModelFromDomain(txn)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormBankTransactionRepository implements BankTransactionRepository
var _ billing.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
