package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupBankTransactionTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.BankTransactionModel{})
	require.NoError(t, err)

	return db
}

func createTestBankTransaction(t *testing.T, propertyID uuid.UUID, bankTxnID string) *billing.BankTransaction {
	t.Helper()

	txn, err := billing.NewBankTransaction(
		propertyID,
		bankTxnID,
		valueobject.NewMoneyVNDFromInt(500000),
		"TT A1B2C3D4E5F6 booking",
		time.Now(),
	)
	require.NoError(t, err)
	return txn
}

func TestGormBankTransactionRepository_FindByBankTransactionID(t *testing.T) {
	db := setupBankTransactionTestDB(t)
	repo := NewGormBankTransactionRepository(db)
	ctx := context.Background()

	propertyID := uuid.New()

	txn := createTestBankTransaction(t, propertyID, "FT-2026-0001")
	require.NoError(t, repo.Save(ctx, txn))

	t.Run("finds stored transaction", func(t *testing.T) {
		found, err := repo.FindByBankTransactionID(ctx, "FT-2026-0001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, txn.ID, found.ID)
	})

	t.Run("returns nil for unseen transaction", func(t *testing.T) {
		found, err := repo.FindByBankTransactionID(ctx, "FT-2026-9999")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("unique index rejects duplicate bank transaction ids", func(t *testing.T) {
		dup := createTestBankTransaction(t, propertyID, "FT-2026-0001")
		err := repo.Save(ctx, dup)
		require.Error(t, err)
	})
}

func TestGormBankTransactionRepository_FindUnmatched(t *testing.T) {
	db := setupBankTransactionTestDB(t)
	repo := NewGormBankTransactionRepository(db)
	ctx := context.Background()

	propertyID := uuid.New()

	unmatched := createTestBankTransaction(t, propertyID, "FT-2026-0010")
	unmatched.Status = billing.BankTxnStatusUnmatched
	require.NoError(t, repo.Save(ctx, unmatched))

	processed := createTestBankTransaction(t, propertyID, "FT-2026-0011")
	processed.Status = billing.BankTxnStatusProcessed
	require.NoError(t, repo.Save(ctx, processed))

	txns, err := repo.FindUnmatched(ctx, propertyID, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "FT-2026-0010", txns[0].BankTransactionID)
}
