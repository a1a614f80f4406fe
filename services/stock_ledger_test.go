package services

import (
	"context"
	"sync"
	"testing"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLedgerFixture(t *testing.T, qty int) (*gorm.DB, *StockLedger, *models.Product) {
	t.Helper()

	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, models.RoleInventory)
	product := testutil.CreateProduct(t, db, "Widget", qty, "2.50", owner.ID)
	return db, NewStockLedger(db), product
}

func TestCheckAvailable(t *testing.T) {
	_, ledger, product := newLedgerFixture(t, 5)
	ctx := context.Background()

	tests := []struct {
		name      string
		productID uint
		qty       int
		kind      ErrorKind
	}{
		{name: "below on hand", productID: product.ID, qty: 4},
		{name: "exactly on hand", productID: product.ID, qty: 5},
		{name: "one over", productID: product.ID, qty: 6, kind: KindInsufficientStock},
		{name: "zero quantity", productID: product.ID, qty: 0, kind: KindValidation},
		{name: "unknown product", productID: 9999, qty: 1, kind: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.CheckAvailable(ctx, tt.productID, tt.qty)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestCheckAvailable_DoesNotReserve(t *testing.T) {
	db, ledger, product := newLedgerFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, ledger.CheckAvailable(ctx, product.ID, 5))
	require.NoError(t, ledger.CheckAvailable(ctx, product.ID, 5))
	assert.Equal(t, 5, testutil.ProductQuantity(t, db, product.ID))
}

func TestCommitDecrement(t *testing.T) {
	db, ledger, product := newLedgerFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, ledger.CommitDecrement(ctx, product.ID, 3))
	assert.Equal(t, 2, testutil.ProductQuantity(t, db, product.ID))

	err := ledger.CommitDecrement(ctx, product.ID, 3)
	assert.True(t, IsKind(err, KindInsufficientStock))
	assert.Equal(t, 2, testutil.ProductQuantity(t, db, product.ID))

	require.NoError(t, ledger.CommitDecrement(ctx, product.ID, 2))
	assert.Equal(t, 0, testutil.ProductQuantity(t, db, product.ID))

	assert.True(t, IsKind(ledger.CommitDecrement(ctx, 9999, 1), KindNotFound))
	assert.True(t, IsKind(ledger.CommitDecrement(ctx, product.ID, -1), KindValidation))
}

func TestCommitDecrement_SoftDeletedProductIsNotFound(t *testing.T) {
	db, ledger, product := newLedgerFixture(t, 5)
	require.NoError(t, db.Delete(&models.Product{}, product.ID).Error)

	err := ledger.CommitDecrement(context.Background(), product.ID, 1)

	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, 5, testutil.ProductQuantity(t, db, product.ID))
}

func TestCommitDecrement_ConcurrentCallersNeverOversell(t *testing.T) {
	db, ledger, product := newLedgerFixture(t, 5)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ledger.CommitDecrement(context.Background(), product.ID, 2)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, IsKind(err, KindInsufficientStock))
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, testutil.ProductQuantity(t, db, product.ID))
}

func TestAdjust(t *testing.T) {
	db, ledger, product := newLedgerFixture(t, 5)
	ctx := context.Background()

	updated, err := ledger.Adjust(ctx, product.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Quantity)

	updated, err = ledger.Adjust(ctx, product.ID, -12)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)

	_, err = ledger.Adjust(ctx, product.ID, -1)
	assert.True(t, IsKind(err, KindInsufficientStock))
	assert.Equal(t, 0, testutil.ProductQuantity(t, db, product.ID))

	_, err = ledger.Adjust(ctx, product.ID, 0)
	assert.True(t, IsKind(err, KindValidation))

	_, err = ledger.Adjust(ctx, 9999, 1)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestWithTx_RollsBackWithTransaction(t *testing.T) {
	db, ledger, product := newLedgerFixture(t, 5)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.WithTx(tx).CommitDecrement(ctx, product.ID, 4); err != nil {
			return err
		}
		assert.Equal(t, 1, testutil.ProductQuantity(t, tx, product.ID))
		return ledger.WithTx(tx).CommitDecrement(ctx, product.ID, 4)
	})

	assert.True(t, IsKind(err, KindInsufficientStock))
	assert.Equal(t, 5, testutil.ProductQuantity(t, db, product.ID))
}
