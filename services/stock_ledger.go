package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/erp-orders-api/models"
	"gorm.io/gorm"
)

// StockLedger owns product quantity-on-hand. It never reserves stock: a
// successful CheckAvailable says nothing about a later CommitDecrement.
type StockLedger struct {
	db *gorm.DB
}

// NewStockLedger creates a ledger over db
func NewStockLedger(db *gorm.DB) *StockLedger {
	return &StockLedger{db: db}
}

// WithTx returns a ledger bound to a running transaction
func (l *StockLedger) WithTx(tx *gorm.DB) *StockLedger {
	return &StockLedger{db: tx}
}

// CheckAvailable reports whether qty units of the product are on hand right now
func (l *StockLedger) CheckAvailable(ctx context.Context, productID uint, qty int) error {
	if qty < 1 {
		return invalid("quantity must be at least 1, got %d", qty)
	}

	product, err := l.find(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.Quantity {
		return insufficientStock("insufficient quantity for product %q: requested %d, on hand %d",
			product.Title, qty, product.Quantity)
	}
	return nil
}

// CommitDecrement removes qty units in one conditional update, so two callers
// racing on the same product can never both pass on stale stock.
func (l *StockLedger) CommitDecrement(ctx context.Context, productID uint, qty int) error {
	if qty < 1 {
		return invalid("quantity must be at least 1, got %d", qty)
	}

	result := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return fmt.Errorf("decrement stock for product %d: %w", productID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// Nothing changed: the product is gone or short
	product, err := l.find(ctx, productID)
	if err != nil {
		return err
	}
	return insufficientStock("insufficient quantity for product %q: requested %d, on hand %d",
		product.Title, qty, product.Quantity)
}

// Adjust adds delta (which may be negative) to the quantity-on-hand, refusing
// any change that would leave it below zero.
func (l *StockLedger) Adjust(ctx context.Context, productID uint, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, invalid("stock adjustment must be non-zero")
	}

	result := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity + ? >= 0", productID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return nil, fmt.Errorf("adjust stock for product %d: %w", productID, result.Error)
	}

	product, err := l.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, insufficientStock("cannot adjust product %q by %d: only %d on hand",
			product.Title, delta, product.Quantity)
	}
	return product, nil
}

func (l *StockLedger) find(ctx context.Context, productID uint) (*models.Product, error) {
	var product models.Product
	if err := l.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product with ID %d not found", productID)
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	return &product, nil
}
