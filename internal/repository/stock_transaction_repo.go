package repository

import (
	"context"

	"gorm.io/gorm"

	"orderdesk/internal/model"
)

// StockTransactionRepository stock ledger read repository interface.
// Ledger rows are written only inside the stock ledger's atomic adjust
// transaction, never through this interface.
type StockTransactionRepository interface {
	// ListByItem lists an item's ledger entries, newest first
	ListByItem(ctx context.Context, itemID uint64, page, limit int) ([]model.StockTransaction, int64, error)

	// ListByOrder lists ledger entries referencing an order
	ListByOrder(ctx context.Context, orderID uint64) ([]model.StockTransaction, error)

	// SumQuantity sums all deltas of an item's ledger; replaying the
	// ledger from zero must reproduce the materialized balance
	SumQuantity(ctx context.Context, itemID uint64) (int64, error)
}

// stockTransactionRepository stock transaction repository implementation
type stockTransactionRepository struct {
	db *gorm.DB
}

// NewStockTransactionRepository creates a stock transaction repository
func NewStockTransactionRepository(db *gorm.DB) StockTransactionRepository {
	return &stockTransactionRepository{db: db}
}

// ListByItem lists an item's ledger entries, newest first
func (r *stockTransactionRepository) ListByItem(ctx context.Context, itemID uint64, page, limit int) ([]model.StockTransaction, int64, error) {
	var txns []model.StockTransaction
	var total int64

	offset := (page - 1) * limit

	db := r.db.WithContext(ctx).
		Model(&model.StockTransaction{}).
		Where("item_id = ?", itemID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&txns).Error

	return txns, total, err
}

// ListByOrder lists ledger entries referencing an order
func (r *stockTransactionRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.StockTransaction, error) {
	var txns []model.StockTransaction
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", model.ReferenceTypeOrder, orderID).
		Order("id ASC").
		Find(&txns).Error
	return txns, err
}

// SumQuantity sums all deltas of an item's ledger
func (r *stockTransactionRepository) SumQuantity(ctx context.Context, itemID uint64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.StockTransaction{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}
