package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"orderdesk/internal/model"
	"orderdesk/pkg/utils"
)

// ItemRepository catalog item repository interface
type ItemRepository interface {
	// Create creates an item
	Create(ctx context.Context, item *model.Item) error

	// GetByID gets an item by ID
	GetByID(ctx context.Context, id uint64) (*model.Item, error)

	// GetByIDs gets items by IDs
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Item, error)

	// Update updates item attributes
	Update(ctx context.Context, id uint64, updates map[string]interface{}) error

	// Delete soft deletes an item
	Delete(ctx context.Context, id uint64) error

	// List lists items with offset pagination
	List(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.Item, int64, error)

	// ListLowStock lists tracked items at or below their threshold,
	// most urgent first
	ListLowStock(ctx context.Context) ([]model.Item, error)
}

// itemRepository item repository implementation
type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates an item repository
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

// Create creates an item
func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID gets an item by ID
func (r *itemRepository) GetByID(ctx context.Context, id uint64) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDs gets items by IDs
func (r *itemRepository) GetByIDs(ctx context.Context, ids []uint64) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	return items, err
}

// Update updates item attributes
func (r *itemRepository) Update(ctx context.Context, id uint64, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrItemNotFound
	}
	return nil
}

// Delete soft deletes an item
func (r *itemRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Item{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrItemNotFound
	}
	return nil
}

// List lists items with offset pagination
func (r *itemRepository) List(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.Item, int64, error) {
	var items []model.Item
	var total int64

	offset := (page - 1) * limit

	db := r.db.WithContext(ctx).Model(&model.Item{})
	if lowStockOnly {
		db = db.Where("track_stock = ? AND stock_quantity <= low_stock_threshold", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// ListLowStock lists tracked items at or below their threshold
func (r *itemRepository) ListLowStock(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("track_stock = ? AND stock_quantity <= low_stock_threshold", true).
		Order("stock_quantity ASC").
		Find(&items).Error
	return items, err
}
