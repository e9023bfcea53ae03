package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"orderdesk/internal/model"
	"orderdesk/pkg/utils"
)

// OrderRepository order repository interface
type OrderRepository interface {
	// Create creates an order with its line items in one transaction
	Create(ctx context.Context, order *model.Order) error

	// GetByID gets an order by ID
	GetByID(ctx context.Context, id uint64) (*model.Order, error)

	// GetByOrderNumber gets an order by its business order number
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// ListCursor lists orders newest-first from an optional cursor,
	// fetching limit+1 rows so the caller can derive hasMore
	ListCursor(ctx context.Context, afterID *uint64, limit int, status string) ([]*model.Order, error)

	// UpdateStatuses updates lifecycle status fields of one order
	UpdateStatuses(ctx context.Context, id uint64, updates map[string]interface{}) error

	// BulkUpdateStatuses updates lifecycle status fields of many orders
	BulkUpdateStatuses(ctx context.Context, ids []uint64, updates map[string]interface{}) (int64, error)

	// SetItemsDeducted flags or clears the deducted marker on line items
	SetItemsDeducted(ctx context.Context, orderID uint64, itemIDs []uint64, deducted bool) error
}

// orderRepository order repository implementation
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates an order with its line items in one transaction
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := order.Items
		order.Items = nil

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		if len(items) > 0 {
			for i := range items {
				items[i].OrderID = order.ID
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		order.Items = items
		return nil
	})

	if err != nil && isDuplicateKey(err) {
		return utils.ErrOrderExists
	}
	return err
}

// isDuplicateKey detects a unique-constraint violation
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// GetByID gets an order by ID
func (r *orderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNumber gets an order by its business order number
func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		Where("order_number = ?", orderNumber).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListCursor lists orders newest-first from an optional cursor
func (r *orderRepository) ListCursor(ctx context.Context, afterID *uint64, limit int, status string) ([]*model.Order, error) {
	var orders []*model.Order

	db := r.db.WithContext(ctx).Model(&model.Order{})
	if afterID != nil {
		db = db.Where("id < ?", *afterID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	// limit+1 so the caller can tell whether another page exists
	err := db.Order("id DESC").
		Limit(limit + 1).
		Preload("Items").
		Find(&orders).Error

	return orders, err
}

// UpdateStatuses updates lifecycle status fields of one order
func (r *orderRepository) UpdateStatuses(ctx context.Context, id uint64, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrOrderNotFound
	}
	return nil
}

// BulkUpdateStatuses updates lifecycle status fields of many orders
func (r *orderRepository) BulkUpdateStatuses(ctx context.Context, ids []uint64, updates map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id IN ?", ids).
		Updates(updates)

	return result.RowsAffected, result.Error
}

// SetItemsDeducted flags or clears the deducted marker on line items
func (r *orderRepository) SetItemsDeducted(ctx context.Context, orderID uint64, itemIDs []uint64, deducted bool) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("order_id = ? AND item_id IN ?", orderID, itemIDs).
		Update("stock_deducted", deducted).Error
}
