package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"orderdesk/internal/model"
)

// SalesSummary aggregate sales figures for a period
type SalesSummary struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	TotalOrders       int64     `json:"total_orders"`
	CancelledOrders   int64     `json:"cancelled_orders"`
	Revenue           int64     `json:"revenue"` // cents, non-cancelled orders
	AverageOrderValue int64     `json:"average_order_value"`
}

// TopItem item ranked by quantity sold in a period
type TopItem struct {
	ItemID       uint64 `json:"item_id"`
	ItemName     string `json:"item_name"`
	QuantitySold int64  `json:"quantity_sold"`
	Revenue      int64  `json:"revenue"`
}

// AnalyticsService sales analytics service interface
type AnalyticsService interface {
	// Summary aggregates order counts and revenue for a period
	Summary(ctx context.Context, from, to time.Time) (*SalesSummary, error)

	// TopItems ranks items by quantity sold in a period
	TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error)
}

// analyticsService analytics service implementation
type analyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService(db *gorm.DB) AnalyticsService {
	return &analyticsService{db: db}
}

// Summary aggregates order counts and revenue for a period
func (s *analyticsService) Summary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{From: from, To: to}

	base := s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_date >= ? AND order_date < ?", from, to)

	if err := base.Session(&gorm.Session{}).Count(&summary.TotalOrders).Error; err != nil {
		return nil, err
	}

	if err := base.Session(&gorm.Session{}).
		Where("status = ?", model.OrderStatusCancelled).
		Count(&summary.CancelledOrders).Error; err != nil {
		return nil, err
	}

	if err := base.Session(&gorm.Session{}).
		Where("status <> ?", model.OrderStatusCancelled).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&summary.Revenue).Error; err != nil {
		return nil, err
	}

	if billable := summary.TotalOrders - summary.CancelledOrders; billable > 0 {
		summary.AverageOrderValue = summary.Revenue / billable
	}

	return summary, nil
}

// TopItems ranks items by quantity sold in a period
func (s *analyticsService) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	if limit <= 0 {
		limit = 10
	}

	var items []TopItem
	err := s.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Select("order_items.item_id AS item_id, order_items.item_name AS item_name, SUM(order_items.quantity) AS quantity_sold, SUM(order_items.price * order_items.quantity) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.order_date >= ? AND orders.order_date < ?", from, to).
		Where("orders.status <> ?", model.OrderStatusCancelled).
		Group("order_items.item_id, order_items.item_name").
		Order("quantity_sold DESC").
		Limit(limit).
		Scan(&items).Error

	return items, err
}
