package model

import (
	"time"
)

// Order order model
type Order struct {
	ID                   uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber          string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	CustomerID           uint64      `gorm:"type:bigint unsigned;not null;index" json:"customer_id"`
	Source               string      `gorm:"type:varchar(50);not null" json:"source"`
	TotalPrice           int64       `gorm:"type:bigint;not null" json:"total_price"` // cents, snapshot at creation
	Status               string      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus        string      `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	ConfirmationStatus   string      `gorm:"type:varchar(20);not null;default:'unconfirmed'" json:"confirmation_status"`
	DeliveryStatus       string      `gorm:"type:varchar(20);not null;default:'not_dispatched'" json:"delivery_status"`
	Priority             int         `gorm:"type:tinyint;not null;default:0" json:"priority"` // 0-5
	Notes                *string     `gorm:"type:varchar(500)" json:"notes,omitempty"`
	OrderDate            time.Time   `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"order_date"`
	ExpectedDeliveryDate *time.Time  `gorm:"type:timestamp" json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time  `gorm:"type:timestamp" json:"actual_delivery_date,omitempty"`
	CreatedAt            time.Time   `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt            time.Time   `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName set name
func (Order) TableName() string {
	return "orders"
}

// OrderItem order line item model
type OrderItem struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       uint64  `gorm:"type:bigint unsigned;not null;index" json:"order_id"`
	ItemID        uint64  `gorm:"type:bigint unsigned;not null;index" json:"item_id"`
	ItemName      string  `gorm:"type:varchar(200);not null" json:"item_name"`
	Price         int64   `gorm:"type:bigint;not null" json:"price"` // unit price snapshot, cents
	Quantity      int     `gorm:"type:int;not null" json:"quantity"`
	Customization *string `gorm:"type:varchar(500)" json:"customization,omitempty"`
	StockDeducted bool    `gorm:"type:tinyint(1);not null;default:0" json:"stock_deducted"`
}

// TableName set name
func (OrderItem) TableName() string {
	return "order_items"
}

// Extension line extension (unit price x quantity) in cents
func (oi *OrderItem) Extension() int64 {
	return oi.Price * int64(oi.Quantity)
}

// Order status const
const (
	OrderStatusPending   = "pending"
	OrderStatusActive    = "active"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Payment status const
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPartial  = "partial"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Confirmation status const
const (
	ConfirmationStatusUnconfirmed = "unconfirmed"
	ConfirmationStatusConfirmed   = "confirmed"
)

// Delivery status const
const (
	DeliveryStatusNotDispatched = "not_dispatched"
	DeliveryStatusDispatched    = "dispatched"
	DeliveryStatusDelivered     = "delivered"
)

// Order source const
const (
	OrderSourceWeb         = "web"
	OrderSourcePhone       = "phone"
	OrderSourceInPerson    = "in_person"
	OrderSourceMarketplace = "marketplace"
)

// MaxOrderPriority highest allowed priority value
const MaxOrderPriority = 5

// IsCancelled check order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// IsCompleted check order is completed
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// CanCancel check order can cancel
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusActive
}

// GetTotalPriceDollars get total price in dollars
func (o *Order) GetTotalPriceDollars() float64 {
	return float64(o.TotalPrice) / 100
}
