package model

import (
	"time"

	"gorm.io/gorm"
)

// Item catalog item model
type Item struct {
	ID                uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string         `gorm:"type:varchar(200);not null;index" json:"name"`
	Description       *string        `gorm:"type:text" json:"description,omitempty"`
	Price             int64          `gorm:"type:bigint;not null" json:"price"` // cents
	ImageURL          *string        `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	StockQuantity     int            `gorm:"type:int;not null;default:0" json:"stock_quantity"`
	LowStockThreshold int            `gorm:"type:int;not null;default:5" json:"low_stock_threshold"`
	TrackStock        bool           `gorm:"type:tinyint(1);not null;default:1" json:"track_stock"`
	CostPrice         *int64         `gorm:"type:bigint" json:"cost_price,omitempty"` // cents
	Supplier          *string        `gorm:"type:varchar(200)" json:"supplier,omitempty"`
	CreatedAt         time.Time      `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName set name
func (Item) TableName() string {
	return "items"
}

// IsLowStock reports whether the item is at or below its low stock
// threshold. Derived at read time, never stored.
func (i *Item) IsLowStock() bool {
	return i.TrackStock && i.StockQuantity <= i.LowStockThreshold
}

// HasStock check if item has stock available
func (i *Item) HasStock(quantity int) bool {
	return !i.TrackStock || i.StockQuantity >= quantity
}

// GetPriceDollars get price in dollars
func (i *Item) GetPriceDollars() float64 {
	return float64(i.Price) / 100
}
