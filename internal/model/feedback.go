package model

import (
	"time"
)

// Feedback customer feedback model
type Feedback struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uint64    `gorm:"type:bigint unsigned;not null;index" json:"customer_id"`
	OrderID    *uint64   `gorm:"type:bigint unsigned;index" json:"order_id,omitempty"`
	Rating     int       `gorm:"type:tinyint;not null" json:"rating"` // 1-5
	Comment    *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Order    *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// TableName set name
func (Feedback) TableName() string {
	return "feedback"
}
