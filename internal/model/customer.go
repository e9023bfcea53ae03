package model

import (
	"time"

	"gorm.io/gorm"
)

// Customer customer model
type Customer struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null;index" json:"name"`
	Email     *string        `gorm:"type:varchar(200);index" json:"email,omitempty"`
	Phone     *string        `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Address   *string        `gorm:"type:varchar(500)" json:"address,omitempty"`
	Notes     *string        `gorm:"type:varchar(500)" json:"notes,omitempty"`
	CreatedAt time.Time      `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName set name
func (Customer) TableName() string {
	return "customers"
}
