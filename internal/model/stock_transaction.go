package model

import (
	"time"
)

// StockTransaction immutable stock ledger entry. Rows are only ever
// inserted; the item's stock_quantity is a projection of this log.
type StockTransaction struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID          uint64    `gorm:"type:bigint unsigned;not null;index" json:"item_id"`
	TransactionType string    `gorm:"type:varchar(20);not null;index" json:"transaction_type"`
	Quantity        int       `gorm:"type:int;not null" json:"quantity"` // signed delta
	PreviousStock   int       `gorm:"type:int;not null" json:"previous_stock"`
	NewStock        int       `gorm:"type:int;not null" json:"new_stock"`
	ReferenceType   *string   `gorm:"type:varchar(20);index" json:"reference_type,omitempty"`
	ReferenceID     *uint64   `gorm:"type:bigint unsigned;index" json:"reference_id,omitempty"`
	Actor           *string   `gorm:"type:varchar(100)" json:"actor,omitempty"`
	Note            *string   `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt       time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	Item *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// TableName set name
func (StockTransaction) TableName() string {
	return "stock_transactions"
}

// Transaction type const
const (
	TransactionTypeOrderPlaced    = "order_placed"
	TransactionTypeOrderCancelled = "order_cancelled"
	TransactionTypeAdjustment     = "adjustment"
	TransactionTypeRestock        = "restock"
	TransactionTypeReturn         = "return"
)

// ReferenceTypeOrder reference type for order-driven transactions
const ReferenceTypeOrder = "order"

// ValidTransactionType check transaction type is known
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeOrderPlaced, TransactionTypeOrderCancelled,
		TransactionTypeAdjustment, TransactionTypeRestock, TransactionTypeReturn:
		return true
	default:
		return false
	}
}

// IsDeduction check if transaction removed stock
func (st *StockTransaction) IsDeduction() bool {
	return st.Quantity < 0
}
