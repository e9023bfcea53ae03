package stock

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orderdesk/internal/model"
	"orderdesk/internal/monitor"
	"orderdesk/internal/repository"
	"orderdesk/pkg/log"
	"orderdesk/pkg/retry"
	"orderdesk/pkg/utils"
)

// InsufficientStockError reports an adjustment that would drive the
// balance negative. Carries the current stock and requested delta for
// diagnostics; the ledger and balance are left untouched.
type InsufficientStockError struct {
	ItemID    uint64
	Current   int
	Requested int
}

// Error implement error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: have %d, requested %d", e.ItemID, e.Current, e.Requested)
}

// AdjustmentMeta optional metadata recorded on a ledger row
type AdjustmentMeta struct {
	ReferenceType *string
	ReferenceID   *uint64
	Actor         *string
	Note          *string
}

// Line result status const
const (
	LineStatusApplied = "applied"
	LineStatusSkipped = "skipped"
	LineStatusFailed  = "failed"
)

// LineResult outcome of one entry in a composite operation
type LineResult struct {
	ItemID      uint64                  `json:"item_id"`
	Quantity    int                     `json:"quantity"`
	Status      string                  `json:"status"`
	Error       string                  `json:"error,omitempty"`
	Transaction *model.StockTransaction `json:"transaction,omitempty"`
}

// BatchResult per-entry outcomes plus aggregate counts. One entry's
// failure never aborts the rest; the caller decides what a partial
// failure means.
type BatchResult struct {
	Results []LineResult `json:"results"`
	Applied int          `json:"applied"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
}

func (b *BatchResult) add(r LineResult) {
	b.Results = append(b.Results, r)
	switch r.Status {
	case LineStatusApplied:
		b.Applied++
	case LineStatusSkipped:
		b.Skipped++
	case LineStatusFailed:
		b.Failed++
	}
}

// HasFailures reports whether any entry failed
func (b *BatchResult) HasFailures() bool {
	return b.Failed > 0
}

// Adjustment one entry of a bulk adjustment
type Adjustment struct {
	ItemID   uint64
	Quantity int
	Meta     AdjustmentMeta
}

// LedgerReport ledger consistency report for one item
type LedgerReport struct {
	ItemID       uint64 `json:"item_id"`
	LedgerSum    int64  `json:"ledger_sum"`
	Balance      int    `json:"balance"`
	IsConsistent bool   `json:"is_consistent"`
}

// Ledger maintains an auditable, non-negative stock balance per item.
// Every stock-affecting event appends one immutable transaction row and
// updates the materialized balance in the same database transaction.
type Ledger interface {
	// AdjustStock applies a signed delta to one item atomically
	AdjustStock(ctx context.Context, itemID uint64, delta int, txnType string, meta AdjustmentMeta) (*model.StockTransaction, error)

	// DeductForOrder deducts stock for each tracked line item of an order
	DeductForOrder(ctx context.Context, orderID uint64, lines []model.OrderItem, actor string) *BatchResult

	// RestoreForOrder restores stock previously deducted for an order
	RestoreForOrder(ctx context.Context, orderID uint64, lines []model.OrderItem, actor string) *BatchResult

	// BulkAdjust applies independent adjustments, collecting per-entry results
	BulkAdjust(ctx context.Context, adjustments []Adjustment, txnType string) *BatchResult

	// LowStockItems lists tracked items at or below threshold, most urgent first
	LowStockItems(ctx context.Context) ([]model.Item, error)

	// TransactionHistory pages one item's ledger, newest first
	TransactionHistory(ctx context.Context, itemID uint64, page, limit int) ([]model.StockTransaction, int64, error)

	// VerifyLedger replays an item's ledger and compares it to the balance
	VerifyLedger(ctx context.Context, itemID uint64) (*LedgerReport, error)
}

// ledger stock ledger implementation
type ledger struct {
	db       *gorm.DB
	itemRepo repository.ItemRepository
	txnRepo  repository.StockTransactionRepository
	retry    retry.Policy
}

// NewLedger creates a stock ledger
func NewLedger(db *gorm.DB, itemRepo repository.ItemRepository, txnRepo repository.StockTransactionRepository, retryPolicy retry.Policy) Ledger {
	return &ledger{
		db:       db,
		itemRepo: itemRepo,
		txnRepo:  txnRepo,
		retry:    retryPolicy,
	}
}

// AdjustStock applies a signed delta to one item. The row lock, balance
// check, ledger insert and balance update run in a single database
// transaction, so concurrent adjustments on the same item serialize on
// the committed balance instead of racing on a stale read. Transient
// storage errors re-run the whole transaction; expected failures
// surface immediately with no side effects.
func (l *ledger) AdjustStock(ctx context.Context, itemID uint64, delta int, txnType string, meta AdjustmentMeta) (*model.StockTransaction, error) {
	if delta == 0 {
		return nil, utils.NewError(utils.CodeInvalidParam, "quantity delta cannot be zero")
	}
	if !model.ValidTransactionType(txnType) {
		return nil, utils.NewError(utils.CodeInvalidParam, fmt.Sprintf("unknown transaction type: %s", txnType))
	}

	var txn *model.StockTransaction

	err := l.retry.Do(ctx, func() error {
		txn = nil
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var item model.Item
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", itemID).
				First(&item).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return retry.Permanent(utils.ErrItemNotFound)
				}
				return err
			}

			newStock := item.StockQuantity + delta
			if newStock < 0 {
				return retry.Permanent(&InsufficientStockError{
					ItemID:    itemID,
					Current:   item.StockQuantity,
					Requested: delta,
				})
			}

			entry := &model.StockTransaction{
				ItemID:          itemID,
				TransactionType: txnType,
				Quantity:        delta,
				PreviousStock:   item.StockQuantity,
				NewStock:        newStock,
				ReferenceType:   meta.ReferenceType,
				ReferenceID:     meta.ReferenceID,
				Actor:           meta.Actor,
				Note:            meta.Note,
			}
			if err := tx.Create(entry).Error; err != nil {
				return err
			}

			if err := tx.Model(&model.Item{}).
				Where("id = ?", itemID).
				Update("stock_quantity", newStock).Error; err != nil {
				return err
			}

			txn = entry
			return nil
		})
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	monitor.RecordStockAdjustment(txnType, outcome)

	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"item_id":        itemID,
		"type":           txnType,
		"delta":          delta,
		"previous_stock": txn.PreviousStock,
		"new_stock":      txn.NewStock,
	}).Info("Stock adjusted")

	return txn, nil
}

// DeductForOrder deducts stock for each tracked line item of an order.
// Untracked items are skipped without a ledger entry; each line's
// outcome is collected independently.
func (l *ledger) DeductForOrder(ctx context.Context, orderID uint64, lines []model.OrderItem, actor string) *BatchResult {
	refType := model.ReferenceTypeOrder
	result := &BatchResult{}

	for _, line := range lines {
		item, err := l.itemRepo.GetByID(ctx, line.ItemID)
		if err != nil {
			result.add(LineResult{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Status:   LineStatusFailed,
				Error:    utils.GetErrorMessage(err),
			})
			continue
		}

		if !item.TrackStock {
			result.add(LineResult{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Status:   LineStatusSkipped,
			})
			continue
		}

		orderRef := orderID
		meta := AdjustmentMeta{
			ReferenceType: &refType,
			ReferenceID:   &orderRef,
		}
		if actor != "" {
			meta.Actor = &actor
		}

		txn, err := l.AdjustStock(ctx, line.ItemID, -line.Quantity, model.TransactionTypeOrderPlaced, meta)
		if err != nil {
			result.add(LineResult{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Status:   LineStatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		result.add(LineResult{
			ItemID:      line.ItemID,
			Quantity:    line.Quantity,
			Status:      LineStatusApplied,
			Transaction: txn,
		})
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"applied":  result.Applied,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	}).Info("Order stock deduction completed")

	return result
}

// RestoreForOrder restores stock previously deducted for an order.
// Mirror of deduction with a positive delta; lines that were never
// deducted are skipped.
func (l *ledger) RestoreForOrder(ctx context.Context, orderID uint64, lines []model.OrderItem, actor string) *BatchResult {
	refType := model.ReferenceTypeOrder
	result := &BatchResult{}

	for _, line := range lines {
		if !line.StockDeducted {
			result.add(LineResult{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Status:   LineStatusSkipped,
			})
			continue
		}

		orderRef := orderID
		meta := AdjustmentMeta{
			ReferenceType: &refType,
			ReferenceID:   &orderRef,
		}
		if actor != "" {
			meta.Actor = &actor
		}

		txn, err := l.AdjustStock(ctx, line.ItemID, line.Quantity, model.TransactionTypeOrderCancelled, meta)
		if err != nil {
			result.add(LineResult{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Status:   LineStatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		result.add(LineResult{
			ItemID:      line.ItemID,
			Quantity:    line.Quantity,
			Status:      LineStatusApplied,
			Transaction: txn,
		})
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"applied":  result.Applied,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	}).Info("Order stock restoration completed")

	return result
}

// BulkAdjust applies independent adjustments with a shared transaction
// type, never aborting the batch on a single failure.
func (l *ledger) BulkAdjust(ctx context.Context, adjustments []Adjustment, txnType string) *BatchResult {
	result := &BatchResult{}

	for _, adj := range adjustments {
		txn, err := l.AdjustStock(ctx, adj.ItemID, adj.Quantity, txnType, adj.Meta)
		if err != nil {
			result.add(LineResult{
				ItemID:   adj.ItemID,
				Quantity: adj.Quantity,
				Status:   LineStatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		result.add(LineResult{
			ItemID:      adj.ItemID,
			Quantity:    adj.Quantity,
			Status:      LineStatusApplied,
			Transaction: txn,
		})
	}

	return result
}

// LowStockItems lists tracked items at or below threshold
func (l *ledger) LowStockItems(ctx context.Context) ([]model.Item, error) {
	return l.itemRepo.ListLowStock(ctx)
}

// TransactionHistory pages one item's ledger, newest first
func (l *ledger) TransactionHistory(ctx context.Context, itemID uint64, page, limit int) ([]model.StockTransaction, int64, error) {
	if _, err := l.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, 0, err
	}
	return l.txnRepo.ListByItem(ctx, itemID, page, limit)
}

// VerifyLedger replays an item's ledger and compares the delta sum to
// the materialized balance.
func (l *ledger) VerifyLedger(ctx context.Context, itemID uint64) (*LedgerReport, error) {
	item, err := l.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	sum, err := l.txnRepo.SumQuantity(ctx, itemID)
	if err != nil {
		return nil, err
	}

	report := &LedgerReport{
		ItemID:       itemID,
		LedgerSum:    sum,
		Balance:      item.StockQuantity,
		IsConsistent: sum == int64(item.StockQuantity),
	}

	if !report.IsConsistent {
		log.WithFields(map[string]interface{}{
			"item_id":    itemID,
			"ledger_sum": sum,
			"balance":    item.StockQuantity,
		}).Warn("Ledger inconsistency detected")
	}

	return report, nil
}
