package order

import (
	"context"
	"fmt"
	"time"

	"orderdesk/internal/cache"
	"orderdesk/internal/model"
	"orderdesk/internal/monitor"
	"orderdesk/internal/repository"
	"orderdesk/internal/service/stock"
	"orderdesk/pkg/log"
	"orderdesk/pkg/snowflake"
	"orderdesk/pkg/utils"
)

// StockShortfallError reports line items that could not be deducted
// during order creation. The order itself is rolled back to cancelled.
type StockShortfallError struct {
	Result *stock.BatchResult
}

// Error implement error interface
func (e *StockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for %d order line(s)", e.Result.Failed)
}

// CreateOrderLine one requested line of a new order. Prices are always
// resolved server-side; anything the client sends is ignored.
type CreateOrderLine struct {
	ItemID        uint64
	Quantity      int
	Customization *string
}

// CreateOrderCommand typed, validated order creation command
type CreateOrderCommand struct {
	CustomerID           uint64
	Source               string
	Priority             int
	Notes                *string
	ExpectedDeliveryDate *time.Time
	Lines                []CreateOrderLine
	Actor                string
}

// StatusUpdate lifecycle status transition command. Nil fields are left
// unchanged.
type StatusUpdate struct {
	Status             *string
	PaymentStatus      *string
	ConfirmationStatus *string
	DeliveryStatus     *string
	ActualDeliveryDate *time.Time
	Actor              string
}

// OrderService order service interface
type OrderService interface {
	// CreateOrder validates, prices and persists an order, deducts
	// stock and invalidates listings
	CreateOrder(ctx context.Context, cmd *CreateOrderCommand) (*model.Order, error)

	// GetOrderByNumber gets an order by its business order number
	GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// ListOrders lists orders newest-first from an optional cursor
	ListOrders(ctx context.Context, afterID *uint64, limit int, status string) ([]*model.Order, *uint64, bool, error)

	// CancelOrder cancels an order and restores its deducted stock
	CancelOrder(ctx context.Context, orderNumber string, actor string) (*model.Order, error)

	// UpdateStatuses applies a lifecycle status transition to one order
	UpdateStatuses(ctx context.Context, orderNumber string, update *StatusUpdate) (*model.Order, error)

	// BulkUpdateStatuses applies a status transition to many orders
	BulkUpdateStatuses(ctx context.Context, ids []uint64, update *StatusUpdate) (int64, error)
}

// orderService order service implementation
type orderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	itemRepo     repository.ItemRepository
	auditRepo    repository.AuditLogRepository
	ledger       stock.Ledger
	listings     *cache.VersionedCache
	idGenerator  *snowflake.IDGenerator
}

// NewOrderService creates an order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	itemRepo repository.ItemRepository,
	auditRepo repository.AuditLogRepository,
	ledger stock.Ledger,
	listings *cache.VersionedCache,
	idGenerator *snowflake.IDGenerator,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		itemRepo:     itemRepo,
		auditRepo:    auditRepo,
		ledger:       ledger,
		listings:     listings,
		idGenerator:  idGenerator,
	}
}

// CreateOrder validates, prices and persists an order, then deducts
// stock per line. Any line failure rolls the whole order back to
// cancelled, restoring already-applied deductions. The cache version
// bumps happen before returning so the next listing read recomputes.
func (s *orderService) CreateOrder(ctx context.Context, cmd *CreateOrderCommand) (*model.Order, error) {
	if _, err := s.customerRepo.GetByID(ctx, cmd.CustomerID); err != nil {
		monitor.RecordOrderCreation("failure")
		return nil, err
	}

	ids := make([]uint64, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		ids = append(ids, line.ItemID)
	}

	items, err := s.itemRepo.GetByIDs(ctx, ids)
	if err != nil {
		monitor.RecordOrderCreation("failure")
		return nil, err
	}

	itemsByID := make(map[uint64]model.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	// Resolve prices server-side and snapshot them on the lines.
	var total int64
	orderItems := make([]model.OrderItem, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		item, ok := itemsByID[line.ItemID]
		if !ok {
			monitor.RecordOrderCreation("failure")
			return nil, utils.NewError(utils.CodeNotFound, fmt.Sprintf("item %d not found", line.ItemID))
		}

		orderItems = append(orderItems, model.OrderItem{
			ItemID:        item.ID,
			ItemName:      item.Name,
			Price:         item.Price,
			Quantity:      line.Quantity,
			Customization: line.Customization,
		})
		total += item.Price * int64(line.Quantity)
	}

	orderNumber := fmt.Sprintf("ORD-%d", s.idGenerator.NextID())

	order := &model.Order{
		OrderNumber:          orderNumber,
		CustomerID:           cmd.CustomerID,
		Source:               cmd.Source,
		TotalPrice:           total,
		Status:               model.OrderStatusPending,
		PaymentStatus:        model.PaymentStatusUnpaid,
		ConfirmationStatus:   model.ConfirmationStatusUnconfirmed,
		DeliveryStatus:       model.DeliveryStatusNotDispatched,
		Priority:             cmd.Priority,
		Notes:                cmd.Notes,
		OrderDate:            time.Now(),
		ExpectedDeliveryDate: cmd.ExpectedDeliveryDate,
		Items:                orderItems,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		monitor.RecordOrderCreation("failure")
		return nil, err
	}

	result := s.ledger.DeductForOrder(ctx, order.ID, order.Items, cmd.Actor)

	if result.HasFailures() {
		s.rollbackCreation(ctx, order, result, cmd.Actor)
		monitor.RecordOrderCreation("failure")
		return nil, &StockShortfallError{Result: result}
	}

	deducted := make([]uint64, 0, len(result.Results))
	for _, line := range result.Results {
		if line.Status == stock.LineStatusApplied {
			deducted = append(deducted, line.ItemID)
		}
	}
	if err := s.orderRepo.SetItemsDeducted(ctx, order.ID, deducted, true); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("Failed to flag deducted lines")
	}

	s.audit(ctx, cmd.Actor, model.AuditActionCreate, order.ID, model.JSONMap{
		"order_number": order.OrderNumber,
		"total_price":  order.TotalPrice,
		"lines":        len(order.Items),
	})

	s.listings.BumpVersion(ctx, cache.ResourceOrders)
	s.listings.BumpVersion(ctx, cache.ResourceStock)

	monitor.RecordOrderCreation("success")

	log.WithFields(map[string]interface{}{
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"total_price":  order.TotalPrice,
	}).Info("Order created")

	return order, nil
}

// rollbackCreation restores any applied deductions and marks the order
// cancelled. The order row survives for the audit trail.
func (s *orderService) rollbackCreation(ctx context.Context, order *model.Order, result *stock.BatchResult, actor string) {
	var applied []model.OrderItem
	for _, line := range result.Results {
		if line.Status != stock.LineStatusApplied {
			continue
		}
		applied = append(applied, model.OrderItem{
			ItemID:        line.ItemID,
			Quantity:      line.Quantity,
			StockDeducted: true,
		})
	}

	if len(applied) > 0 {
		restore := s.ledger.RestoreForOrder(ctx, order.ID, applied, actor)
		if restore.HasFailures() {
			log.WithFields(map[string]interface{}{
				"order_id": order.ID,
				"failed":   restore.Failed,
			}).Error("Failed to restore stock while rolling back order creation")
		}
	}

	if err := s.orderRepo.UpdateStatuses(ctx, order.ID, map[string]interface{}{
		"status": model.OrderStatusCancelled,
	}); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("Failed to cancel order after stock shortfall")
	}

	s.audit(ctx, actor, model.AuditActionCancel, order.ID, model.JSONMap{
		"order_number": order.OrderNumber,
		"reason":       "insufficient stock",
	})

	s.listings.BumpVersion(ctx, cache.ResourceOrders)
	s.listings.BumpVersion(ctx, cache.ResourceStock)
}

// GetOrderByNumber gets an order by its business order number
func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	return s.orderRepo.GetByOrderNumber(ctx, orderNumber)
}

// ListOrders lists orders newest-first from an optional cursor. Returns
// the page, the next cursor id and whether more rows exist.
func (s *orderService) ListOrders(ctx context.Context, afterID *uint64, limit int, status string) ([]*model.Order, *uint64, bool, error) {
	rows, err := s.orderRepo.ListCursor(ctx, afterID, limit, status)
	if err != nil {
		return nil, nil, false, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	var nextID *uint64
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		nextID = &last
	}

	return rows, nextID, hasMore, nil
}

// CancelOrder cancels an order and restores its deducted stock
func (s *orderService) CancelOrder(ctx context.Context, orderNumber string, actor string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.CanCancel() {
		return nil, utils.NewError(utils.CodeConflict, fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
	}

	result := s.ledger.RestoreForOrder(ctx, order.ID, order.Items, actor)
	if result.HasFailures() {
		return nil, utils.NewError(utils.CodeInternalError, "failed to restore stock for cancelled order")
	}

	// Clear the deducted flags before touching the status: if the
	// status update fails, a retried cancel must not restore the same
	// lines again.
	restored := make([]uint64, 0, len(order.Items))
	for i := range order.Items {
		if order.Items[i].StockDeducted {
			restored = append(restored, order.Items[i].ItemID)
			order.Items[i].StockDeducted = false
		}
	}
	if err := s.orderRepo.SetItemsDeducted(ctx, order.ID, restored, false); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatuses(ctx, order.ID, map[string]interface{}{
		"status": model.OrderStatusCancelled,
	}); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusCancelled

	s.audit(ctx, actor, model.AuditActionCancel, order.ID, model.JSONMap{
		"order_number": order.OrderNumber,
	})

	s.listings.BumpVersion(ctx, cache.ResourceOrders)
	s.listings.BumpVersion(ctx, cache.ResourceStock)

	log.WithFields(map[string]interface{}{
		"order_number": order.OrderNumber,
		"restored":     result.Applied,
	}).Info("Order cancelled")

	return order, nil
}

// statusFields validates a transition and flattens it to column updates
func statusFields(update *StatusUpdate) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if update.Status != nil {
		switch *update.Status {
		case model.OrderStatusPending, model.OrderStatusActive, model.OrderStatusCompleted:
			updates["status"] = *update.Status
		case model.OrderStatusCancelled:
			return nil, utils.NewError(utils.CodeInvalidParam, "use the cancel operation to cancel an order")
		default:
			return nil, utils.NewError(utils.CodeInvalidParam, fmt.Sprintf("unknown status: %s", *update.Status))
		}
	}

	if update.PaymentStatus != nil {
		switch *update.PaymentStatus {
		case model.PaymentStatusUnpaid, model.PaymentStatusPartial, model.PaymentStatusPaid, model.PaymentStatusRefunded:
			updates["payment_status"] = *update.PaymentStatus
		default:
			return nil, utils.NewError(utils.CodeInvalidParam, fmt.Sprintf("unknown payment status: %s", *update.PaymentStatus))
		}
	}

	if update.ConfirmationStatus != nil {
		switch *update.ConfirmationStatus {
		case model.ConfirmationStatusUnconfirmed, model.ConfirmationStatusConfirmed:
			updates["confirmation_status"] = *update.ConfirmationStatus
		default:
			return nil, utils.NewError(utils.CodeInvalidParam, fmt.Sprintf("unknown confirmation status: %s", *update.ConfirmationStatus))
		}
	}

	if update.DeliveryStatus != nil {
		switch *update.DeliveryStatus {
		case model.DeliveryStatusNotDispatched, model.DeliveryStatusDispatched, model.DeliveryStatusDelivered:
			updates["delivery_status"] = *update.DeliveryStatus
		default:
			return nil, utils.NewError(utils.CodeInvalidParam, fmt.Sprintf("unknown delivery status: %s", *update.DeliveryStatus))
		}
		if *update.DeliveryStatus == model.DeliveryStatusDelivered && update.ActualDeliveryDate == nil {
			now := time.Now()
			update.ActualDeliveryDate = &now
		}
	}

	if update.ActualDeliveryDate != nil {
		updates["actual_delivery_date"] = update.ActualDeliveryDate
	}

	if len(updates) == 0 {
		return nil, utils.NewError(utils.CodeInvalidParam, "no status fields to update")
	}

	return updates, nil
}

// UpdateStatuses applies a lifecycle status transition to one order
func (s *orderService) UpdateStatuses(ctx context.Context, orderNumber string, update *StatusUpdate) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	updates, err := statusFields(update)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatuses(ctx, order.ID, updates); err != nil {
		return nil, err
	}

	s.audit(ctx, update.Actor, model.AuditActionStatusChange, order.ID, model.JSONMap{
		"order_number": order.OrderNumber,
		"updates":      updates,
	})

	s.listings.BumpVersion(ctx, cache.ResourceOrders)

	return s.orderRepo.GetByOrderNumber(ctx, orderNumber)
}

// BulkUpdateStatuses applies a status transition to many orders
func (s *orderService) BulkUpdateStatuses(ctx context.Context, ids []uint64, update *StatusUpdate) (int64, error) {
	if len(ids) == 0 {
		return 0, utils.NewError(utils.CodeInvalidParam, "no order ids given")
	}

	updates, err := statusFields(update)
	if err != nil {
		return 0, err
	}

	affected, err := s.orderRepo.BulkUpdateStatuses(ctx, ids, updates)
	if err != nil {
		return 0, err
	}

	s.audit(ctx, update.Actor, model.AuditActionStatusChange, 0, model.JSONMap{
		"order_ids": ids,
		"updates":   updates,
		"affected":  affected,
	})

	s.listings.BumpVersion(ctx, cache.ResourceOrders)

	return affected, nil
}

// audit appends an audit entry, logging failures without surfacing them
func (s *orderService) audit(ctx context.Context, actor, action string, entityID uint64, detail model.JSONMap) {
	if actor == "" {
		actor = "system"
	}
	entry := &model.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: "order",
		EntityID:   entityID,
		Detail:     detail,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to write audit entry")
	}
}
