package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"orderdesk/internal/cache"
	"orderdesk/internal/model"
	"orderdesk/internal/repository"
	"orderdesk/internal/service/stock"
	"orderdesk/pkg/snowflake"
	"orderdesk/pkg/utils"
)

// MockOrderRepository is a mock implementation of repository.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListCursor(ctx context.Context, afterID *uint64, limit int, status string) ([]*model.Order, error) {
	args := m.Called(ctx, afterID, limit, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatuses(ctx context.Context, id uint64, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockOrderRepository) BulkUpdateStatuses(ctx context.Context, ids []uint64, updates map[string]interface{}) (int64, error) {
	args := m.Called(ctx, ids, updates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) SetItemsDeducted(ctx context.Context, orderID uint64, itemIDs []uint64, deducted bool) error {
	args := m.Called(ctx, orderID, itemIDs, deducted)
	return args.Error(0)
}

// MockCustomerRepository is a mock implementation of repository.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Update(ctx context.Context, id uint64, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	args := m.Called(ctx, page, limit, search)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Customer), args.Get(1).(int64), args.Error(2)
}

// MockItemRepository is a mock implementation of repository.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *model.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, id uint64) (*model.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemRepository) GetByIDs(ctx context.Context, ids []uint64) ([]model.Item, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *MockItemRepository) Update(ctx context.Context, id uint64, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockItemRepository) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemRepository) List(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.Item, int64, error) {
	args := m.Called(ctx, page, limit, lowStockOnly)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Item), args.Get(1).(int64), args.Error(2)
}

func (m *MockItemRepository) ListLowStock(ctx context.Context) ([]model.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of repository.AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) List(ctx context.Context, page, limit int, entityType string) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, page, limit, entityType)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.AuditLog), args.Get(1).(int64), args.Error(2)
}

// MockLedger is a mock implementation of stock.Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AdjustStock(ctx context.Context, itemID uint64, delta int, txnType string, meta stock.AdjustmentMeta) (*model.StockTransaction, error) {
	args := m.Called(ctx, itemID, delta, txnType, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StockTransaction), args.Error(1)
}

func (m *MockLedger) DeductForOrder(ctx context.Context, orderID uint64, lines []model.OrderItem, actor string) *stock.BatchResult {
	args := m.Called(ctx, orderID, lines, actor)
	return args.Get(0).(*stock.BatchResult)
}

func (m *MockLedger) RestoreForOrder(ctx context.Context, orderID uint64, lines []model.OrderItem, actor string) *stock.BatchResult {
	args := m.Called(ctx, orderID, lines, actor)
	return args.Get(0).(*stock.BatchResult)
}

func (m *MockLedger) BulkAdjust(ctx context.Context, adjustments []stock.Adjustment, txnType string) *stock.BatchResult {
	args := m.Called(ctx, adjustments, txnType)
	return args.Get(0).(*stock.BatchResult)
}

func (m *MockLedger) LowStockItems(ctx context.Context) ([]model.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *MockLedger) TransactionHistory(ctx context.Context, itemID uint64, page, limit int) ([]model.StockTransaction, int64, error) {
	args := m.Called(ctx, itemID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.StockTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedger) VerifyLedger(ctx context.Context, itemID uint64) (*stock.LedgerReport, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.LedgerReport), args.Error(1)
}

type orderServiceMocks struct {
	orderRepo    *MockOrderRepository
	customerRepo *MockCustomerRepository
	itemRepo     *MockItemRepository
	auditRepo    *MockAuditLogRepository
	ledger       *MockLedger
}

func setupOrderService() (OrderService, *orderServiceMocks) {
	mocks := &orderServiceMocks{
		orderRepo:    new(MockOrderRepository),
		customerRepo: new(MockCustomerRepository),
		itemRepo:     new(MockItemRepository),
		auditRepo:    new(MockAuditLogRepository),
		ledger:       new(MockLedger),
	}

	idGenerator, _ := snowflake.NewIDGenerator(1)
	listings := cache.New(nil, "test:", time.Minute)

	svc := NewOrderService(
		mocks.orderRepo,
		mocks.customerRepo,
		mocks.itemRepo,
		mocks.auditRepo,
		mocks.ledger,
		listings,
		idGenerator,
	)

	return svc, mocks
}

func appliedResult(lines []model.OrderItem) *stock.BatchResult {
	result := &stock.BatchResult{}
	for _, line := range lines {
		result.Results = append(result.Results, stock.LineResult{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Status:   stock.LineStatusApplied,
		})
		result.Applied++
	}
	return result
}

func TestOrderService_CreateOrder(t *testing.T) {
	svc, mocks := setupOrderService()

	mocks.customerRepo.On("GetByID", mock.Anything, uint64(1)).
		Return(&model.Customer{ID: 1, Name: "Juliette"}, nil)
	mocks.itemRepo.On("GetByIDs", mock.Anything, []uint64{10, 11}).
		Return([]model.Item{
			{ID: 10, Name: "Lavender Candle", Price: 1250, TrackStock: true},
			{ID: 11, Name: "Soy Wax", Price: 800, TrackStock: true},
		}, nil)
	mocks.orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Order).ID = 42
		}).
		Return(nil)
	mocks.ledger.On("DeductForOrder", mock.Anything, uint64(42), mock.Anything, "staff@example.com").
		Return(&stock.BatchResult{
			Results: []stock.LineResult{
				{ItemID: 10, Quantity: 2, Status: stock.LineStatusApplied},
				{ItemID: 11, Quantity: 1, Status: stock.LineStatusApplied},
			},
			Applied: 2,
		})
	mocks.orderRepo.On("SetItemsDeducted", mock.Anything, uint64(42), []uint64{10, 11}, true).
		Return(nil)
	mocks.auditRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.AuditLog")).
		Return(nil)

	cmd := &CreateOrderCommand{
		CustomerID: 1,
		Source:     model.OrderSourceWeb,
		Lines: []CreateOrderLine{
			{ItemID: 10, Quantity: 2},
			{ItemID: 11, Quantity: 1},
		},
		Actor: "staff@example.com",
	}

	order, err := svc.CreateOrder(context.Background(), cmd)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, order.PaymentStatus)

	// prices come from the catalog, not the client
	assert.Equal(t, int64(2*1250+800), order.TotalPrice)
	assert.Equal(t, int64(1250), order.Items[0].Price)

	mocks.orderRepo.AssertExpectations(t)
	mocks.ledger.AssertExpectations(t)
	mocks.auditRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_UnknownItem(t *testing.T) {
	svc, mocks := setupOrderService()

	mocks.customerRepo.On("GetByID", mock.Anything, uint64(1)).
		Return(&model.Customer{ID: 1}, nil)
	mocks.itemRepo.On("GetByIDs", mock.Anything, []uint64{10, 99}).
		Return([]model.Item{{ID: 10, Name: "Lavender Candle", Price: 1250}}, nil)

	cmd := &CreateOrderCommand{
		CustomerID: 1,
		Source:     model.OrderSourceWeb,
		Lines: []CreateOrderLine{
			{ItemID: 10, Quantity: 1},
			{ItemID: 99, Quantity: 1},
		},
	}

	order, err := svc.CreateOrder(context.Background(), cmd)
	assert.Nil(t, order)
	assert.Equal(t, utils.CodeNotFound, utils.GetErrorCode(err))

	// nothing was persisted
	mocks.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_StockShortfallRollsBack(t *testing.T) {
	svc, mocks := setupOrderService()

	mocks.customerRepo.On("GetByID", mock.Anything, uint64(1)).
		Return(&model.Customer{ID: 1}, nil)
	mocks.itemRepo.On("GetByIDs", mock.Anything, []uint64{10, 11}).
		Return([]model.Item{
			{ID: 10, Name: "Lavender Candle", Price: 1250, TrackStock: true},
			{ID: 11, Name: "Soy Wax", Price: 800, TrackStock: true},
		}, nil)
	mocks.orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Order).ID = 42
		}).
		Return(nil)

	// first line deducts, second falls short
	mocks.ledger.On("DeductForOrder", mock.Anything, uint64(42), mock.Anything, "").
		Return(&stock.BatchResult{
			Results: []stock.LineResult{
				{ItemID: 10, Quantity: 2, Status: stock.LineStatusApplied},
				{ItemID: 11, Quantity: 5, Status: stock.LineStatusFailed, Error: "insufficient stock"},
			},
			Applied: 1,
			Failed:  1,
		})

	// the applied deduction is restored and the order is soft-cancelled
	mocks.ledger.On("RestoreForOrder", mock.Anything, uint64(42), mock.MatchedBy(func(lines []model.OrderItem) bool {
		return len(lines) == 1 && lines[0].ItemID == 10 && lines[0].StockDeducted
	}), "").
		Return(appliedResult([]model.OrderItem{{ItemID: 10, Quantity: 2, StockDeducted: true}}))
	mocks.orderRepo.On("UpdateStatuses", mock.Anything, uint64(42), map[string]interface{}{
		"status": model.OrderStatusCancelled,
	}).Return(nil)
	mocks.auditRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.AuditLog")).
		Return(nil)

	cmd := &CreateOrderCommand{
		CustomerID: 1,
		Source:     model.OrderSourcePhone,
		Lines: []CreateOrderLine{
			{ItemID: 10, Quantity: 2},
			{ItemID: 11, Quantity: 5},
		},
	}

	order, err := svc.CreateOrder(context.Background(), cmd)
	assert.Nil(t, order)

	var shortfall *StockShortfallError
	assert.ErrorAs(t, err, &shortfall)
	assert.Equal(t, 1, shortfall.Result.Failed)

	mocks.ledger.AssertExpectations(t)
	mocks.orderRepo.AssertExpectations(t)
	mocks.orderRepo.AssertNotCalled(t, "SetItemsDeducted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CancelOrder(t *testing.T) {
	svc, mocks := setupOrderService()

	order := &model.Order{
		ID:          42,
		OrderNumber: "ORD-1",
		Status:      model.OrderStatusPending,
		Items: []model.OrderItem{
			{ItemID: 10, Quantity: 2, StockDeducted: true},
		},
	}

	mocks.orderRepo.On("GetByOrderNumber", mock.Anything, "ORD-1").Return(order, nil)
	mocks.ledger.On("RestoreForOrder", mock.Anything, uint64(42), order.Items, "staff@example.com").
		Return(appliedResult(order.Items))
	mocks.orderRepo.On("SetItemsDeducted", mock.Anything, uint64(42), []uint64{10}, false).
		Return(nil)
	mocks.orderRepo.On("UpdateStatuses", mock.Anything, uint64(42), map[string]interface{}{
		"status": model.OrderStatusCancelled,
	}).Return(nil)
	mocks.auditRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.AuditLog")).
		Return(nil)

	cancelled, err := svc.CancelOrder(context.Background(), "ORD-1", "staff@example.com")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.Items[0].StockDeducted)

	mocks.ledger.AssertExpectations(t)
	mocks.orderRepo.AssertExpectations(t)
}

func TestOrderService_CancelOrder_StatusFailureStillClearsDeducted(t *testing.T) {
	svc, mocks := setupOrderService()

	order := &model.Order{
		ID:          42,
		OrderNumber: "ORD-1",
		Status:      model.OrderStatusPending,
		Items: []model.OrderItem{
			{ItemID: 10, Quantity: 2, StockDeducted: true},
		},
	}

	mocks.orderRepo.On("GetByOrderNumber", mock.Anything, "ORD-1").Return(order, nil)
	mocks.ledger.On("RestoreForOrder", mock.Anything, uint64(42), mock.Anything, "staff@example.com").
		Return(appliedResult(order.Items))
	mocks.orderRepo.On("SetItemsDeducted", mock.Anything, uint64(42), []uint64{10}, false).
		Return(nil)
	mocks.orderRepo.On("UpdateStatuses", mock.Anything, uint64(42), map[string]interface{}{
		"status": model.OrderStatusCancelled,
	}).Return(errors.New("connection reset"))

	_, err := svc.CancelOrder(context.Background(), "ORD-1", "staff@example.com")
	assert.Error(t, err)

	// the flags are gone, so retrying the cancel cannot restore the
	// same lines a second time
	mocks.orderRepo.AssertCalled(t, "SetItemsDeducted", mock.Anything, uint64(42), []uint64{10}, false)
	mocks.ledger.AssertNumberOfCalls(t, "RestoreForOrder", 1)
}

func TestOrderService_CancelOrder_CompletedConflict(t *testing.T) {
	svc, mocks := setupOrderService()

	mocks.orderRepo.On("GetByOrderNumber", mock.Anything, "ORD-1").
		Return(&model.Order{ID: 42, OrderNumber: "ORD-1", Status: model.OrderStatusCompleted}, nil)

	cancelled, err := svc.CancelOrder(context.Background(), "ORD-1", "")
	assert.Nil(t, cancelled)
	assert.Equal(t, utils.CodeConflict, utils.GetErrorCode(err))

	mocks.ledger.AssertNotCalled(t, "RestoreForOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_UpdateStatuses_RejectsCancelled(t *testing.T) {
	svc, mocks := setupOrderService()

	mocks.orderRepo.On("GetByOrderNumber", mock.Anything, "ORD-1").
		Return(&model.Order{ID: 42, OrderNumber: "ORD-1", Status: model.OrderStatusPending}, nil)

	cancelled := model.OrderStatusCancelled
	updated, err := svc.UpdateStatuses(context.Background(), "ORD-1", &StatusUpdate{Status: &cancelled})
	assert.Nil(t, updated)
	assert.Equal(t, utils.CodeInvalidParam, utils.GetErrorCode(err))

	mocks.orderRepo.AssertNotCalled(t, "UpdateStatuses", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_UpdateStatuses_DeliveredSetsDate(t *testing.T) {
	svc, mocks := setupOrderService()

	order := &model.Order{ID: 42, OrderNumber: "ORD-1", Status: model.OrderStatusActive}
	mocks.orderRepo.On("GetByOrderNumber", mock.Anything, "ORD-1").Return(order, nil)
	mocks.orderRepo.On("UpdateStatuses", mock.Anything, uint64(42), mock.MatchedBy(func(updates map[string]interface{}) bool {
		_, hasDate := updates["actual_delivery_date"]
		return updates["delivery_status"] == model.DeliveryStatusDelivered && hasDate
	})).Return(nil)
	mocks.auditRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.AuditLog")).
		Return(nil)

	delivered := model.DeliveryStatusDelivered
	_, err := svc.UpdateStatuses(context.Background(), "ORD-1", &StatusUpdate{DeliveryStatus: &delivered})
	assert.NoError(t, err)

	mocks.orderRepo.AssertExpectations(t)
}

func TestOrderService_ListOrders_Pagination(t *testing.T) {
	svc, mocks := setupOrderService()

	// repo hands back limit+1 rows, service trims and points the cursor
	rows := []*model.Order{
		{ID: 30, OrderNumber: "ORD-30"},
		{ID: 20, OrderNumber: "ORD-20"},
		{ID: 10, OrderNumber: "ORD-10"},
	}
	mocks.orderRepo.On("ListCursor", mock.Anything, (*uint64)(nil), 2, "").Return(rows, nil)

	page, nextID, hasMore, err := svc.ListOrders(context.Background(), nil, 2, "")
	assert.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, uint64(20), *nextID)
}

func TestOrderService_ListOrders_LastPage(t *testing.T) {
	svc, mocks := setupOrderService()

	rows := []*model.Order{
		{ID: 20, OrderNumber: "ORD-20"},
		{ID: 10, OrderNumber: "ORD-10"},
	}
	mocks.orderRepo.On("ListCursor", mock.Anything, (*uint64)(nil), 2, "").Return(rows, nil)

	page, nextID, hasMore, err := svc.ListOrders(context.Background(), nil, 2, "")
	assert.NoError(t, err)
	assert.Len(t, page, 2)
	assert.False(t, hasMore)
	assert.Nil(t, nextID)
}

func TestOrderService_BulkUpdateStatuses(t *testing.T) {
	svc, mocks := setupOrderService()

	paid := model.PaymentStatusPaid
	mocks.orderRepo.On("BulkUpdateStatuses", mock.Anything, []uint64{1, 2, 3}, map[string]interface{}{
		"payment_status": paid,
	}).Return(int64(2), nil)
	mocks.auditRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.AuditLog")).
		Return(nil)

	affected, err := svc.BulkUpdateStatuses(context.Background(), []uint64{1, 2, 3}, &StatusUpdate{PaymentStatus: &paid})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestOrderService_BulkUpdateStatuses_NoIDs(t *testing.T) {
	svc, _ := setupOrderService()

	paid := model.PaymentStatusPaid
	affected, err := svc.BulkUpdateStatuses(context.Background(), nil, &StatusUpdate{PaymentStatus: &paid})
	assert.Zero(t, affected)
	assert.Equal(t, utils.CodeInvalidParam, utils.GetErrorCode(err))
}

// Repository interface compliance for the mocks
var (
	_ repository.OrderRepository    = (*MockOrderRepository)(nil)
	_ repository.CustomerRepository = (*MockCustomerRepository)(nil)
	_ repository.ItemRepository     = (*MockItemRepository)(nil)
	_ repository.AuditLogRepository = (*MockAuditLogRepository)(nil)
	_ stock.Ledger                  = (*MockLedger)(nil)
)
