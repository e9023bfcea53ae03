package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orderdesk/internal/cache"
	"orderdesk/internal/middleware"
	"orderdesk/internal/monitor"
	"orderdesk/internal/pagination"
	"orderdesk/internal/service/order"
	"orderdesk/pkg/utils"
)

// OrderHandler order handler
type OrderHandler struct {
	orderService order.OrderService
	listings     *cache.VersionedCache
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService, listings *cache.VersionedCache) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		listings:     listings,
	}
}

// createOrderLine one requested order line; prices are resolved
// server-side and any client-supplied price is ignored
type createOrderLine struct {
	ItemID        uint64  `json:"item_id" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required,gt=0"`
	Customization *string `json:"customization"`
}

// createOrderRequest order creation request body
type createOrderRequest struct {
	CustomerID           uint64            `json:"customer_id" binding:"required"`
	Source               string            `json:"source" binding:"required,oneof=web phone in_person marketplace"`
	Priority             int               `json:"priority" binding:"gte=0,lte=5"`
	Notes                *string           `json:"notes"`
	ExpectedDeliveryDate *time.Time        `json:"expected_delivery_date"`
	Items                []createOrderLine `json:"items" binding:"required,min=1,dive"`
}

// updateStatusRequest lifecycle status update request body
type updateStatusRequest struct {
	Status             *string    `json:"status"`
	PaymentStatus      *string    `json:"payment_status"`
	ConfirmationStatus *string    `json:"confirmation_status"`
	DeliveryStatus     *string    `json:"delivery_status"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date"`
}

// bulkUpdateStatusRequest bulk status update request body
type bulkUpdateStatusRequest struct {
	OrderIDs []uint64 `json:"order_ids" binding:"required,min=1"`
	updateStatusRequest
}

// ListOrders lists orders with cursor pagination through the versioned
// listing cache
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)

	cursor, err := pagination.DecodeCursor(c.Query("cursor"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid cursor")
		return
	}
	status := c.Query("status")

	ctx := c.Request.Context()
	version := h.listings.Version(ctx, cache.ResourceOrders)
	key := h.listings.BuildKey(cache.ResourceOrders, version, c.Request.Method, c.Request.URL.RequestURI())

	payload, hit, err := h.listings.ReadThrough(ctx, key, version, 0, func() ([]byte, int, error) {
		var afterID *uint64
		if cursor != nil {
			afterID = &cursor.LastID
		}

		orders, nextID, hasMore, err := h.orderService.ListOrders(ctx, afterID, limit, status)
		if err != nil {
			return nil, 0, err
		}

		var nextCursor *string
		if nextID != nil {
			token := pagination.Cursor{LastID: *nextID}.Encode()
			nextCursor = &token
		}

		body, err := json.Marshal(utils.Response{
			Code:    utils.CodeSuccess,
			Message: "success",
			Data: utils.CursorPageResponse{
				List:       orders,
				NextCursor: nextCursor,
				HasMore:    hasMore,
			},
			Timestamp: time.Now().Unix(),
		})
		return body, len(orders), err
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	monitor.RecordCacheRequest(cache.ResourceOrders, hit)
	setCacheHeader(c, hit)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// GetOrder gets an order by order number
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderNumber := c.Param("order_number")
	if orderNumber == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing order_number parameter")
		return
	}

	result, err := h.orderService.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// CreateOrder creates an order, deducting stock and invalidating
// listings
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	cmd := &order.CreateOrderCommand{
		CustomerID:           req.CustomerID,
		Source:               req.Source,
		Priority:             req.Priority,
		Notes:                req.Notes,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Actor:                actorFrom(c),
	}
	for _, line := range req.Items {
		cmd.Lines = append(cmd.Lines, order.CreateOrderLine{
			ItemID:        line.ItemID,
			Quantity:      line.Quantity,
			Customization: line.Customization,
		})
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		var shortfall *order.StockShortfallError
		if errors.As(err, &shortfall) {
			c.JSON(http.StatusBadRequest, utils.Response{
				Code:      utils.CodeInsufficientStock,
				Message:   shortfall.Error(),
				Data:      shortfall.Result,
				Timestamp: time.Now().Unix(),
			})
			return
		}
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, created)
}

// CancelOrder cancels an order and restores its deducted stock
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderNumber := c.Param("order_number")
	if orderNumber == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing order_number parameter")
		return
	}

	cancelled, err := h.orderService.CancelOrder(c.Request.Context(), orderNumber, actorFrom(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cancelled)
}

// UpdateStatus applies a lifecycle status transition to one order
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderNumber := c.Param("order_number")
	if orderNumber == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing order_number parameter")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	updated, err := h.orderService.UpdateStatuses(c.Request.Context(), orderNumber, &order.StatusUpdate{
		Status:             req.Status,
		PaymentStatus:      req.PaymentStatus,
		ConfirmationStatus: req.ConfirmationStatus,
		DeliveryStatus:     req.DeliveryStatus,
		ActualDeliveryDate: req.ActualDeliveryDate,
		Actor:              actorFrom(c),
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, updated)
}

// BulkUpdateStatus applies a status transition to many orders
func (h *OrderHandler) BulkUpdateStatus(c *gin.Context) {
	var req bulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	affected, err := h.orderService.BulkUpdateStatuses(c.Request.Context(), req.OrderIDs, &order.StatusUpdate{
		Status:             req.Status,
		PaymentStatus:      req.PaymentStatus,
		ConfirmationStatus: req.ConfirmationStatus,
		DeliveryStatus:     req.DeliveryStatus,
		ActualDeliveryDate: req.ActualDeliveryDate,
		Actor:              actorFrom(c),
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"affected": affected})
}

// setCacheHeader marks responses served through the listing cache
func setCacheHeader(c *gin.Context, hit bool) {
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
}

// actorFrom resolves the acting user for audit entries
func actorFrom(c *gin.Context) string {
	if user := middleware.CurrentUser(c); user != nil {
		return user.Email
	}
	return ""
}
