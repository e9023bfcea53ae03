package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orderdesk/internal/cache"
	"orderdesk/internal/model"
	"orderdesk/internal/monitor"
	"orderdesk/internal/pagination"
	"orderdesk/internal/repository"
	"orderdesk/internal/service/stock"
	"orderdesk/pkg/utils"
)

// StockHandler stock handler
type StockHandler struct {
	ledger   stock.Ledger
	itemRepo repository.ItemRepository
	listings *cache.VersionedCache
}

// NewStockHandler creates a stock handler
func NewStockHandler(ledger stock.Ledger, itemRepo repository.ItemRepository, listings *cache.VersionedCache) *StockHandler {
	return &StockHandler{
		ledger:   ledger,
		itemRepo: itemRepo,
		listings: listings,
	}
}

// stockItemView item with its derived low-stock flag
type stockItemView struct {
	model.Item
	IsLowStock bool `json:"is_low_stock"`
}

// adjustEntry one entry of a bulk stock adjustment request
type adjustEntry struct {
	ItemID   uint64  `json:"item_id" binding:"required"`
	Quantity int     `json:"quantity" binding:"required"`
	Note     *string `json:"note"`
}

// adjustRequest bulk stock adjustment request body
type adjustRequest struct {
	Type        string        `json:"type" binding:"required,oneof=adjustment restock return"`
	Adjustments []adjustEntry `json:"adjustments" binding:"required,min=1,dive"`
}

// ListStock lists items with their stock levels, offset-paginated
// through the versioned listing cache
func (h *StockHandler) ListStock(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)
	lowStockOnly := c.Query("lowStockOnly") == "true"

	ctx := c.Request.Context()
	version := h.listings.Version(ctx, cache.ResourceStock)
	key := h.listings.BuildKey(cache.ResourceStock, version, c.Request.Method, c.Request.URL.RequestURI())

	payload, hit, err := h.listings.ReadThrough(ctx, key, version, 0, func() ([]byte, int, error) {
		items, total, err := h.itemRepo.List(ctx, page, limit, lowStockOnly)
		if err != nil {
			return nil, 0, err
		}

		views := make([]stockItemView, 0, len(items))
		for _, item := range items {
			views = append(views, stockItemView{
				Item:       item,
				IsLowStock: item.IsLowStock(),
			})
		}

		body, err := json.Marshal(utils.Response{
			Code:    utils.CodeSuccess,
			Message: "success",
			Data: utils.OffsetPageResponse{
				List:       views,
				Total:      total,
				Page:       page,
				Limit:      limit,
				TotalPages: pagination.TotalPages(total, limit),
			},
			Timestamp: time.Now().Unix(),
		})
		return body, len(views), err
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	monitor.RecordCacheRequest(cache.ResourceStock, hit)
	setCacheHeader(c, hit)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// ListLowStock lists tracked items at or below threshold, most urgent
// first
func (h *StockHandler) ListLowStock(c *gin.Context) {
	items, err := h.ledger.LowStockItems(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	views := make([]stockItemView, 0, len(items))
	for _, item := range items {
		views = append(views, stockItemView{Item: item, IsLowStock: true})
	}

	utils.SuccessResponse(c, views)
}

// TransactionHistory pages one item's ledger, newest first
func (h *StockHandler) TransactionHistory(c *gin.Context) {
	itemID, err := utils.ValidateID(c.Param("item_id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)

	txns, total, err := h.ledger.TransactionHistory(c.Request.Context(), itemID, page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, txns, total, page, limit)
}

// Adjust applies a bulk stock adjustment; entries succeed or fail
// independently
func (h *StockHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	actor := actorFrom(c)
	adjustments := make([]stock.Adjustment, 0, len(req.Adjustments))
	for _, entry := range req.Adjustments {
		meta := stock.AdjustmentMeta{Note: entry.Note}
		if actor != "" {
			a := actor
			meta.Actor = &a
		}
		adjustments = append(adjustments, stock.Adjustment{
			ItemID:   entry.ItemID,
			Quantity: entry.Quantity,
			Meta:     meta,
		})
	}

	result := h.ledger.BulkAdjust(c.Request.Context(), adjustments, req.Type)

	h.listings.BumpVersion(c.Request.Context(), cache.ResourceStock)

	utils.SuccessResponse(c, result)
}

// VerifyLedger replays an item's ledger against its balance
func (h *StockHandler) VerifyLedger(c *gin.Context) {
	itemID, err := utils.ValidateID(c.Param("item_id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	report, err := h.ledger.VerifyLedger(c.Request.Context(), itemID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}
