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

// ItemHandler catalog item handler
type ItemHandler struct {
	itemRepo repository.ItemRepository
	ledger   stock.Ledger
	listings *cache.VersionedCache
}

// NewItemHandler creates an item handler
func NewItemHandler(itemRepo repository.ItemRepository, ledger stock.Ledger, listings *cache.VersionedCache) *ItemHandler {
	return &ItemHandler{
		itemRepo: itemRepo,
		ledger:   ledger,
		listings: listings,
	}
}

// createItemRequest item creation request body
type createItemRequest struct {
	Name              string  `json:"name" binding:"required,max=200"`
	Description       *string `json:"description"`
	Price             int64   `json:"price" binding:"required,gt=0"`
	ImageURL          *string `json:"image_url"`
	InitialStock      int     `json:"initial_stock" binding:"gte=0"`
	LowStockThreshold int     `json:"low_stock_threshold" binding:"gte=0"`
	TrackStock        *bool   `json:"track_stock"`
	CostPrice         *int64  `json:"cost_price"`
	Supplier          *string `json:"supplier"`
}

// updateItemRequest item update request body; nil fields are unchanged
type updateItemRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	Price             *int64  `json:"price"`
	ImageURL          *string `json:"image_url"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	TrackStock        *bool   `json:"track_stock"`
	CostPrice         *int64  `json:"cost_price"`
	Supplier          *string `json:"supplier"`
}

// ListItems lists catalog items through the versioned listing cache.
// Items share the stock resource version: any stock movement changes
// what this listing shows.
func (h *ItemHandler) ListItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)

	ctx := c.Request.Context()
	version := h.listings.Version(ctx, cache.ResourceStock)
	key := h.listings.BuildKey(cache.ResourceStock, version, c.Request.Method, c.Request.URL.RequestURI())

	payload, hit, err := h.listings.ReadThrough(ctx, key, version, 0, func() ([]byte, int, error) {
		items, total, err := h.itemRepo.List(ctx, page, limit, false)
		if err != nil {
			return nil, 0, err
		}

		body, err := json.Marshal(utils.Response{
			Code:    utils.CodeSuccess,
			Message: "success",
			Data: utils.OffsetPageResponse{
				List:       items,
				Total:      total,
				Page:       page,
				Limit:      limit,
				TotalPages: pagination.TotalPages(total, limit),
			},
			Timestamp: time.Now().Unix(),
		})
		return body, len(items), err
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	monitor.RecordCacheRequest(cache.ResourceStock, hit)
	setCacheHeader(c, hit)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// GetItem gets an item by ID
func (h *ItemHandler) GetItem(c *gin.Context) {
	id, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	item, err := h.itemRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}

// CreateItem creates a catalog item. Initial stock enters through the
// ledger so the balance stays reproducible from transactions alone.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	trackStock := true
	if req.TrackStock != nil {
		trackStock = *req.TrackStock
	}

	item := &model.Item{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		ImageURL:          req.ImageURL,
		LowStockThreshold: req.LowStockThreshold,
		TrackStock:        trackStock,
		CostPrice:         req.CostPrice,
		Supplier:          req.Supplier,
	}

	ctx := c.Request.Context()
	if err := h.itemRepo.Create(ctx, item); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if req.InitialStock > 0 && trackStock {
		meta := stock.AdjustmentMeta{}
		if actor := actorFrom(c); actor != "" {
			meta.Actor = &actor
		}
		if _, err := h.ledger.AdjustStock(ctx, item.ID, req.InitialStock, model.TransactionTypeRestock, meta); err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		item.StockQuantity = req.InitialStock
	}

	h.listings.BumpVersion(ctx, cache.ResourceStock)

	utils.CreatedResponse(c, item)
}

// UpdateItem updates item attributes. Stock changes go through the
// ledger, never through this endpoint.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			utils.AppErrorResponse(c, utils.NewError(utils.CodeInvalidParam, "price must be positive"))
			return
		}
		updates["price"] = *req.Price
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			utils.AppErrorResponse(c, utils.NewError(utils.CodeInvalidParam, "low stock threshold must be non-negative"))
			return
		}
		updates["low_stock_threshold"] = *req.LowStockThreshold
	}
	if req.TrackStock != nil {
		updates["track_stock"] = *req.TrackStock
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.Supplier != nil {
		updates["supplier"] = *req.Supplier
	}

	if len(updates) == 0 {
		utils.AppErrorResponse(c, utils.NewError(utils.CodeInvalidParam, "no fields to update"))
		return
	}

	ctx := c.Request.Context()
	if err := h.itemRepo.Update(ctx, id, updates); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.listings.BumpVersion(ctx, cache.ResourceStock)

	item, err := h.itemRepo.GetByID(ctx, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}

// DeleteItem soft deletes an item
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.itemRepo.Delete(ctx, id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.listings.BumpVersion(ctx, cache.ResourceStock)

	utils.SuccessResponse(c, gin.H{"deleted": id})
}
