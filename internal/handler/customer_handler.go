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
	"orderdesk/pkg/utils"
)

// CustomerHandler customer handler
type CustomerHandler struct {
	customerRepo repository.CustomerRepository
	listings     *cache.VersionedCache
}

// NewCustomerHandler creates a customer handler
func NewCustomerHandler(customerRepo repository.CustomerRepository, listings *cache.VersionedCache) *CustomerHandler {
	return &CustomerHandler{
		customerRepo: customerRepo,
		listings:     listings,
	}
}

// createCustomerRequest customer creation request body
type createCustomerRequest struct {
	Name    string  `json:"name" binding:"required,max=200"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// updateCustomerRequest customer update request body
type updateCustomerRequest struct {
	Name    *string `json:"name" binding:"omitempty,max=200"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// ListCustomers lists customers with offset pagination, served through
// the versioned listing cache
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)
	search := c.Query("search")

	ctx := c.Request.Context()
	version := h.listings.Version(ctx, cache.ResourceCustomers)
	key := h.listings.BuildKey(cache.ResourceCustomers, version, c.Request.Method, c.Request.URL.RequestURI())

	payload, hit, err := h.listings.ReadThrough(ctx, key, version, 0, func() ([]byte, int, error) {
		customers, total, err := h.customerRepo.List(ctx, page, limit, search)
		if err != nil {
			return nil, 0, err
		}

		body, err := json.Marshal(utils.Response{
			Code:    utils.CodeSuccess,
			Message: "success",
			Data: utils.OffsetPageResponse{
				List:       customers,
				Total:      total,
				Page:       page,
				Limit:      limit,
				TotalPages: pagination.TotalPages(total, limit),
			},
			Timestamp: time.Now().Unix(),
		})
		return body, len(customers), err
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	monitor.RecordCacheRequest(cache.ResourceCustomers, hit)
	setCacheHeader(c, hit)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// GetCustomer gets a customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	customer, err := h.customerRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, customer)
}

// CreateCustomer creates a customer
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	customer := &model.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	}

	ctx := c.Request.Context()
	if err := h.customerRepo.Create(ctx, customer); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.listings.BumpVersion(ctx, cache.ResourceCustomers)

	utils.CreatedResponse(c, customer)
}

// UpdateCustomer updates customer attributes
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if len(updates) == 0 {
		utils.AppErrorResponse(c, utils.NewError(utils.CodeInvalidParam, "no fields to update"))
		return
	}

	ctx := c.Request.Context()
	if err := h.customerRepo.Update(ctx, id, updates); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.listings.BumpVersion(ctx, cache.ResourceCustomers)

	customer, err := h.customerRepo.GetByID(ctx, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, customer)
}

// DeleteCustomer soft deletes a customer
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.customerRepo.Delete(ctx, id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.listings.BumpVersion(ctx, cache.ResourceCustomers)

	utils.SuccessResponse(c, gin.H{"deleted": id})
}
