package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"orderdesk/internal/model"
	"orderdesk/internal/pagination"
	"orderdesk/internal/repository"
	"orderdesk/pkg/utils"
)

// FeedbackHandler feedback handler
type FeedbackHandler struct {
	feedbackRepo repository.FeedbackRepository
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
}

// NewFeedbackHandler creates a feedback handler
func NewFeedbackHandler(
	feedbackRepo repository.FeedbackRepository,
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackRepo: feedbackRepo,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
	}
}

// createFeedbackRequest feedback creation request body
type createFeedbackRequest struct {
	CustomerID uint64  `json:"customer_id" binding:"required"`
	OrderID    *uint64 `json:"order_id"`
	Rating     int     `json:"rating" binding:"required,gte=1,lte=5"`
	Comment    *string `json:"comment" binding:"omitempty,max=2000"`
}

// CreateFeedback records customer feedback
func (h *FeedbackHandler) CreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.BindError(err, &req))
		return
	}

	ctx := c.Request.Context()

	if _, err := h.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if req.OrderID != nil {
		order, err := h.orderRepo.GetByID(ctx, *req.OrderID)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		if order.CustomerID != req.CustomerID {
			utils.AppErrorResponse(c, utils.NewError(utils.CodeInvalidParam, "order does not belong to customer"))
			return
		}
	}

	feedback := &model.Feedback{
		CustomerID: req.CustomerID,
		OrderID:    req.OrderID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	if err := h.feedbackRepo.Create(ctx, feedback); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, feedback)
}

// ListFeedback lists feedback entries, newest first
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)

	list, total, err := h.feedbackRepo.List(c.Request.Context(), page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, list, total, page, limit)
}

// ListCustomerFeedback lists a single customer's feedback
func (h *FeedbackHandler) ListCustomerFeedback(c *gin.Context) {
	customerID, err := utils.ValidateID(c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)

	ctx := c.Request.Context()

	if _, err := h.customerRepo.GetByID(ctx, customerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	list, total, err := h.feedbackRepo.ListByCustomer(ctx, customerID, page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, list, total, page, limit)
}
