package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orderdesk/internal/service/analytics"
	"orderdesk/pkg/utils"
)

// AnalyticsHandler sales analytics handler
type AnalyticsHandler struct {
	analyticsService analytics.AnalyticsService
}

// NewAnalyticsHandler creates an analytics handler
func NewAnalyticsHandler(analyticsService analytics.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// parsePeriod reads from/to query params, defaulting to the last 30 days
func parsePeriod(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, utils.NewError(utils.CodeInvalidParam, "invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, utils.NewError(utils.CodeInvalidParam, "invalid to date, expected YYYY-MM-DD")
		}
		// inclusive end date
		to = parsed.AddDate(0, 0, 1)
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, utils.NewError(utils.CodeInvalidParam, "to must be after from")
	}

	return from, to, nil
}

// SalesSummary returns aggregate sales figures for a period
func (h *AnalyticsHandler) SalesSummary(c *gin.Context) {
	from, to, err := parsePeriod(c)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	summary, err := h.analyticsService.Summary(c.Request.Context(), from, to)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, summary)
}

// TopItems returns items ranked by quantity sold in a period
func (h *AnalyticsHandler) TopItems(c *gin.Context) {
	from, to, err := parsePeriod(c)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	items, err := h.analyticsService.TopItems(c.Request.Context(), from, to, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, items)
}
