package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"orderdesk/internal/pagination"
	"orderdesk/internal/repository"
	"orderdesk/pkg/utils"
)

// AuditHandler audit trail handler
type AuditHandler struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(auditRepo repository.AuditLogRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// ListAuditLogs lists audit entries newest first
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page = pagination.NormalizePage(page)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	limit = pagination.NormalizeLimit(limit)
	entityType := c.Query("entity_type")

	entries, total, err := h.auditRepo.List(c.Request.Context(), page, limit, entityType)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, entries, total, page, limit)
}
