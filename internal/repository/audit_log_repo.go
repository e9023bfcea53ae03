package repository

import (
	"context"

	"gorm.io/gorm"

	"orderdesk/internal/model"
)

// AuditLogRepository audit log repository interface
type AuditLogRepository interface {
	// Create appends an audit entry
	Create(ctx context.Context, entry *model.AuditLog) error

	// List lists audit entries newest first, optionally filtered by
	// entity type
	List(ctx context.Context, page, limit int, entityType string) ([]model.AuditLog, int64, error)
}

// auditLogRepository audit log repository implementation
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates an audit log repository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create appends an audit entry
func (r *auditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List lists audit entries newest first
func (r *auditLogRepository) List(ctx context.Context, page, limit int, entityType string) ([]model.AuditLog, int64, error) {
	var entries []model.AuditLog
	var total int64

	offset := (page - 1) * limit

	db := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if entityType != "" {
		db = db.Where("entity_type = ?", entityType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error

	return entries, total, err
}
