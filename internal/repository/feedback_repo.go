package repository

import (
	"context"

	"gorm.io/gorm"

	"orderdesk/internal/model"
)

// FeedbackRepository feedback repository interface
type FeedbackRepository interface {
	// Create creates a feedback entry
	Create(ctx context.Context, feedback *model.Feedback) error

	// List lists feedback with offset pagination, newest first
	List(ctx context.Context, page, limit int) ([]model.Feedback, int64, error)

	// ListByCustomer lists a customer's feedback, newest first
	ListByCustomer(ctx context.Context, customerID uint64, page, limit int) ([]model.Feedback, int64, error)
}

// feedbackRepository feedback repository implementation
type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a feedback repository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Create creates a feedback entry
func (r *feedbackRepository) Create(ctx context.Context, feedback *model.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

// List lists feedback with offset pagination, newest first
func (r *feedbackRepository) List(ctx context.Context, page, limit int) ([]model.Feedback, int64, error) {
	var list []model.Feedback
	var total int64

	offset := (page - 1) * limit

	db := r.db.WithContext(ctx).Model(&model.Feedback{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Preload("Customer").
		Find(&list).Error

	return list, total, err
}

// ListByCustomer lists a customer's feedback, newest first
func (r *feedbackRepository) ListByCustomer(ctx context.Context, customerID uint64, page, limit int) ([]model.Feedback, int64, error) {
	var list []model.Feedback
	var total int64

	offset := (page - 1) * limit

	db := r.db.WithContext(ctx).
		Model(&model.Feedback{}).
		Where("customer_id = ?", customerID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error

	return list, total, err
}
