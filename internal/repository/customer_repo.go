package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"orderdesk/internal/model"
	"orderdesk/pkg/utils"
)

// CustomerRepository customer repository interface
type CustomerRepository interface {
	// Create creates a customer
	Create(ctx context.Context, customer *model.Customer) error

	// GetByID gets a customer by ID
	GetByID(ctx context.Context, id uint64) (*model.Customer, error)

	// Update updates customer attributes
	Update(ctx context.Context, id uint64, updates map[string]interface{}) error

	// Delete soft deletes a customer
	Delete(ctx context.Context, id uint64) error

	// List lists customers with offset pagination and optional name search
	List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error)
}

// customerRepository customer repository implementation
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create creates a customer
func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// GetByID gets a customer by ID
func (r *customerRepository) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Update updates customer attributes
func (r *customerRepository) Update(ctx context.Context, id uint64, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrCustomerNotFound
	}
	return nil
}

// Delete soft deletes a customer
func (r *customerRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Customer{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrCustomerNotFound
	}
	return nil
}

// List lists customers with offset pagination and optional name search
func (r *customerRepository) List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	offset := (page - 1) * limit

	db := r.db.WithContext(ctx).Model(&model.Customer{})
	if search != "" {
		db = db.Where("name LIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&customers).Error

	return customers, total, err
}
