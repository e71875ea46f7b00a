package payments

import (
	"context"
	"errors"
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository persists order payments.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// FindByID returns nil, nil when the payment does not exist.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	return found(&payment, err)
}

// FindByOrder returns nil, nil when the order has no payment.
func (r *Repository) FindByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error
	return found(&payment, err)
}

func (r *Repository) List(ctx context.Context) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Update writes the given columns of one payment.
func (r *Repository) Update(ctx context.Context, id uint64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatus moves a payment to status and stamps the change time.
func (r *Repository) UpdateStatus(ctx context.Context, id uint64, status enums.PaymentStatus, at time.Time) error {
	return r.Update(ctx, id, map[string]any{
		"status":            status,
		"status_changed_at": at,
	})
}

func (r *Repository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{}).Error
}

func (r *Repository) DeleteByOrder(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Payment{}).Error
}

// FindOrder returns nil, nil when the order does not exist.
func (r *Repository) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func found(payment *models.Payment, err error) (*models.Payment, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}
