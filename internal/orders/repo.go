package orders

import (
	"context"
	"errors"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Customer", "LineItems", "Discounts", "Payment").Create(order).Error
}

func (r *repository) CreateLineItem(ctx context.Context, item *models.OrderLineItem) error {
	return r.db.WithContext(ctx).Omit("Product").Create(item).Error
}

func (r *repository) UpdateTotal(ctx context.Context, orderID string, total decimal.Decimal) error {
	return r.Update(ctx, orderID, map[string]any{"total_amount": total})
}

func (r *repository) Update(ctx context.Context, orderID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	return found(&order, err)
}

func (r *repository) FindDetail(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.detailed(ctx).Where("id = ?", orderID).First(&order).Error
	return found(&order, err)
}

func (r *repository) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.detailed(ctx).Order("created_at DESC, id DESC").Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByPaymentStatus(ctx context.Context, status enums.PaymentStatus, methods []enums.PaymentMethod) ([]models.Order, error) {
	sub := r.db.Model(&models.Payment{}).Select("order_id").Where("status = ?", status)
	if len(methods) > 0 {
		sub = sub.Where("payment_method IN ?", methods)
	}
	var orders []models.Order
	err := r.detailed(ctx).
		Where("id IN (?)", sub).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.detailed(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) LineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DeleteLineItems(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderLineItem{}).Error
}

func (r *repository) DeleteOrderDiscounts(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderDiscount{}).Error
}

func (r *repository) Delete(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Where("id = ?", orderID).Delete(&models.Order{}).Error
}

func (r *repository) detailed(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Customer").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("LineItems.Product").
		Preload("Discounts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Discounts.Discount").
		Preload("Payment")
}

func found(order *models.Order, err error) (*models.Order, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}
