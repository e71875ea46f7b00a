package discounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists discounts and their conditions.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a discounts repository bound to db.
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

func (r *Repository) withConditions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Conditions", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// Create inserts the discount together with its conditions.
func (r *Repository) Create(ctx context.Context, discount *models.Discount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

// FindByID returns nil, nil when no discount has the id.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.Discount, error) {
	var discount models.Discount
	err := r.withConditions(ctx).Where("id = ?", id).First(&discount).Error
	return found(&discount, err)
}

// FindByCode matches the code exactly.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.withConditions(ctx).Where("code = ?", code).First(&discount).Error
	return found(&discount, err)
}

// SearchByCode returns the first discount whose code contains fragment,
// ignoring case.
func (r *Repository) SearchByCode(ctx context.Context, fragment string) (*models.Discount, error) {
	var discount models.Discount
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	err := r.withConditions(ctx).
		Where("LOWER(code) LIKE ? ESCAPE '\\'", pattern).
		Order("id ASC").
		First(&discount).Error
	return found(&discount, err)
}

// List returns every discount with its conditions, oldest first.
func (r *Repository) List(ctx context.Context) ([]models.Discount, error) {
	var discounts []models.Discount
	if err := r.withConditions(ctx).Order("id ASC").Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// ListActive returns the discounts whose window contains at.
func (r *Repository) ListActive(ctx context.Context, at time.Time) ([]models.Discount, error) {
	var discounts []models.Discount
	err := r.withConditions(ctx).
		Where("start_date <= ? AND end_date >= ?", at, at).
		Order("id ASC").
		Find(&discounts).Error
	if err != nil {
		return nil, err
	}
	return discounts, nil
}

// Update saves the discount's own columns. When conditions is non-empty the
// stored conditions are replaced by it.
func (r *Repository) Update(ctx context.Context, discount *models.Discount, conditions []models.DiscountCondition) error {
	err := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("id = ?", discount.ID).
		Updates(map[string]any{
			"code":        discount.Code,
			"kind":        discount.Kind,
			"value":       discount.Value,
			"description": discount.Description,
			"start_date":  discount.StartDate,
			"end_date":    discount.EndDate,
		}).Error
	if err != nil || len(conditions) == 0 {
		return err
	}
	if err := r.DeleteConditions(ctx, discount.ID); err != nil {
		return err
	}
	for i := range conditions {
		conditions[i].ID = 0
		conditions[i].DiscountID = discount.ID
	}
	return r.db.WithContext(ctx).Create(&conditions).Error
}

// DeleteConditions removes every condition of a discount.
func (r *Repository) DeleteConditions(ctx context.Context, discountID uint64) error {
	return r.db.WithContext(ctx).
		Where("discount_id = ?", discountID).
		Delete(&models.DiscountCondition{}).Error
}

// Delete removes the discount row. Conditions must already be gone.
func (r *Repository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Discount{}).Error
}

// ConditionTypes lists the distinct condition types in use.
func (r *Repository) ConditionTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&models.DiscountCondition{}).
		Distinct("condition_type").
		Order("condition_type ASC").
		Pluck("condition_type", &types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

// OrderUsage is an order that used a discount, with the time it was applied.
type OrderUsage struct {
	models.Order
	AppliedAt      time.Time       `json:"applied_at"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// OrdersByDiscount lists the orders a discount was applied to, most recent
// application first.
func (r *Repository) OrdersByDiscount(ctx context.Context, discountID uint64) ([]OrderUsage, error) {
	var links []models.OrderDiscount
	err := r.db.WithContext(ctx).
		Where("discount_id = ?", discountID).
		Order("applied_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []OrderUsage{}, nil
	}

	ids := make([]string, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.OrderID)
	}
	var orders []models.Order
	err = r.db.WithContext(ctx).
		Preload("Customer").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("LineItems.Product").
		Where("id IN ?", ids).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Order, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
	}

	out := make([]OrderUsage, 0, len(links))
	for _, link := range links {
		order, ok := byID[link.OrderID]
		if !ok {
			continue
		}
		out = append(out, OrderUsage{
			Order:          order,
			AppliedAt:      link.AppliedAt,
			DiscountAmount: link.DiscountAmount,
		})
	}
	return out, nil
}

// CreateOrderDiscount records that a discount was applied to an order.
func (r *Repository) CreateOrderDiscount(ctx context.Context, link *models.OrderDiscount) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func found(discount *models.Discount, err error) (*models.Discount, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return discount, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
