package orders

import (
	"context"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateLineItem(ctx context.Context, item *models.OrderLineItem) error
	UpdateTotal(ctx context.Context, orderID string, total decimal.Decimal) error
	Update(ctx context.Context, orderID string, updates map[string]any) error
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	FindDetail(ctx context.Context, orderID string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByPaymentStatus(ctx context.Context, status enums.PaymentStatus, methods []enums.PaymentMethod) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	LineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error)
	DeleteLineItems(ctx context.Context, orderID string) error
	DeleteOrderDiscounts(ctx context.Context, orderID string) error
	Delete(ctx context.Context, orderID string) error
}
