package orders

import (
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
	"github.com/shopspring/decimal"
)

// OptionsInput selects variant options by id.
type OptionsInput struct {
	Size    *string  `json:"size"`
	Topping []string `json:"topping"`
}

// LineInput is one requested product line.
type LineInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	// Price is the unit price with variant deltas already applied. When nil
	// it is derived from the catalog price and the selected options.
	Price   *decimal.Decimal `json:"price"`
	Options *OptionsInput    `json:"options"`
}

// DiscountRef names a discount to apply by id.
type DiscountRef struct {
	ID uint64 `json:"id" validate:"required"`
}

// SettleInput is the order creation request.
type SettleInput struct {
	OrderID         string           `json:"id" validate:"omitempty,max=64"`
	CustomerID      string           `json:"customer_id" validate:"required"`
	ShippingAddress *string          `json:"shipping_address"`
	ShippingFee     decimal.Decimal  `json:"shipping_fee"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	OrderDate       *time.Time       `json:"order_date"`
	Note            *string          `json:"note"`
	PaymentMethod   *string          `json:"payment_method"`
	Products        []LineInput      `json:"products" validate:"required,min=1,dive"`
	Discounts       []DiscountRef    `json:"discounts" validate:"omitempty,dive"`

	Actor *outbox.ActorRef `json:"-"`
}

// SettleResult is what a successful settlement committed.
type SettleResult struct {
	Order     *models.Order
	LineItems []models.OrderLineItem
	Discounts []models.OrderDiscount
	Payment   *models.Payment
}

// UpdateInput replaces the mutable order fields that are supplied.
type UpdateInput struct {
	ShippingAddress *string          `json:"shipping_address"`
	ShippingFee     *decimal.Decimal `json:"shipping_fee"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	Note            *string          `json:"note"`
}

// PaymentStatusResult reports a payment transition.
type PaymentStatusResult struct {
	Updated bool
	Payment *models.Payment
}
