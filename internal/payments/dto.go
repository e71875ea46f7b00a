package payments

import (
	"github.com/shopspring/decimal"
)

// CreateInput is the payload for recording a payment against an order.
type CreateInput struct {
	OrderID       string           `json:"order_id" validate:"required"`
	PaymentMethod string           `json:"payment_method" validate:"required"`
	Status        string           `json:"status"`
	Amount        *decimal.Decimal `json:"amount"`
	Description   *string          `json:"description"`
}

// UpdateInput changes the supplied fields of a payment.
type UpdateInput struct {
	PaymentMethod *string          `json:"payment_method"`
	Status        *string          `json:"status"`
	Amount        *decimal.Decimal `json:"amount"`
	Description   *string          `json:"description"`
}
