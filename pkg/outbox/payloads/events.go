package payloads

import (
	"time"

	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once an order and its line items commit.
type OrderCreatedEvent struct {
	OrderID     string          `json:"order_id"`
	CustomerID  string          `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	LineCount   int             `json:"line_count"`
	DiscountIDs []uint64        `json:"discount_ids"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaymentStatusChangedEvent records a payment transition.
type PaymentStatusChangedEvent struct {
	OrderID        string              `json:"order_id"`
	PaymentID      uint64              `json:"payment_id"`
	PreviousStatus enums.PaymentStatus `json:"previous_status"`
	Status         enums.PaymentStatus `json:"status"`
	ChangedAt      time.Time           `json:"changed_at"`
}
