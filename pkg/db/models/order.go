package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a settled customer order.
type Order struct {
	ID              string          `gorm:"column:id;primaryKey" json:"id"`
	CustomerID      string          `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	ShippingAddress *string         `gorm:"column:shipping_address" json:"shipping_address,omitempty"`
	ShippingFee     decimal.Decimal `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0" json:"shipping_fee"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null;default:0" json:"total_amount"`
	OrderDate       time.Time       `gorm:"column:order_date;not null" json:"order_date"`
	Note            *string         `gorm:"column:note" json:"note,omitempty"`
	LineItems       []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	Discounts       []OrderDiscount `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"discounts,omitempty"`
	Payment         *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
