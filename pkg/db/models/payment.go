package models

import (
	"time"

	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Payment tracks how and whether an order was paid.
type Payment struct {
	ID              uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID         string              `gorm:"column:order_id;not null;uniqueIndex" json:"order_id"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	Status          enums.PaymentStatus `gorm:"column:status;not null" json:"status"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null;default:0" json:"amount"`
	Description     *string             `gorm:"column:description" json:"description,omitempty"`
	StatusChangedAt *time.Time          `gorm:"column:status_changed_at" json:"status_changed_at,omitempty"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
