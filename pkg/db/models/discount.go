package models

import (
	"time"

	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Discount is a coded promotional rule with a validity window.
type Discount struct {
	ID          uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code        string              `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Kind        enums.DiscountKind  `gorm:"column:kind;not null" json:"kind"`
	Value       decimal.Decimal     `gorm:"column:value;type:numeric(12,2);not null" json:"value"`
	Description *string             `gorm:"column:description" json:"description,omitempty"`
	StartDate   time.Time           `gorm:"column:start_date;not null" json:"start_date"`
	EndDate     time.Time           `gorm:"column:end_date;not null" json:"end_date"`
	Conditions  []DiscountCondition `gorm:"foreignKey:DiscountID;constraint:OnDelete:CASCADE" json:"conditions"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ActiveAt reports whether t falls inside the inclusive validity window.
func (d Discount) ActiveAt(t time.Time) bool {
	return !t.Before(d.StartDate) && !t.After(d.EndDate)
}

// DiscountCondition is a single predicate of a discount.
type DiscountCondition struct {
	ID            uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DiscountID    uint64              `gorm:"column:discount_id;not null;index" json:"discount_id"`
	ConditionType enums.ConditionType `gorm:"column:condition_type;size:20;not null" json:"condition_type"`
	Value         decimal.Decimal     `gorm:"column:value;type:numeric(12,2);not null" json:"value"`
	Description   *string             `gorm:"column:description" json:"description,omitempty"`
}

// OrderDiscount records a discount applied to an order.
type OrderDiscount struct {
	ID             uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID        string          `gorm:"column:order_id;not null;index" json:"order_id"`
	DiscountID     uint64          `gorm:"column:discount_id;not null;index" json:"discount_id"`
	Discount       *Discount       `gorm:"foreignKey:DiscountID;constraint:OnDelete:CASCADE" json:"discount,omitempty"`
	AppliedAt      time.Time       `gorm:"column:applied_at;not null" json:"applied_at"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0" json:"discount_amount"`
}
