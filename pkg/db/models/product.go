package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog drink.
type Product struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description *string         `gorm:"column:description" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Active      bool            `gorm:"column:active;not null;default:true" json:"active"`
	Image       *string         `gorm:"column:image" json:"image,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// VariantOption is one selectable choice of a product variant (a size or a topping).
type VariantOption struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	VariantID   string          `gorm:"column:variant_id;not null;index" json:"variant_id"`
	Label       string          `gorm:"column:label;not null" json:"label"`
	PriceChange decimal.Decimal `gorm:"column:price_change;type:numeric(12,2);not null;default:0" json:"price_change"`
}
