package models

import (
	"github.com/letrinh/letrinh-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// OrderLineItem captures a product, its quantity and the priced option snapshot.
type OrderLineItem struct {
	ID        uint64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID   string                `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID string                `gorm:"column:product_id;not null" json:"product_id"`
	Product   *Product              `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int                   `gorm:"column:quantity;not null" json:"quantity"`
	Price     decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Options   types.LineItemOptions `gorm:"column:options;type:jsonb" json:"options"`
}
