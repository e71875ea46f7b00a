package discounts

import (
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Window bounds applied when a discount is created without dates.
var (
	DefaultStartDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultEndDate   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ConditionInput describes one condition of a create or update request.
type ConditionInput struct {
	ConditionType string           `json:"condition_type" validate:"required,max=20"`
	Value         *decimal.Decimal `json:"value"`
	Description   *string          `json:"description"`
}

// DiscountInput is the payload for creating or replacing a discount.
type DiscountInput struct {
	Code        string           `json:"code" validate:"required,max=64"`
	Kind        string           `json:"type" validate:"required"`
	Value       decimal.Decimal  `json:"value"`
	Description *string          `json:"description"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	Conditions  []ConditionInput `json:"conditions" validate:"omitempty,dive"`
}

func (c ConditionInput) toModel() models.DiscountCondition {
	value := decimal.Zero
	if c.Value != nil {
		value = *c.Value
	}
	return models.DiscountCondition{
		ConditionType: enums.ConditionType(c.ConditionType),
		Value:         value,
		Description:   c.Description,
	}
}

func conditionModels(inputs []ConditionInput) []models.DiscountCondition {
	if len(inputs) == 0 {
		return nil
	}
	out := make([]models.DiscountCondition, 0, len(inputs))
	for _, input := range inputs {
		out = append(out, input.toModel())
	}
	return out
}

// OrderLine is one product entry of an order being previewed.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Price     decimal.Decimal `json:"price"`
}

// OrderInput is the order shape accepted by the preview endpoints.
type OrderInput struct {
	CustomerID    string          `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity *int            `json:"total_quantity"`
	Products      []OrderLine     `json:"products" validate:"omitempty,dive"`
}

// Snapshot converts the order into evaluator input. The total quantity is
// summed from the products when not given explicitly.
func (o OrderInput) Snapshot() Snapshot {
	quantity := 0
	if o.TotalQuantity != nil {
		quantity = *o.TotalQuantity
	} else {
		for _, line := range o.Products {
			quantity += line.Quantity
		}
	}
	return Snapshot{
		CustomerID:    o.CustomerID,
		TotalAmount:   o.TotalAmount,
		TotalQuantity: quantity,
	}
}

// Listing is a discount together with the orders that used it.
type Listing struct {
	models.Discount
	Orders []OrderUsage `json:"orders"`
}
