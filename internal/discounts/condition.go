package discounts

import (
	"fmt"
	"strings"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Condition is one decoded discount predicate. The concrete types below are
// the only implementations.
type Condition interface {
	Type() enums.ConditionType
	isCondition()
}

// MinValue passes when the order total reaches Threshold.
type MinValue struct {
	Threshold decimal.Decimal
}

// TotalQuantity compares the order's item count with Threshold. How the
// comparison maps to pass or fail depends on the evaluator's Polarity.
type TotalQuantity struct {
	Threshold decimal.Decimal
}

// FirstOrder passes only for customers without earlier orders.
type FirstOrder struct{}

// MaxDiscountValue never blocks. During settlement it caps the order total at
// Ceiling when the nominally discounted total is above it.
type MaxDiscountValue struct {
	Ceiling decimal.Decimal
}

// Unknown wraps a stored condition type the evaluator has no rule for. It
// always fails.
type Unknown struct {
	Raw enums.ConditionType
}

func (MinValue) Type() enums.ConditionType         { return enums.ConditionMinValue }
func (TotalQuantity) Type() enums.ConditionType    { return enums.ConditionTotalQuantity }
func (FirstOrder) Type() enums.ConditionType       { return enums.ConditionFirstOrder }
func (MaxDiscountValue) Type() enums.ConditionType { return enums.ConditionMaxDiscountValue }
func (u Unknown) Type() enums.ConditionType        { return u.Raw }

func (MinValue) isCondition()         {}
func (TotalQuantity) isCondition()    {}
func (FirstOrder) isCondition()       {}
func (MaxDiscountValue) isCondition() {}
func (Unknown) isCondition()          {}

// DecodeCondition turns a stored row into its typed form.
func DecodeCondition(row models.DiscountCondition) Condition {
	switch enums.ConditionType(strings.ToUpper(strings.TrimSpace(string(row.ConditionType)))) {
	case enums.ConditionMinValue:
		return MinValue{Threshold: row.Value}
	case enums.ConditionTotalQuantity:
		return TotalQuantity{Threshold: row.Value}
	case enums.ConditionFirstOrder:
		return FirstOrder{}
	case enums.ConditionMaxDiscountValue:
		return MaxDiscountValue{Ceiling: row.Value}
	default:
		return Unknown{Raw: row.ConditionType}
	}
}

// DecodeConditions decodes rows in stored order.
func DecodeConditions(rows []models.DiscountCondition) []Condition {
	out := make([]Condition, 0, len(rows))
	for _, row := range rows {
		out = append(out, DecodeCondition(row))
	}
	return out
}

// Polarity selects which message a failed TOTAL_QUANTITY condition carries.
// The condition itself always passes once the quantity reaches the threshold.
type Polarity string

const (
	// PolarityInverted reports a failure with an empty reason, as existing
	// mini-app clients expect.
	PolarityInverted Polarity = "inverted"
	// PolarityThreshold reports a failure with ReasonTotalQuantity.
	PolarityThreshold Polarity = "threshold"
)

// ParsePolarity accepts "inverted" or "threshold", case-insensitively. Empty
// input yields PolarityInverted.
func ParsePolarity(value string) (Polarity, error) {
	switch Polarity(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolarityInverted:
		return PolarityInverted, nil
	case PolarityThreshold:
		return PolarityThreshold, nil
	default:
		return "", fmt.Errorf("invalid total quantity polarity %q", value)
	}
}

// nominalTotal applies the discount at its face value, without any cap.
func nominalTotal(discount *models.Discount, total decimal.Decimal) decimal.Decimal {
	if discount.Kind == enums.DiscountKindPercent {
		rate := decimal.NewFromInt(1).Sub(discount.Value.Div(decimal.NewFromInt(100)))
		return total.Mul(rate)
	}
	return total.Sub(discount.Value)
}
