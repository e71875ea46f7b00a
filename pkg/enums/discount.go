package enums

import (
	"fmt"
	"strings"
)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	DiscountKindPercent    DiscountKind = "percent"
	DiscountKindFixedValue DiscountKind = "fixed_value"
)

var validDiscountKinds = []DiscountKind{
	DiscountKindPercent,
	DiscountKindFixedValue,
}

// String implements fmt.Stringer.
func (k DiscountKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known DiscountKind.
func (k DiscountKind) IsValid() bool {
	for _, candidate := range validDiscountKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseDiscountKind accepts the canonical values plus the legacy "value" alias.
func ParseDiscountKind(value string) (DiscountKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "value" {
		return DiscountKindFixedValue, nil
	}
	for _, candidate := range validDiscountKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount kind %q", value)
}

// ConditionType names a discount condition. The set is open: unknown values
// are stored verbatim and evaluated as failing.
type ConditionType string

const (
	ConditionMinValue         ConditionType = "MIN_VALUE"
	ConditionTotalQuantity    ConditionType = "TOTAL_QUANTITY"
	ConditionFirstOrder       ConditionType = "FIRST_ORDER"
	ConditionMaxDiscountValue ConditionType = "MAX_DISCOUNT_VALUE"
)

// String implements fmt.Stringer.
func (c ConditionType) String() string {
	return string(c)
}

// Known reports whether the evaluator has a rule for this type.
func (c ConditionType) Known() bool {
	switch c {
	case ConditionMinValue, ConditionTotalQuantity, ConditionFirstOrder, ConditionMaxDiscountValue:
		return true
	}
	return false
}

// EligibilityStatus is the outcome reported by discount checks.
type EligibilityStatus string

const (
	EligibilityApplicable   EligibilityStatus = "applicable"
	EligibilityInapplicable EligibilityStatus = "inApplicable"
)
