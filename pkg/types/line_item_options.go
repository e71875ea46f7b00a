package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OptionSnapshot freezes a variant option's label and price delta at order time.
type OptionSnapshot struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	PriceChange decimal.Decimal `json:"price_change"`
}

// LineItemOptions holds the variant choices of a line item: one size and
// any number of toppings.
type LineItemOptions struct {
	Size    *OptionSnapshot  `json:"size,omitempty"`
	Topping []OptionSnapshot `json:"topping,omitempty"`
}

// IsEmpty reports whether no option was selected.
func (o LineItemOptions) IsEmpty() bool {
	return o.Size == nil && len(o.Topping) == 0
}

// PriceDelta sums the price changes of all selected options.
func (o LineItemOptions) PriceDelta() decimal.Decimal {
	total := decimal.Zero
	if o.Size != nil {
		total = total.Add(o.Size.PriceChange)
	}
	for _, t := range o.Topping {
		total = total.Add(t.PriceChange)
	}
	return total
}

// Value serializes the options to JSON.
func (o LineItemOptions) Value() (driver.Value, error) {
	if o.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(o)
}

// Scan decodes a JSON column into the options.
func (o *LineItemOptions) Scan(value any) error {
	if value == nil {
		*o = LineItemOptions{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, o)
}

func asJSON(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
