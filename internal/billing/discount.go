package billing

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDiscount     = errors.New("invalid_discount")
	ErrNonPositiveDiscount = errors.New("non_positive_discount")
	ErrDiscountTooLarge    = errors.New("discount_too_large")
)

// DiscountPatch is a partial discount update. Set* distinguishes "field absent"
// from "field explicitly null": a null Type clears the whole descriptor.
type DiscountPatch struct {
	Type     *DiscountType
	SetType  bool
	Value    *decimal.Decimal
	SetValue bool
}

// UnmarshalJSON keeps the absent/null distinction for both fields.
func (p *DiscountPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["type"]; ok {
		p.SetType = true
		if string(v) != "null" {
			var t DiscountType
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			p.Type = &t
		}
	}
	if v, ok := raw["value"]; ok {
		p.SetValue = true
		if string(v) != "null" {
			var d decimal.Decimal
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			p.Value = &d
		}
	}
	return nil
}

// ResolveDiscount merges a patch into the currently stored descriptor and
// validates the result. An explicit null Type clears both fields. A Value
// without a Type, stored or incoming, is rejected.
func ResolveDiscount(current *Discount, patch DiscountPatch) (*Discount, error) {
	if patch.SetType && patch.Type == nil {
		return nil, nil
	}

	merged := Discount{}
	if current != nil {
		merged = *current
	}
	if patch.SetType {
		merged.Type = *patch.Type
	}
	if patch.SetValue {
		if patch.Value == nil {
			return nil, ErrInvalidDiscount
		}
		merged.Value = *patch.Value
	}

	if err := ValidateDiscount(merged.Type, merged.Value); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ValidateDiscount checks a descriptor. AMOUNT discounts have no upper bound
// and may exceed the base amount, driving a total negative.
func ValidateDiscount(t DiscountType, value decimal.Decimal) error {
	if !t.Valid() {
		return ErrInvalidDiscount
	}
	if value.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveDiscount
	}
	if t == DiscountTypePercentage && value.GreaterThan(oneHundred) {
		return ErrDiscountTooLarge
	}
	return nil
}

// ApplyDiscount applies a descriptor to a base amount. A nil descriptor is a
// no-op. No floor at zero.
func ApplyDiscount(base decimal.Decimal, d *Discount) decimal.Decimal {
	if d == nil {
		return base
	}
	switch d.Type {
	case DiscountTypePercentage:
		return base.Mul(oneHundred.Sub(d.Value)).Div(oneHundred)
	case DiscountTypeAmount:
		return base.Sub(d.Value)
	default:
		return base
	}
}
