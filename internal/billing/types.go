// Package billing computes topic and document totals for service descriptions.
// Everything in this package is pure: inputs in, totals out, no storage access.
package billing

import "github.com/shopspring/decimal"

// PricingMode selects how a topic is priced.
type PricingMode string

const (
	PricingModeHourly PricingMode = "HOURLY"
	PricingModeFixed  PricingMode = "FIXED"
)

// WaiveMode marks a line item as non-billable.
// EXCLUDED removes the item from totals entirely; ZERO keeps its hours in the
// displayed hour figure but contributes nothing to money.
type WaiveMode string

const (
	WaiveModeExcluded WaiveMode = "EXCLUDED"
	WaiveModeZero     WaiveMode = "ZERO"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeAmount     DiscountType = "AMOUNT"
)

// Discount is a validated discount descriptor.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// ItemInput is the slice of a line item the calculator needs.
type ItemInput struct {
	Hours       decimal.Decimal
	FixedAmount decimal.Decimal
	WaiveMode   *WaiveMode
}

// TopicInput is the slice of a topic the calculator needs.
type TopicInput struct {
	Mode       PricingMode
	HourlyRate decimal.Decimal
	FixedFee   decimal.Decimal
	CapHours   *decimal.Decimal
	Discount   *Discount
	Items      []ItemInput
}

// DocumentInput is the slice of a service description the aggregator needs.
type DocumentInput struct {
	Discount            *Discount
	RetainerFee         *decimal.Decimal
	RetainerHours       *decimal.Decimal
	RetainerOverageRate *decimal.Decimal
	Topics              []TopicInput
}

func (m WaiveMode) Valid() bool {
	return m == WaiveModeExcluded || m == WaiveModeZero
}

func (m PricingMode) Valid() bool {
	return m == PricingModeHourly || m == PricingModeFixed
}

func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeAmount
}
