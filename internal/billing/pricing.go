package billing

import "github.com/shopspring/decimal"

// TopicTotals is the priced result for one topic.
type TopicTotals struct {
	// DisplayedHours counts every non-EXCLUDED item's hours, ZERO included.
	DisplayedHours decimal.Decimal
	// BilledHours are the hours that actually earn money: non-waived hours,
	// capped when the topic carries an hour cap. Zero in FIXED mode.
	BilledHours decimal.Decimal
	Capped      bool
	// FixedItemFees is the sum of flat per-item charges over non-EXCLUDED items.
	FixedItemFees decimal.Decimal
	BaseAmount    decimal.Decimal
	FinalAmount   decimal.Decimal
}

// PriceTopic computes a topic's base total (pre topic discount) and final
// total (post topic discount).
//
// HOURLY: base = min(payable hours, cap) * rate + fixed item fees, where
// payable hours exclude both EXCLUDED and ZERO items. FIXED: base = fixed fee
// + fixed item fees; hours are displayed but never multiplied by a rate.
func PriceTopic(t TopicInput) TopicTotals {
	var displayed, payable, fixedFees decimal.Decimal
	for _, item := range t.Items {
		if item.WaiveMode != nil && *item.WaiveMode == WaiveModeExcluded {
			continue
		}
		displayed = displayed.Add(item.Hours)
		fixedFees = fixedFees.Add(item.FixedAmount)
		if item.WaiveMode == nil {
			payable = payable.Add(item.Hours)
		}
	}

	totals := TopicTotals{
		DisplayedHours: RoundHours(displayed),
		FixedItemFees:  RoundMoney(fixedFees),
	}

	switch t.Mode {
	case PricingModeFixed:
		totals.BaseAmount = t.FixedFee.Add(fixedFees)
	default:
		billed := payable
		if t.CapHours != nil && billed.GreaterThan(*t.CapHours) {
			billed = *t.CapHours
			totals.Capped = true
		}
		totals.BilledHours = RoundHours(billed)
		totals.BaseAmount = billed.Mul(t.HourlyRate).Add(fixedFees)
	}

	totals.BaseAmount = RoundMoney(totals.BaseAmount)
	totals.FinalAmount = RoundMoney(ApplyDiscount(totals.BaseAmount, t.Discount))
	return totals
}
