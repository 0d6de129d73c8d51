package billing

import "github.com/shopspring/decimal"

// PricingModel is the document-level total formula, derived once per
// aggregation from the stored nullable retainer fields so the two code paths
// stay structurally exhaustive.
type PricingModel interface {
	Name() string
}

// StandardModel sums topic totals and applies the document discount.
type StandardModel struct{}

func (StandardModel) Name() string { return "STANDARD" }

// RetainerModel bills a flat fee plus overage beyond an included-hours
// allowance, with fixed fees riding on top.
type RetainerModel struct {
	Fee         decimal.Decimal
	Hours       decimal.Decimal
	OverageRate decimal.Decimal
}

func (RetainerModel) Name() string { return "RETAINER" }

// ModelOf derives the pricing model. Retainer mode is selected purely by both
// retainer_fee and retainer_hours being present; there is no stored flag.
func ModelOf(doc DocumentInput) PricingModel {
	if doc.RetainerFee != nil && doc.RetainerHours != nil {
		return RetainerModel{
			Fee:         *doc.RetainerFee,
			Hours:       *doc.RetainerHours,
			OverageRate: DecimalOrZero(doc.RetainerOverageRate),
		}
	}
	return StandardModel{}
}

// DocumentTotals is the aggregated result for a whole service description.
type DocumentTotals struct {
	Model      string
	Subtotal   decimal.Decimal
	GrandTotal decimal.Decimal

	// Retainer breakdown, zero-valued in standard mode.
	TotalHourlyHours decimal.Decimal
	OverageHours     decimal.Decimal
	OverageAmount    decimal.Decimal
	FixedTopicFees   decimal.Decimal
	FixedItemFees    decimal.Decimal

	Topics []TopicTotals
}

// AggregateDocument computes the grand total for a service description. Pure
// function of the current topics, line items and discount.
func AggregateDocument(doc DocumentInput) DocumentTotals {
	totals := DocumentTotals{Topics: make([]TopicTotals, 0, len(doc.Topics))}
	for _, t := range doc.Topics {
		totals.Topics = append(totals.Topics, PriceTopic(t))
	}

	model := ModelOf(doc)
	totals.Model = model.Name()

	switch m := model.(type) {
	case RetainerModel:
		var hourlyHours, fixedTopicFees, fixedItemFees decimal.Decimal
		for i, t := range doc.Topics {
			if t.Mode == PricingModeFixed {
				fixedTopicFees = fixedTopicFees.Add(totals.Topics[i].FinalAmount)
				continue
			}
			hourlyHours = hourlyHours.Add(totals.Topics[i].BilledHours)
			fixedItemFees = fixedItemFees.Add(totals.Topics[i].FixedItemFees)
		}

		overage := hourlyHours.Sub(m.Hours)
		if overage.IsNegative() {
			overage = decimal.Zero
		}
		totals.TotalHourlyHours = RoundHours(hourlyHours)
		totals.OverageHours = RoundHours(overage)
		totals.OverageAmount = RoundMoney(overage.Mul(m.OverageRate))
		totals.FixedTopicFees = RoundMoney(fixedTopicFees)
		totals.FixedItemFees = RoundMoney(fixedItemFees)
		totals.Subtotal = RoundMoney(m.Fee.
			Add(totals.OverageAmount).
			Add(fixedTopicFees).
			Add(fixedItemFees))
	case StandardModel:
		var subtotal decimal.Decimal
		for _, t := range totals.Topics {
			subtotal = subtotal.Add(t.FinalAmount)
		}
		totals.Subtotal = RoundMoney(subtotal)
	}

	totals.GrandTotal = RoundMoney(ApplyDiscount(totals.Subtotal, doc.Discount))
	return totals
}
