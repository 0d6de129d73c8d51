package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelOf(t *testing.T) {
	assert.Equal(t, "STANDARD", ModelOf(DocumentInput{}).Name())
	assert.Equal(t, "STANDARD", ModelOf(DocumentInput{RetainerFee: dptr(t, "500")}).Name())
	assert.Equal(t, "STANDARD", ModelOf(DocumentInput{RetainerHours: dptr(t, "20")}).Name())

	m := ModelOf(DocumentInput{
		RetainerFee:   dptr(t, "500"),
		RetainerHours: dptr(t, "20"),
	})
	retainer, ok := m.(RetainerModel)
	assert.True(t, ok)
	assert.True(t, retainer.OverageRate.IsZero())
}

func TestAggregateDocumentStandard(t *testing.T) {
	// Topic A: HOURLY, rate 200, cap 50h, 10% discount, 60h of work.
	// Topic B: FIXED 1500, no discount. Document discount AMOUNT 500.
	doc := DocumentInput{
		Discount: &Discount{Type: DiscountTypeAmount, Value: d(t, "500")},
		Topics: []TopicInput{
			{
				Mode:       PricingModeHourly,
				HourlyRate: d(t, "200"),
				CapHours:   dptr(t, "50"),
				Discount:   &Discount{Type: DiscountTypePercentage, Value: d(t, "10")},
				Items: []ItemInput{
					{Hours: d(t, "35")},
					{Hours: d(t, "25")},
				},
			},
			{
				Mode:     PricingModeFixed,
				FixedFee: d(t, "1500"),
			},
		},
	}

	totals := AggregateDocument(doc)
	assert.Equal(t, "STANDARD", totals.Model)
	assert.True(t, totals.Topics[0].FinalAmount.Equal(d(t, "9000")))
	assert.True(t, totals.Topics[1].FinalAmount.Equal(d(t, "1500")))
	assert.True(t, totals.Subtotal.Equal(d(t, "10500")))
	assert.True(t, totals.GrandTotal.Equal(d(t, "10000")))
}

func TestAggregateDocumentRetainerOverage(t *testing.T) {
	doc := DocumentInput{
		RetainerFee:         dptr(t, "3000"),
		RetainerHours:       dptr(t, "20"),
		RetainerOverageRate: dptr(t, "50"),
		Topics: []TopicInput{
			{
				Mode:       PricingModeHourly,
				HourlyRate: d(t, "200"),
				Items:      []ItemInput{{Hours: d(t, "25")}},
			},
		},
	}

	totals := AggregateDocument(doc)
	assert.Equal(t, "RETAINER", totals.Model)
	assert.True(t, totals.TotalHourlyHours.Equal(d(t, "25")))
	assert.True(t, totals.OverageHours.Equal(d(t, "5")))
	assert.True(t, totals.OverageAmount.Equal(d(t, "250")))
	assert.True(t, totals.Subtotal.Equal(d(t, "3250")))
	assert.True(t, totals.GrandTotal.Equal(d(t, "3250")))
}

func TestAggregateDocumentRetainerWithinAllowance(t *testing.T) {
	doc := DocumentInput{
		RetainerFee:         dptr(t, "3000"),
		RetainerHours:       dptr(t, "20"),
		RetainerOverageRate: dptr(t, "50"),
		Topics: []TopicInput{
			{
				Mode:       PricingModeHourly,
				HourlyRate: d(t, "200"),
				Items:      []ItemInput{{Hours: d(t, "12")}},
			},
		},
	}

	totals := AggregateDocument(doc)
	assert.True(t, totals.OverageHours.IsZero())
	assert.True(t, totals.Subtotal.Equal(d(t, "3000")))
}

func TestAggregateDocumentRetainerFixedFeesRideAlong(t *testing.T) {
	doc := DocumentInput{
		Discount:            &Discount{Type: DiscountTypePercentage, Value: d(t, "10")},
		RetainerFee:         dptr(t, "3000"),
		RetainerHours:       dptr(t, "20"),
		RetainerOverageRate: dptr(t, "50"),
		Topics: []TopicInput{
			{
				// Hourly topic with a flat add-on riding alongside.
				Mode:       PricingModeHourly,
				HourlyRate: d(t, "200"),
				Items: []ItemInput{
					{Hours: d(t, "25")},
					{FixedAmount: d(t, "100")},
				},
			},
			{
				Mode:     PricingModeFixed,
				FixedFee: d(t, "650"),
			},
		},
	}

	totals := AggregateDocument(doc)
	// 3000 retainer + 250 overage + 650 fixed topic + 100 fixed item.
	assert.True(t, totals.FixedTopicFees.Equal(d(t, "650")))
	assert.True(t, totals.FixedItemFees.Equal(d(t, "100")))
	assert.True(t, totals.Subtotal.Equal(d(t, "4000")))
	assert.True(t, totals.GrandTotal.Equal(d(t, "3600")))
}

func TestAggregateDocumentCappedHoursFeedRetainerPool(t *testing.T) {
	doc := DocumentInput{
		RetainerFee:   dptr(t, "1000"),
		RetainerHours: dptr(t, "10"),
		Topics: []TopicInput{
			{
				Mode:       PricingModeHourly,
				HourlyRate: d(t, "200"),
				CapHours:   dptr(t, "8"),
				Items:      []ItemInput{{Hours: d(t, "14")}},
			},
		},
	}

	totals := AggregateDocument(doc)
	// Post-cap hours feed the pool: 8h stays under the 10h allowance.
	assert.True(t, totals.TotalHourlyHours.Equal(d(t, "8")))
	assert.True(t, totals.OverageHours.IsZero())
	assert.True(t, totals.Subtotal.Equal(d(t, "1000")))
}

func TestAggregateDocumentEmpty(t *testing.T) {
	totals := AggregateDocument(DocumentInput{})
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}
