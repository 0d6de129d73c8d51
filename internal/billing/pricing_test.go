package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func waived(m WaiveMode) *WaiveMode { return &m }

func TestPriceTopicHourlyCap(t *testing.T) {
	topic := TopicInput{
		Mode:       PricingModeHourly,
		HourlyRate: d(t, "100"),
		CapHours:   dptr(t, "5"),
		Items: []ItemInput{
			{Hours: d(t, "2.5")},
			{Hours: d(t, "3.5")},
		},
	}

	totals := PriceTopic(topic)
	assert.True(t, totals.DisplayedHours.Equal(d(t, "6")))
	assert.True(t, totals.BilledHours.Equal(d(t, "5")))
	assert.True(t, totals.Capped)
	assert.True(t, totals.BaseAmount.Equal(d(t, "500")))
	assert.True(t, totals.FinalAmount.Equal(d(t, "500")))
}

func TestPriceTopicWaiveSemantics(t *testing.T) {
	base := TopicInput{
		Mode:       PricingModeHourly,
		HourlyRate: d(t, "100"),
	}

	// EXCLUDED: nothing, neither hours nor money.
	excluded := base
	excluded.Items = []ItemInput{{Hours: d(t, "3"), WaiveMode: waived(WaiveModeExcluded)}}
	totals := PriceTopic(excluded)
	assert.True(t, totals.DisplayedHours.IsZero())
	assert.True(t, totals.BaseAmount.IsZero())

	// ZERO: hours show up, money does not.
	zero := base
	zero.Items = []ItemInput{{Hours: d(t, "3"), WaiveMode: waived(WaiveModeZero)}}
	totals = PriceTopic(zero)
	assert.True(t, totals.DisplayedHours.Equal(d(t, "3")))
	assert.True(t, totals.BilledHours.IsZero())
	assert.True(t, totals.BaseAmount.IsZero())
}

func TestPriceTopicHourlyFlatAddOns(t *testing.T) {
	topic := TopicInput{
		Mode:       PricingModeHourly,
		HourlyRate: d(t, "200"),
		Items: []ItemInput{
			{Hours: d(t, "2")},
			{FixedAmount: d(t, "150")},
			{FixedAmount: d(t, "99"), WaiveMode: waived(WaiveModeExcluded)},
		},
	}

	totals := PriceTopic(topic)
	assert.True(t, totals.FixedItemFees.Equal(d(t, "150")))
	assert.True(t, totals.BaseAmount.Equal(d(t, "550")))
}

func TestPriceTopicFixed(t *testing.T) {
	topic := TopicInput{
		Mode:     PricingModeFixed,
		FixedFee: d(t, "1500"),
		Items: []ItemInput{
			{Hours: d(t, "10")},
			{FixedAmount: d(t, "75")},
		},
	}

	totals := PriceTopic(topic)
	// Hours display but are never multiplied by a rate.
	assert.True(t, totals.DisplayedHours.Equal(d(t, "10")))
	assert.True(t, totals.BilledHours.IsZero())
	assert.True(t, totals.BaseAmount.Equal(d(t, "1575")))
	assert.False(t, totals.Capped)
}

func TestPriceTopicZeroHoursPayableUnderCap(t *testing.T) {
	// ZERO hours count toward display, not toward the capped payable figure.
	topic := TopicInput{
		Mode:       PricingModeHourly,
		HourlyRate: d(t, "100"),
		CapHours:   dptr(t, "5"),
		Items: []ItemInput{
			{Hours: d(t, "4")},
			{Hours: d(t, "3"), WaiveMode: waived(WaiveModeZero)},
		},
	}

	totals := PriceTopic(topic)
	assert.True(t, totals.DisplayedHours.Equal(d(t, "7")))
	assert.True(t, totals.BilledHours.Equal(d(t, "4")))
	assert.False(t, totals.Capped)
	assert.True(t, totals.BaseAmount.Equal(d(t, "400")))
}

func TestPriceTopicTopicDiscount(t *testing.T) {
	topic := TopicInput{
		Mode:       PricingModeHourly,
		HourlyRate: d(t, "200"),
		CapHours:   dptr(t, "50"),
		Discount:   &Discount{Type: DiscountTypePercentage, Value: d(t, "10")},
		Items: []ItemInput{
			{Hours: d(t, "60")},
		},
	}

	totals := PriceTopic(topic)
	assert.True(t, totals.BilledHours.Equal(d(t, "50")))
	assert.True(t, totals.BaseAmount.Equal(d(t, "10000")))
	assert.True(t, totals.FinalAmount.Equal(d(t, "9000")))
}
