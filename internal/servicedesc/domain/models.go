// Package domain contains persistence models for service descriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
	"gorm.io/datatypes"
)

// DocumentStatus represents service description lifecycle states.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusFinalized DocumentStatus = "FINALIZED"
)

// ServiceDescription is a draft or finalized invoice document for one client
// and billing period. Retainer mode is implied by retainer_fee and
// retainer_hours both being set; there is no explicit mode column.
type ServiceDescription struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	ClientID    snowflake.ID   `gorm:"not null;index"`
	PeriodStart time.Time      `gorm:"not null"`
	PeriodEnd   time.Time      `gorm:"not null"`
	Status      DocumentStatus `gorm:"type:text;not null;default:'DRAFT'"`
	Currency    string         `gorm:"type:text;not null"`

	DiscountType  *billing.DiscountType `gorm:"type:text"`
	DiscountValue *decimal.Decimal      `gorm:"type:decimal(12,2)"`

	RetainerFee         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	RetainerHours       *decimal.Decimal `gorm:"type:decimal(10,2)"`
	RetainerOverageRate *decimal.Decimal `gorm:"type:decimal(12,2)"`

	FinalizedAt   *time.Time
	FinalizedByID *string `gorm:"type:text"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Topics []Topic `gorm:"foreignKey:ServiceDescriptionID"`
}

// TableName sets the database table name.
func (ServiceDescription) TableName() string { return "service_descriptions" }

// Topic is a billing grouping within a service description, priced hourly or
// as a fixed fee. display_order is dense and 0-based within the document.
type Topic struct {
	ID                   snowflake.ID        `gorm:"primaryKey"`
	ServiceDescriptionID snowflake.ID        `gorm:"not null;index"`
	TopicName            string              `gorm:"type:text;not null"`
	DisplayOrder         int                 `gorm:"not null"`
	PricingMode          billing.PricingMode `gorm:"type:text;not null;default:'HOURLY'"`

	HourlyRate *decimal.Decimal `gorm:"type:decimal(12,2)"`
	FixedFee   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// CapHours is only meaningful in HOURLY mode.
	CapHours *decimal.Decimal `gorm:"type:decimal(10,2)"`

	DiscountType  *billing.DiscountType `gorm:"type:text"`
	DiscountValue *decimal.Decimal      `gorm:"type:decimal(12,2)"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	LineItems []LineItem `gorm:"foreignKey:TopicID"`
}

// TableName sets the database table name.
func (Topic) TableName() string { return "topics" }

// LineItem is a single billable row within a topic, optionally backed by a
// time entry. Manually added rows carry no time_entry_id.
type LineItem struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	TopicID     snowflake.ID  `gorm:"not null;index"`
	TimeEntryID *snowflake.ID `gorm:"index"`

	// TimeEntry carries the source entry for audit display on reads; it is
	// never written through this association.
	TimeEntry *timeentrydomain.TimeEntry `gorm:"foreignKey:TimeEntryID;references:ID"`

	Date         *time.Time
	Description  string             `gorm:"type:text;not null"`
	Hours        *decimal.Decimal   `gorm:"type:decimal(10,2)"`
	FixedAmount  *decimal.Decimal   `gorm:"type:decimal(12,2)"`
	DisplayOrder int                `gorm:"not null"`
	WaiveMode    *billing.WaiveMode `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "line_items" }

// Waived reports whether the item carries any waive mode.
func (li LineItem) Waived() bool { return li.WaiveMode != nil }

// Discount assembles the document-level discount descriptor, nil when unset.
func (sd ServiceDescription) Discount() *billing.Discount {
	return assembleDiscount(sd.DiscountType, sd.DiscountValue)
}

// Discount assembles the topic-level discount descriptor, nil when unset.
func (t Topic) Discount() *billing.Discount {
	return assembleDiscount(t.DiscountType, t.DiscountValue)
}

// BillingInput converts the topic and its loaded line items for the
// calculator.
func (t Topic) BillingInput() billing.TopicInput {
	items := make([]billing.ItemInput, 0, len(t.LineItems))
	for _, li := range t.LineItems {
		items = append(items, billing.ItemInput{
			Hours:       billing.DecimalOrZero(li.Hours),
			FixedAmount: billing.DecimalOrZero(li.FixedAmount),
			WaiveMode:   li.WaiveMode,
		})
	}
	return billing.TopicInput{
		Mode:       t.PricingMode,
		HourlyRate: billing.DecimalOrZero(t.HourlyRate),
		FixedFee:   billing.DecimalOrZero(t.FixedFee),
		CapHours:   t.CapHours,
		Discount:   t.Discount(),
		Items:      items,
	}
}

// BillingInput converts the document graph for the aggregator.
func (sd ServiceDescription) BillingInput() billing.DocumentInput {
	topics := make([]billing.TopicInput, 0, len(sd.Topics))
	for _, t := range sd.Topics {
		topics = append(topics, t.BillingInput())
	}
	return billing.DocumentInput{
		Discount:            sd.Discount(),
		RetainerFee:         sd.RetainerFee,
		RetainerHours:       sd.RetainerHours,
		RetainerOverageRate: sd.RetainerOverageRate,
		Topics:              topics,
	}
}

func assembleDiscount(t *billing.DiscountType, v *decimal.Decimal) *billing.Discount {
	if t == nil {
		return nil
	}
	return &billing.Discount{Type: *t, Value: billing.DecimalOrZero(v)}
}
