package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
)

var (
	ErrNotFound              = errors.New("service_description_not_found")
	ErrTopicNotFound         = errors.New("topic_not_found")
	ErrClientNotFound        = errors.New("client_not_found")
	ErrDocumentFinalized     = errors.New("document_finalized")
	ErrCannotDeleteFinalized = errors.New("cannot_delete_finalized")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidPeriod         = errors.New("invalid_period")
	ErrEmptyTopicName        = errors.New("empty_topic_name")
	ErrInvalidPricing        = errors.New("invalid_pricing")
	ErrInvalidRetainer       = errors.New("invalid_retainer")
	ErrReorderConflict       = errors.New("reorder_conflict")
)

type CreateRequest struct {
	ClientID    string    `json:"clientId" binding:"required"`
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required"`
	Currency    string    `json:"currency"`
	// PullUnbilled seeds the document with the client's unbilled time
	// entries falling inside the period.
	PullUnbilled bool `json:"pullUnbilled"`
}

type ListRequest struct {
	ClientID *string         `form:"clientId"`
	Status   *DocumentStatus `form:"status"`
}

type ListResponse struct {
	ServiceDescriptions []ServiceDescription `json:"serviceDescriptions"`
}

// DocumentView is a fully loaded document with computed totals.
type DocumentView struct {
	ServiceDescription
	Totals billing.DocumentTotals `json:"totals"`
}

type UpdateStatusRequest struct {
	Status DocumentStatus `json:"status" binding:"required"`
}

// RetainerPatch updates or clears the document retainer terms. Clear wins
// over the value fields.
type RetainerPatch struct {
	Fee         *decimal.Decimal `json:"fee"`
	Hours       *decimal.Decimal `json:"hours"`
	OverageRate *decimal.Decimal `json:"overageRate"`
	Clear       bool             `json:"clear"`
}

type TopicRequest struct {
	TopicName   string              `json:"topicName" binding:"required"`
	PricingMode billing.PricingMode `json:"pricingMode"`
	HourlyRate  *decimal.Decimal    `json:"hourlyRate"`
	FixedFee    *decimal.Decimal    `json:"fixedFee"`
	CapHours    *decimal.Decimal    `json:"capHours"`
	Discount    *billing.Discount   `json:"discount"`
}

type UpdateTopicRequest struct {
	TopicName     *string                `json:"topicName"`
	PricingMode   *billing.PricingMode   `json:"pricingMode"`
	HourlyRate    *decimal.Decimal       `json:"hourlyRate"`
	FixedFee      *decimal.Decimal       `json:"fixedFee"`
	CapHours      *decimal.Decimal       `json:"capHours"`
	ClearCapHours bool                   `json:"clearCapHours"`
	Discount      *billing.DiscountPatch `json:"discount"`
}

type ReorderTopicsRequest struct {
	TopicIDs []string `json:"topicIds" binding:"required"`
}

// DeleteResult reports side effects of a cascading delete.
type DeleteResult struct {
	ClearedWriteOffs int `json:"clearedWriteOffs"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (ServiceDescription, error)
	Get(ctx context.Context, id string) (DocumentView, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (ServiceDescription, error)
	UpdateDiscount(ctx context.Context, id string, patch billing.DiscountPatch) (ServiceDescription, error)
	UpdateRetainer(ctx context.Context, id string, patch RetainerPatch) (ServiceDescription, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)

	AddTopic(ctx context.Context, docID string, req TopicRequest) (Topic, error)
	UpdateTopic(ctx context.Context, docID, topicID string, req UpdateTopicRequest) (Topic, error)
	DeleteTopic(ctx context.Context, docID, topicID string) (DeleteResult, error)
	ReorderTopics(ctx context.Context, docID string, req ReorderTopicsRequest) ([]Topic, error)
}
