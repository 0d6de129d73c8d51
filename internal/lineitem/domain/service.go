// Package domain contains the line item contract. The persistence model
// lives with the service description aggregate.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
)

var (
	ErrItemNotFound      = errors.New("line_item_not_found")
	ErrEmptyDescription  = errors.New("empty_description")
	ErrInvalidHours      = errors.New("invalid_hours")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidWaiveMode  = errors.New("invalid_waive_mode")
	ErrTimeEntryMismatch = errors.New("time_entry_mismatch")
	ErrReorderConflict   = errors.New("reorder_conflict")
)

type AddRequest struct {
	TopicID     string           `json:"topicId" binding:"required"`
	TimeEntryID *string          `json:"timeEntryId"`
	Date        *time.Time       `json:"date"`
	Description string           `json:"description" binding:"required"`
	Hours       *decimal.Decimal `json:"hours"`
	FixedAmount *decimal.Decimal `json:"fixedAmount"`
}

type UpdateRequest struct {
	// TopicID moves the item to another topic in the same document,
	// inserted at DisplayOrder or appended when DisplayOrder is absent.
	TopicID          *string          `json:"topicId"`
	DisplayOrder     *int             `json:"displayOrder"`
	Description      *string          `json:"description"`
	Date             *time.Time       `json:"date"`
	ClearDate        bool             `json:"clearDate"`
	Hours            *decimal.Decimal `json:"hours"`
	ClearHours       bool             `json:"clearHours"`
	FixedAmount      *decimal.Decimal `json:"fixedAmount"`
	ClearFixedAmount bool             `json:"clearFixedAmount"`
}

// WaiveRequest sets or removes the waive mode. A nil Mode restores the item
// to billable.
type WaiveRequest struct {
	Mode *billing.WaiveMode `json:"mode"`
}

type ReorderRequest struct {
	ItemIDs []string `json:"itemIds" binding:"required"`
}

// MutationResult pairs the touched item with reconciliation side effects.
type MutationResult struct {
	Item             sddomain.LineItem `json:"item"`
	ClearedWriteOffs int               `json:"clearedWriteOffs"`
}

type DeleteResult struct {
	ClearedWriteOffs int `json:"clearedWriteOffs"`
}

type Service interface {
	Add(ctx context.Context, docID string, req AddRequest) (sddomain.LineItem, error)
	Update(ctx context.Context, docID, itemID string, req UpdateRequest) (sddomain.LineItem, error)
	Waive(ctx context.Context, docID, itemID string, req WaiveRequest) (MutationResult, error)
	Delete(ctx context.Context, docID, itemID string) (DeleteResult, error)
	Reorder(ctx context.Context, docID, topicID string, req ReorderRequest) ([]sddomain.LineItem, error)
}
