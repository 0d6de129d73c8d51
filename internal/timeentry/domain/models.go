// Package domain contains persistence models for tracked time.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("time_entry_not_found")
	ErrInvalidHours     = errors.New("invalid_hours")
	ErrEmptyDescription = errors.New("empty_description")
)

// TimeEntry is a unit of tracked work for a client. is_written_off is
// derived state: it is true exactly while at least one waived line item in
// any document references the entry.
type TimeEntry struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	ClientID     snowflake.ID    `gorm:"not null;index"`
	EmployeeName string          `gorm:"type:text;not null"`
	WorkDate     time.Time       `gorm:"not null;index"`
	Hours        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Description  string          `gorm:"type:text;not null"`
	IsWrittenOff bool            `gorm:"not null;default:false"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TimeEntry) TableName() string { return "time_entries" }

type CreateRequest struct {
	ClientID     string          `json:"clientId" binding:"required"`
	EmployeeName string          `json:"employeeName" binding:"required"`
	WorkDate     time.Time       `json:"workDate" binding:"required"`
	Hours        decimal.Decimal `json:"hours"`
	Description  string          `json:"description"`
}

type ListRequest struct {
	ClientID *string    `form:"clientId"`
	From     *time.Time `form:"from"`
	To       *time.Time `form:"to"`
	// Unbilled keeps only entries not yet referenced by any line item.
	Unbilled bool `form:"unbilled"`
}

type ListResponse struct {
	TimeEntries []TimeEntry `json:"timeEntries"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (TimeEntry, error)
	Get(ctx context.Context, id string) (TimeEntry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}
