// Package domain contains persistence models for firm clients.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound      = errors.New("client_not_found")
	ErrEmptyName     = errors.New("empty_client_name")
	ErrDuplicateSlug = errors.New("duplicate_client_slug")
)

// Client is a billable party of the firm.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex"`
	Currency  string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }

type CreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency"`
}

type ListResponse struct {
	Clients []Client `json:"clients"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Client, error)
	Get(ctx context.Context, id string) (Client, error)
	GetBySlug(ctx context.Context, slug string) (Client, error)
	List(ctx context.Context) (ListResponse, error)
}
