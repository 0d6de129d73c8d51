// Package repository provides a thin generic gorm store shared by the
// feature services.
package repository

import (
	"context"

	"github.com/stefanratchev/Veda-Legal-sub000/pkg/db/option"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	// WithTrx rebinds the store to a transaction handle.
	WithTrx(tx *gorm.DB) Repository[T]

	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
	BatchUpdate(ctx context.Context, resources []*T) error
}
