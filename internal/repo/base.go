// Package repo holds helpers shared by the gorm-backed repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base carries the connection (or open transaction) a repository reads from.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// Bound reports whether the base was given a connection.
func (b Base) Bound() bool {
	return b.db != nil
}

// DB scopes the connection to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// FindOne loads the first row matching query into a new T. Missing rows
// return nil, nil so callers decide how absence maps onto their domain.
func FindOne[T any](ctx context.Context, b Base, query string, args ...any) (*T, error) {
	var out T
	err := b.DB(ctx).Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
