package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Save inserts the event, replacing any stored row with the same event id.
	// The replacement gets a new id.
	Save(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	// Query returns one page of matching events, newest first, and the total
	// number of matches.
	Query(ctx context.Context, db *gorm.DB, filter QueryFilter) ([]WebhookEvent, int64, error)
	// FindByID returns nil, nil when no row exists.
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*WebhookEvent, error)
	Stats(ctx context.Context, db *gorm.DB) ([]EventTypeStat, error)
	Clear(ctx context.Context, db *gorm.DB) (int64, error)
}
