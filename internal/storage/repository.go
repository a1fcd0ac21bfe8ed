package storage

import (
	"context"

	"github.com/Togather-Foundation/event-api/internal/domain/events"
)

// Repository groups data access for a record store backend.
type Repository interface {
	Events() EventRepository
	Ping(ctx context.Context) error

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// EventRepository is the read and write side of the record store.
type EventRepository interface {
	events.Store
	events.Writer
}
