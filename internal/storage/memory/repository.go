package memory

import (
	"context"

	"github.com/Togather-Foundation/event-api/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

// Repository exposes an EventStore through storage.Repository. Transactions
// are not supported; WithTx runs fn against the same store.
type Repository struct {
	events *EventStore
}

func NewRepository(store *EventStore) *Repository {
	if store == nil {
		store = NewEventStore()
	}
	return &Repository{events: store}
}

func (r *Repository) Events() storage.EventRepository {
	return r.events
}

func (r *Repository) Ping(context.Context) error {
	return nil
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	return fn(ctx, r)
}
