package events

import (
	"context"
	"errors"
)

var (
	ErrUnknownField        = errors.New("unknown record field")
	ErrUnsupportedOperator = errors.New("unsupported query operator")
)

// Store is the read side of the record store.
type Store interface {
	// Query returns the ids of the records matching q, in q's sort order.
	Query(ctx context.Context, q *Query) ([]string, error)
	// Load returns the records for ids in the same order. Unknown ids are skipped.
	Load(ctx context.Context, ids []string) ([]Record, error)
}

// Writer persists records. Only the import command writes.
type Writer interface {
	Save(ctx context.Context, record Record) error
}
