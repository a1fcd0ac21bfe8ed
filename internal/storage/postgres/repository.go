package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Togather-Foundation/event-api/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

// Repository implements storage.Repository with a PostgreSQL backend
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	events *EventRepository
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}

	return &Repository{
		pool:   pool,
		events: &EventRepository{pool: pool},
	}, nil
}

// Events returns the record repository
func (r *Repository) Events() storage.EventRepository {
	if r.tx != nil {
		return &EventRepository{pool: r.pool, tx: r.tx}
	}
	return r.events
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx executes a function within a database transaction
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &Repository{
		pool:   r.pool,
		tx:     tx,
		events: &EventRepository{pool: r.pool, tx: tx},
	}

	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
