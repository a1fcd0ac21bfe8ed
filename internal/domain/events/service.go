package events

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/Togather-Foundation/event-api/internal/domain/events"

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// RangeQuery builds the store query for published events in langcode whose
// date falls inside rng, oldest first.
func RangeQuery(rng DateRange, langcode string) *Query {
	q := NewQuery().
		Condition(FieldKind, KindEvent, OpEqual).
		Condition(FieldStatus, true, OpEqual).
		Condition(FieldLanguage, langcode, OpEqual).
		Condition(FieldDate, rng.StartString(), OpGreaterEqual).
		Sort(FieldDate, SortAsc)
	if rng.End != nil {
		q.Condition(FieldDate, rng.EndString(), OpLessEqual)
	}
	return q
}

// ListInRange returns the published events of langcode inside rng, ascending by date.
// The result is never nil.
func (s *Service) ListInRange(ctx context.Context, rng DateRange, langcode string) ([]Record, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "events.ListInRange")
	defer span.End()
	span.SetAttributes(
		attribute.String("events.start", rng.StartString()),
		attribute.String("events.end", rng.EndString()),
		attribute.String("events.langcode", langcode),
	)

	ids, err := s.store.Query(ctx, RangeQuery(rng, langcode))
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("query events: %w", err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	records, err := s.store.Load(ctx, ids)
	if err != nil {
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("load events: %w", err)
	}
	span.SetAttributes(attribute.Int("events.count", len(records)))
	return records, nil
}
