// Package memory holds an in-process record store with the same query
// semantics as the Postgres store. It backs local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Togather-Foundation/event-api/internal/domain/events"
)

var (
	_ events.Store  = (*EventStore)(nil)
	_ events.Writer = (*EventStore)(nil)
)

type EventStore struct {
	mu      sync.RWMutex
	records map[string]events.Record
}

func NewEventStore(records ...events.Record) *EventStore {
	s := &EventStore{records: make(map[string]events.Record, len(records))}
	for _, record := range records {
		s.records[record.ID] = record
	}
	return s
}

func (s *EventStore) Save(_ context.Context, record events.Record) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("save record: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *EventStore) Query(ctx context.Context, q *events.Query) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]events.Record, 0, len(s.records))
	for _, record := range s.records {
		ok, err := matches(record, q.Conditions)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, record)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		for _, by := range q.Sorts {
			c := compare(value(matched[i], by.Field), value(matched[j], by.Field))
			if c == 0 {
				continue
			}
			if by.Direction == events.SortDesc {
				return c > 0
			}
			return c < 0
		}
		return matched[i].ID < matched[j].ID
	})

	ids := make([]string, 0, len(matched))
	for _, record := range matched {
		ids = append(ids, record.ID)
	}
	return ids, nil
}

func (s *EventStore) Load(ctx context.Context, ids []string) ([]events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.records[id]; ok {
			out = append(out, record)
		}
	}
	return out, nil
}

func matches(record events.Record, conditions []events.Condition) (bool, error) {
	for _, cond := range conditions {
		have := value(record, cond.Field)
		switch want := cond.Value.(type) {
		case string:
			got, _ := have.(string)
			c := strings.Compare(got, want)
			if !satisfies(c, cond.Operator) {
				return false, nil
			}
		case bool:
			if cond.Operator != events.OpEqual {
				return false, fmt.Errorf("%w: %s on boolean field %s", events.ErrUnsupportedOperator, cond.Operator, cond.Field)
			}
			if got, _ := have.(bool); got != want {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported condition value %T for field %s", cond.Value, cond.Field)
		}
	}
	return true, nil
}

func satisfies(c int, op events.Operator) bool {
	switch op {
	case events.OpEqual:
		return c == 0
	case events.OpGreaterEqual:
		return c >= 0
	case events.OpLessEqual:
		return c <= 0
	default:
		return false
	}
}

func value(record events.Record, field string) any {
	switch field {
	case events.FieldKind:
		return record.Kind
	case events.FieldStatus:
		return record.Published
	case events.FieldLanguage:
		return record.Language
	case events.FieldDate:
		return record.Date
	default:
		return nil
	}
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}
