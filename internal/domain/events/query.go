package events

import "fmt"

// Operator is a comparison applied by a query condition.
type Operator string

const (
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Direction is a sort direction.
type Direction string

const (
	SortAsc  Direction = "ASC"
	SortDesc Direction = "DESC"
)

// Condition restricts a query to records whose Field compares to Value.
type Condition struct {
	Field    string
	Value    any
	Operator Operator
}

// Sort orders query results by Field.
type Sort struct {
	Field     string
	Direction Direction
}

// Query is a store-agnostic record query: all conditions are ANDed together.
type Query struct {
	Conditions []Condition
	Sorts      []Sort
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Condition appends a condition and returns the query for chaining.
func (q *Query) Condition(field string, value any, op Operator) *Query {
	q.Conditions = append(q.Conditions, Condition{Field: field, Value: value, Operator: op})
	return q
}

// Sort appends a sort clause and returns the query for chaining.
func (q *Query) Sort(field string, direction Direction) *Query {
	q.Sorts = append(q.Sorts, Sort{Field: field, Direction: direction})
	return q
}

// Validate checks that every field, operator and direction is one a store can execute.
func (q *Query) Validate() error {
	for _, cond := range q.Conditions {
		if !isKnownField(cond.Field) {
			return fmt.Errorf("%w: %q", ErrUnknownField, cond.Field)
		}
		switch cond.Operator {
		case OpEqual, OpGreaterEqual, OpLessEqual:
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedOperator, cond.Operator)
		}
	}
	for _, sort := range q.Sorts {
		if !isKnownField(sort.Field) {
			return fmt.Errorf("%w: %q", ErrUnknownField, sort.Field)
		}
		switch sort.Direction {
		case SortAsc, SortDesc:
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedOperator, sort.Direction)
		}
	}
	return nil
}

func isKnownField(field string) bool {
	switch field {
	case FieldKind, FieldStatus, FieldLanguage, FieldDate:
		return true
	default:
		return false
	}
}
