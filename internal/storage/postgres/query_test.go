package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/event-api/internal/domain/events"
)

func TestBuildIDQueryForOpenRange(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	q := events.RangeQuery(events.DateRange{Start: start}, "en")

	sqlText, args, err := buildIDQuery(q)

	require.NoError(t, err)
	require.Equal(t,
		"SELECT id FROM records WHERE type = $1 AND status = $2 AND langcode = $3 AND field_date >= $4::date ORDER BY field_date ASC, id ASC",
		sqlText)
	require.Equal(t, []any{"event", true, "en", "2024-06-01"}, args)
}

func TestBuildIDQueryForBoundedRange(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	q := events.RangeQuery(events.DateRange{Start: start, End: &end}, "fr")

	sqlText, args, err := buildIDQuery(q)

	require.NoError(t, err)
	require.Contains(t, sqlText, "field_date >= $4::date AND field_date <= $5::date")
	require.Equal(t, "2024-06-30", args[4])
}

func TestBuildIDQueryRejectsUnknownField(t *testing.T) {
	_, _, err := buildIDQuery(events.NewQuery().Condition("title; DROP TABLE records", "x", events.OpEqual))
	require.ErrorIs(t, err, events.ErrUnknownField)
}

func TestBuildIDQueryRejectsNonStringDate(t *testing.T) {
	_, _, err := buildIDQuery(events.NewQuery().Condition(events.FieldDate, time.Now(), events.OpGreaterEqual))
	require.Error(t, err)
}

func TestBuildLoadQuery(t *testing.T) {
	sqlText, args, err := buildLoadQuery([]string{"A", "B"})

	require.NoError(t, err)
	require.Contains(t, sqlText, "FROM records WHERE id IN ($1,$2)")
	require.Equal(t, []any{"A", "B"}, args)
}

func TestBuildLoadQueryFormatsDateIndependentOfDateStyle(t *testing.T) {
	sqlText, _, err := buildLoadQuery([]string{"A"})

	require.NoError(t, err)
	require.Contains(t, sqlText, "COALESCE(to_char(field_date, 'YYYY-MM-DD'), '')")
	require.NotContains(t, sqlText, "field_date::text")
}
