package events

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/stretchr/testify/require"
)

func assertInvalidRequest(t *testing.T, err error, field string, message string) {
	t.Helper()
	require.Error(t, err)
	var invalid InvalidRequestError
	require.True(t, errors.As(err, &invalid), "expected InvalidRequestError, got %T", err)
	require.Equal(t, field, invalid.Field)
	require.Equal(t, message, invalid.Message)
	require.Equal(t, message, err.Error())
}

func TestResolveDateRangeDefaultsStartToToday(t *testing.T) {
	now := time.Date(2024, 6, 5, 15, 30, 12, 0, time.UTC)

	rng, err := ResolveDateRange(zerolog.Nop(), now, "", "")

	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), rng.Start)
	require.True(t, rng.StartDefaulted)
	require.Nil(t, rng.End)
	require.Equal(t, "2024-06-05", rng.StartString())
	require.Empty(t, rng.EndString())
}

func TestResolveDateRangeKeepsClockLocation(t *testing.T) {
	loc := time.FixedZone("EDT", -4*60*60)
	// 01:30 UTC on the 6th is still the 5th in EDT.
	now := time.Date(2024, 6, 6, 1, 30, 0, 0, time.UTC).In(loc)

	rng, err := ResolveDateRange(zerolog.Nop(), now, "", "2024-06-05")

	require.NoError(t, err)
	require.Equal(t, "2024-06-05", rng.StartString())
	require.Equal(t, loc, rng.Start.Location())
	require.Equal(t, "2024-06-05", rng.EndString())
}

func TestResolveDateRangeExplicitDates(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	rng, err := ResolveDateRange(zerolog.Nop(), now, "2024-06-01", "2024-06-30")

	require.NoError(t, err)
	require.False(t, rng.StartDefaulted)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rng.Start)
	require.NotNil(t, rng.End)
	require.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), *rng.End)
}

func TestResolveDateRangeAcceptsEqualBounds(t *testing.T) {
	rng, err := ResolveDateRange(zerolog.Nop(), time.Now(), "2024-06-01", "2024-06-01")

	require.NoError(t, err)
	require.Equal(t, rng.StartString(), rng.EndString())
}

func TestResolveDateRangeMalformedDates(t *testing.T) {
	malformed := []string{
		"2021-13-40",
		"not-a-date",
		"21-01-2021",
		"2024-6-1",
		"2024-02-30",
		"2024-06-01T00:00:00Z",
		"2024/06/01",
		" 2024-06-01",
	}

	for _, value := range malformed {
		t.Run("start "+value, func(t *testing.T) {
			_, err := ResolveDateRange(zerolog.Nop(), time.Now(), value, "")
			assertInvalidRequest(t, err, "start", "start date must use format YYYY-MM-DD")
		})
		t.Run("end "+value, func(t *testing.T) {
			_, err := ResolveDateRange(zerolog.Nop(), time.Now(), "2020-01-01", value)
			assertInvalidRequest(t, err, "end", "end date must use format YYYY-MM-DD")
		})
	}
}

func TestResolveDateRangeZeroStartIsNotDefaulted(t *testing.T) {
	_, err := ResolveDateRange(zerolog.Nop(), time.Now(), "0", "")

	assertInvalidRequest(t, err, "start", "start date must use format YYYY-MM-DD")
}

func TestResolveDateRangeRejectsEndBeforeStart(t *testing.T) {
	_, err := ResolveDateRange(zerolog.Nop(), time.Now(), "2024-06-10", "2024-06-01")

	assertInvalidRequest(t, err, "end", "end date cannot be lower than start date")
}

func TestResolveDateRangeRejectsEndBeforeDefaultedStart(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	_, err := ResolveDateRange(zerolog.Nop(), now, "", "2024-06-09")

	assertInvalidRequest(t, err, "end", "end date cannot be lower than start date")
}

func TestResolveDateRangeFormatErrorsWinOverOrdering(t *testing.T) {
	t.Run("malformed start is reported before malformed end", func(t *testing.T) {
		_, err := ResolveDateRange(zerolog.Nop(), time.Now(), "bad", "also-bad")
		assertInvalidRequest(t, err, "start", "start date must use format YYYY-MM-DD")
	})

	t.Run("malformed end is reported instead of ordering", func(t *testing.T) {
		_, err := ResolveDateRange(zerolog.Nop(), time.Now(), "2024-06-10", "2024-06-1")
		assertInvalidRequest(t, err, "end", "end date must use format YYYY-MM-DD")
	})
}

func TestResolveDateRangeLogsParseFailures(t *testing.T) {
	previous := zerolog.ErrorStackMarshaler
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	defer func() { zerolog.ErrorStackMarshaler = previous }()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	_, err := ResolveDateRange(logger, time.Now(), "not-a-date", "")
	require.Error(t, err)

	out := buf.String()
	require.Contains(t, out, `"level":"error"`)
	require.Contains(t, out, `"field":"start"`)
	require.Contains(t, out, `"value":"not-a-date"`)
	require.Contains(t, out, `"stack"`)
	require.Contains(t, out, "invalid date parameter")
}

func TestResolveDateRangeDoesNotLogOrderingErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	_, err := ResolveDateRange(logger, time.Now(), "2024-06-10", "2024-06-01")

	require.Error(t, err)
	require.Empty(t, buf.String())
}
