package events

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DateLayout is the only accepted date format for range parameters and
	// the format dates are handed to the store in.
	DateLayout = "2006-01-02"
	// DateFormatLabel is DateLayout as shown to API callers.
	DateFormatLabel = "YYYY-MM-DD"
)

// DateRange is the validated start/end window of a list request. End is nil
// when the caller did not bound the range.
type DateRange struct {
	Start time.Time
	End   *time.Time
	// StartDefaulted is set when Start was taken from the clock.
	StartDefaulted bool
}

// StartString returns Start formatted with DateLayout.
func (r DateRange) StartString() string {
	return r.Start.Format(DateLayout)
}

// EndString returns End formatted with DateLayout, or "" when unbounded.
func (r DateRange) EndString() string {
	if r.End == nil {
		return ""
	}
	return r.End.Format(DateLayout)
}

// ResolveDateRange validates the raw start and end query values.
//
// An empty start defaults to the calendar date of now; an empty end leaves the
// range open. Dates must match DateLayout exactly. Malformed values are
// reported (start first) before the ordering rule is checked, and a start
// equal to end is accepted. Parse failures are logged to logger with a stack
// trace; the returned InvalidRequestError carries only the client message.
func ResolveDateRange(logger zerolog.Logger, now time.Time, startRaw, endRaw string) (DateRange, error) {
	loc := now.Location()

	rng := DateRange{}
	if startRaw == "" {
		y, m, d := now.Date()
		rng.Start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		rng.StartDefaulted = true
	} else {
		start, err := parseDate(logger, "start", startRaw, loc)
		if err != nil {
			return DateRange{}, err
		}
		rng.Start = start
	}

	if endRaw != "" {
		end, err := parseDate(logger, "end", endRaw, loc)
		if err != nil {
			return DateRange{}, err
		}
		rng.End = &end
	}

	if rng.End != nil && rng.Start.After(*rng.End) {
		return DateRange{}, InvalidRequestError{
			Field:   "end",
			Message: "end date cannot be lower than start date",
		}
	}
	return rng, nil
}

func parseDate(logger zerolog.Logger, field, raw string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		logger.Error().
			Stack().
			Err(errors.Wrapf(err, "parse %s date", field)).
			Str("field", field).
			Str("value", raw).
			Msg("invalid date parameter")
		return time.Time{}, InvalidRequestError{
			Field:   field,
			Message: field + " date must use format " + DateFormatLabel,
		}
	}
	return parsed, nil
}
