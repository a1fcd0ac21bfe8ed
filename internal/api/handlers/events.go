package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/event-api/internal/api/cachemeta"
	"github.com/Togather-Foundation/event-api/internal/api/problem"
	"github.com/Togather-Foundation/event-api/internal/domain/events"
	"github.com/Togather-Foundation/event-api/internal/metrics"
)

// LanguageAccessor reports the content language of the current request.
type LanguageAccessor interface {
	Current(ctx context.Context) string
}

type EventsHandler struct {
	Service  *events.Service
	Language LanguageAccessor
	// Now returns the current time in the zone whose calendar defines "today".
	Now    func() time.Time
	Env    string
	MaxAge time.Duration
}

func NewEventsHandler(service *events.Service, language LanguageAccessor, now func() time.Time, env string, maxAge time.Duration) *EventsHandler {
	if now == nil {
		now = time.Now
	}
	return &EventsHandler{Service: service, Language: language, Now: now, Env: env, MaxAge: maxAge}
}

// List serves GET /event: published events in the current language between
// the start and end query parameters, oldest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil || h.Language == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", errors.New("events handler not configured"), envOf(h))
		return
	}

	ctx := r.Context()
	now := h.Now()
	query := r.URL.Query()

	rng, err := events.ResolveDateRange(*zerolog.Ctx(ctx), now, query.Get("start"), query.Get("end"))
	if err != nil {
		var invalid events.InvalidRequestError
		if errors.As(err, &invalid) {
			metrics.InvalidDateParameters.WithLabelValues(invalid.Field).Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithDetail(invalid.Message), problem.WithField(invalid.Field))
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	records, err := h.Service.ListInRange(ctx, rng, h.Language.Current(ctx))
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	metrics.EventsListed.Observe(float64(len(records)))

	h.cacheMetadata(rng, now).Apply(w.Header())
	writeJSON(w, http.StatusOK, events.NormalizeAll(records))
}

// cacheMetadata declares that the response varies by the start and end
// arguments. A defaulted start means "today", so the response must not be
// reused past local midnight.
func (h *EventsHandler) cacheMetadata(rng events.DateRange, now time.Time) cachemeta.Metadata {
	meta := cachemeta.New(cachemeta.QueryArg("start"), cachemeta.QueryArg("end"))
	if h.MaxAge <= 0 {
		return meta
	}
	maxAge := h.MaxAge
	if rng.StartDefaulted {
		if untilMidnight := cachemeta.UntilMidnight(now); untilMidnight < maxAge {
			maxAge = untilMidnight
		}
	}
	return meta.WithMaxAge(maxAge)
}

func envOf(h *EventsHandler) string {
	if h == nil {
		return ""
	}
	return h.Env
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
