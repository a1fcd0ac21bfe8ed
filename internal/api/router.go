package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/event-api/internal/api/handlers"
	"github.com/Togather-Foundation/event-api/internal/api/middleware"
	"github.com/Togather-Foundation/event-api/internal/api/problem"
	"github.com/Togather-Foundation/event-api/internal/cache"
	"github.com/Togather-Foundation/event-api/internal/config"
	"github.com/Togather-Foundation/event-api/internal/domain/events"
	"github.com/Togather-Foundation/event-api/internal/i18n"
	"github.com/Togather-Foundation/event-api/internal/metrics"
	"github.com/Togather-Foundation/event-api/internal/storage"
)

// Dependencies are the collaborators the HTTP API is built from.
type Dependencies struct {
	Config     config.Config
	Logger     zerolog.Logger
	Repository storage.Repository
	// Cache enables the response cache on /event when not nil.
	Cache cache.Store
	// CachePinger is checked by /readyz when the cache is a shared service.
	CachePinger handlers.Pinger
	Version     string
	GitCommit   string
	BuildDate   string
	// Now overrides the clock; it is converted to the events timezone.
	Now func() time.Time
}

func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	if deps.Repository == nil {
		return nil, fmt.Errorf("router: repository is required")
	}

	loc, err := cfg.Events.Location()
	if err != nil {
		return nil, err
	}
	negotiator, err := i18n.NewNegotiator(cfg.Events.Languages, cfg.Events.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	clock := deps.Now
	if clock == nil {
		clock = time.Now
	}
	now := func() time.Time { return clock().In(loc) }

	eventsService := events.NewService(deps.Repository.Events())
	eventsHandler := handlers.NewEventsHandler(eventsService, negotiator, now, cfg.Environment, cfg.Cache.TTL)
	health := handlers.NewHealthChecker(deps.Repository, deps.CachePinger, deps.Version, deps.GitCommit, deps.BuildDate)

	var listEvents http.Handler = http.HandlerFunc(eventsHandler.List)
	if deps.Cache != nil {
		listEvents = middleware.ResponseCache(deps.Cache, cfg.Cache.TTL, negotiator.Current)(listEvents)
	}
	listEvents = negotiator.Middleware(listEvents)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/version", health.Version())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/event", methodMux(map[string]http.Handler{
		http.MethodGet: listEvents,
	}))
	mux.Handle("/", notFound(cfg.Environment))

	var handler http.Handler = mux
	handler = middleware.RateLimit(cfg.RateLimit, cfg.Environment)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler, nil
}

// notFound answers every path no route claims with a problem document.
func notFound(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", nil, env,
			problem.WithDetail("no resource at "+r.URL.Path))
	})
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
