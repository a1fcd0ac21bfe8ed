package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/event-api/internal/api/cachemeta"
	"github.com/Togather-Foundation/event-api/internal/cache"
	"github.com/Togather-Foundation/event-api/internal/metrics"
)

// CacheStatusHeader reports HIT or MISS for responses that passed through
// the response cache.
const CacheStatusHeader = "X-Cache"

// storedHeaders are the response headers replayed on a cache hit.
var storedHeaders = []string{
	"Content-Type",
	"Content-Language",
	"Cache-Control",
	cachemeta.HeaderContexts,
}

type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// ResponseCache serves repeated GET requests from store.
//
// Entries are keyed by the cache contexts the handler declared through
// cachemeta: the first lookup finds the context list recorded for the path,
// the second the response stored for this request's values of those contexts
// and its language. Only 200 responses are stored, for ttl or the declared
// max-age when that is shorter, and never when the handler declared
// no-store. Store failures are logged and the request is served uncached.
func ResponseCache(store cache.Store, ttl time.Duration, language func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || ttl <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := zerolog.Ctx(ctx)
			lang := language(ctx)

			if cached, ok := lookup(ctx, store, r, lang); ok {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				replay(w, cached)
				return
			}
			metrics.CacheLookups.WithLabelValues("miss").Inc()

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			if cw.status == 0 {
				cw.status = http.StatusOK
			}

			w.Header().Set(CacheStatusHeader, "MISS")
			w.WriteHeader(cw.status)
			_, _ = w.Write(cw.body.Bytes())

			if cw.status != http.StatusOK {
				return
			}

			meta := cachemeta.FromHeader(w.Header()).Merge(cachemeta.New(cachemeta.ContextLanguages))
			if meta.NoStore {
				return
			}
			entryTTL := ttl
			if meta.MaxAge > 0 && meta.MaxAge < entryTTL {
				entryTTL = meta.MaxAge
			}

			payload, err := json.Marshal(cachedResponse{
				Status: cw.status,
				Header: pickHeaders(w.Header()),
				Body:   cw.body.Bytes(),
			})
			if err != nil {
				logger.Warn().Err(err).Msg("encode cached response")
				return
			}
			if err := store.Set(ctx, contextsKey(r), []byte(strings.Join(meta.Contexts, " ")), ttl); err != nil {
				metrics.CacheLookups.WithLabelValues("error").Inc()
				logger.Warn().Err(err).Msg("store cache contexts")
				return
			}
			if err := store.Set(ctx, variantKey(r, meta.Contexts, lang), payload, entryTTL); err != nil {
				metrics.CacheLookups.WithLabelValues("error").Inc()
				logger.Warn().Err(err).Msg("store cached response")
			}
		})
	}
}

func lookup(ctx context.Context, store cache.Store, r *http.Request, lang string) (cachedResponse, bool) {
	logger := zerolog.Ctx(ctx)

	rawContexts, ok, err := store.Get(ctx, contextsKey(r))
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("read cache contexts")
		return cachedResponse{}, false
	}
	if !ok {
		return cachedResponse{}, false
	}

	payload, ok, err := store.Get(ctx, variantKey(r, strings.Fields(string(rawContexts)), lang))
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("read cached response")
		return cachedResponse{}, false
	}
	if !ok {
		return cachedResponse{}, false
	}

	var cached cachedResponse
	if err := json.Unmarshal(payload, &cached); err != nil {
		logger.Warn().Err(err).Msg("decode cached response")
		return cachedResponse{}, false
	}
	return cached, true
}

func replay(w http.ResponseWriter, cached cachedResponse) {
	for key, values := range cached.Header {
		w.Header()[key] = values
	}
	w.Header().Set(CacheStatusHeader, "HIT")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}

func contextsKey(r *http.Request) string {
	return "contexts:" + r.URL.Path
}

// variantKey identifies a response by path and the values of contexts for r.
// The language context is always part of the key.
func variantKey(r *http.Request, contexts []string, lang string) string {
	meta := cachemeta.New(contexts...).Merge(cachemeta.New(cachemeta.ContextLanguages))
	values := url.Values{}
	for _, c := range meta.Contexts {
		values.Set(c, cachemeta.Value(c, r, lang))
	}
	return "response:" + r.URL.Path + "?" + values.Encode()
}

func pickHeaders(h http.Header) http.Header {
	out := http.Header{}
	for _, key := range storedHeaders {
		if values := h.Values(key); len(values) > 0 {
			out[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
	return out
}

// captureWriter holds the response until the cache has seen it.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(statusCode int) {
	if w.status == 0 {
		w.status = statusCode
	}
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}
