package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/event-api/internal/api/cachemeta"
	"github.com/Togather-Foundation/event-api/internal/cache"
	"github.com/Togather-Foundation/event-api/internal/i18n"
)

type countingHandler struct {
	calls  atomic.Int32
	status int
	maxAge time.Duration
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.calls.Add(1)
	cachemeta.New(cachemeta.QueryArg("start"), cachemeta.QueryArg("end")).WithMaxAge(h.maxAge).Apply(w.Header())
	w.Header().Set("Content-Type", "application/json")
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
}

func newCachedHandler(t *testing.T, store cache.Store, inner http.Handler) http.Handler {
	t.Helper()
	negotiator, err := i18n.NewNegotiator([]string{"en", "fr"}, "en")
	require.NoError(t, err)
	return negotiator.Middleware(ResponseCache(store, time.Minute, negotiator.Current)(inner))
}

func fetch(handler http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestResponseCacheServesRepeatedRequests(t *testing.T) {
	inner := &countingHandler{}
	handler := newCachedHandler(t, cache.NewMemoryStore(100), inner)

	first := fetch(handler, "/event?start=2024-06-01")
	require.Equal(t, "MISS", first.Header().Get(CacheStatusHeader))

	second := fetch(handler, "/event?start=2024-06-01")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "HIT", second.Header().Get(CacheStatusHeader))
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.Equal(t, "url.query_args:end url.query_args:start", second.Header().Get(cachemeta.HeaderContexts))
	require.EqualValues(t, 1, inner.calls.Load())
}

func TestResponseCacheVariesByDeclaredContexts(t *testing.T) {
	inner := &countingHandler{}
	handler := newCachedHandler(t, cache.NewMemoryStore(100), inner)

	fetch(handler, "/event?start=2024-06-01")
	require.Equal(t, "MISS", fetch(handler, "/event?start=2024-06-02").Header().Get(CacheStatusHeader))
	require.Equal(t, "MISS", fetch(handler, "/event?start=2024-06-01&end=2024-06-30").Header().Get(CacheStatusHeader))
	require.Equal(t, "HIT", fetch(handler, "/event?start=2024-06-01&utm_source=mail").Header().Get(CacheStatusHeader))
	require.EqualValues(t, 3, inner.calls.Load())
}

func TestResponseCacheVariesByLanguage(t *testing.T) {
	inner := &countingHandler{}
	handler := newCachedHandler(t, cache.NewMemoryStore(100), inner)

	fetch(handler, "/event", "Accept-Language", "en")
	fr := fetch(handler, "/event", "Accept-Language", "fr-CA")
	require.Equal(t, "MISS", fr.Header().Get(CacheStatusHeader))
	require.Equal(t, "fr", fr.Header().Get("Content-Language"))

	frAgain := fetch(handler, "/event", "Accept-Language", "fr")
	require.Equal(t, "HIT", frAgain.Header().Get(CacheStatusHeader))
	require.Equal(t, "fr", frAgain.Header().Get("Content-Language"))
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	inner := &countingHandler{status: http.StatusBadRequest}
	handler := newCachedHandler(t, cache.NewMemoryStore(100), inner)

	require.Equal(t, http.StatusBadRequest, fetch(handler, "/event?start=bad").Code)
	require.Equal(t, "MISS", fetch(handler, "/event?start=bad").Header().Get(CacheStatusHeader))
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestResponseCacheHonoursShorterMaxAge(t *testing.T) {
	store := &recordingStore{MemoryStore: cache.NewMemoryStore(100)}
	inner := &countingHandler{maxAge: 10 * time.Second}
	handler := newCachedHandler(t, store, inner)

	fetch(handler, "/event")

	require.Equal(t, time.Minute, store.ttls["contexts:/event"])
	require.Equal(t, 10*time.Second, store.ttls["response:/event?languages=en&url.query_args%3Aend=&url.query_args%3Astart="])
}

func TestResponseCacheDoesNotStoreSubSecondMaxAge(t *testing.T) {
	store := &recordingStore{MemoryStore: cache.NewMemoryStore(100)}
	inner := &countingHandler{maxAge: 400 * time.Millisecond}
	handler := newCachedHandler(t, store, inner)

	first := fetch(handler, "/event")
	require.Equal(t, "no-store", first.Header().Get("Cache-Control"))
	require.Empty(t, store.ttls)

	require.Equal(t, "MISS", fetch(handler, "/event").Header().Get(CacheStatusHeader))
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestResponseCachePassesThroughOnStoreFailure(t *testing.T) {
	inner := &countingHandler{}
	handler := newCachedHandler(t, failingStore{}, inner)

	rec := fetch(handler, "/event")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "MISS", rec.Header().Get(CacheStatusHeader))

	fetch(handler, "/event")
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestResponseCacheIgnoresNonGET(t *testing.T) {
	inner := &countingHandler{}
	handler := newCachedHandler(t, cache.NewMemoryStore(100), inner)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodHead, "/event", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Empty(t, rec.Header().Get(CacheStatusHeader))
	}
	require.EqualValues(t, 2, inner.calls.Load())
}

type recordingStore struct {
	*cache.MemoryStore
	ttls map[string]time.Duration
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.ttls == nil {
		s.ttls = map[string]time.Duration{}
	}
	s.ttls[key] = ttl
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
