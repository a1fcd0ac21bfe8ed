package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func serveSecurityHeaders(requireHTTPS bool, req *http.Request) *httptest.ResponseRecorder {
	handler := SecurityHeaders(requireHTTPS)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeadersSetsAPIHeaders(t *testing.T) {
	rec := serveSecurityHeaders(false, httptest.NewRequest(http.MethodGet, "/event", nil))

	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	require.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersHSTSOnlyOverTLS(t *testing.T) {
	plain := serveSecurityHeaders(true, httptest.NewRequest(http.MethodGet, "/event", nil))
	require.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "https://api.example.org/event", nil)
	req.TLS = &tls.ConnectionState{}
	secure := serveSecurityHeaders(true, req)
	require.Equal(t, "max-age=31536000; includeSubDomains", secure.Header().Get("Strict-Transport-Security"))
}
