package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Togather-Foundation/event-api/internal/api"

// Tracing starts a server span per request, continuing any W3C trace context
// the caller sent. Place it before RequestLogging so the span covers the
// whole request. Responses of 500 and above mark the span as failed.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := otel.Tracer(tracerName).Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(r.Method),
				semconv.HTTPURL(r.URL.String()),
				semconv.HTTPRoute(r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
				semconv.HTTPScheme(schemeFromRequest(r)),
				semconv.NetHostName(r.Host),
			),
		)
		defer span.End()

		if requestID := GetRequestID(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		ww := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(ww, r.WithContext(ctx))
		if ww.status == 0 {
			ww.status = http.StatusOK
		}

		span.SetAttributes(semconv.HTTPStatusCode(ww.status))
		if cacheStatus := ww.Header().Get(CacheStatusHeader); cacheStatus != "" {
			span.SetAttributes(attribute.String("http.cache", cacheStatus))
		}
		if ww.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(ww.status))
		}
	})
}

func schemeFromRequest(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
