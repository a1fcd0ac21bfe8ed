package middleware

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Togather-Foundation/event-api/internal/api/problem"
	"github.com/Togather-Foundation/event-api/internal/config"
)

const (
	limiterIdleTTL    = 15 * time.Minute
	limiterSweepEvery = 5 * time.Minute
	rateLimitedTitle  = "Too many requests"
)

var errRateLimited = errors.New("rate limit exceeded")

// RateLimit applies a per-client token bucket of cfg.PublicPerMinute requests
// with an equal burst. Health probes are never limited and a non-positive
// limit disables the middleware.
func RateLimit(cfg config.RateLimitConfig, env string) func(http.Handler) http.Handler {
	if cfg.PublicPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	store := newLimiterStore(cfg.PublicPerMinute, time.Now)
	retryAfter := strconv.Itoa(int(math.Ceil(60 / float64(cfg.PublicPerMinute))))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
				next.ServeHTTP(w, r)
				return
			}

			if !store.limiter(clientKey(r, cfg.TrustedProxyCIDRs)).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, rateLimitedTitle, errRateLimited, env,
					problem.WithDetail("rate limit of "+strconv.Itoa(cfg.PublicPerMinute)+" requests per minute exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute int
	now       func() time.Time
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(perMinute int, now func() time.Time) *limiterStore {
	return &limiterStore{
		limiters:  make(map[string]*limiterEntry),
		perMinute: perMinute,
		now:       now,
		lastSweep: now(),
	}
}

func (s *limiterStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= limiterSweepEvery {
		s.sweep(now)
	}

	if entry, ok := s.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.perMinute)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// sweep drops limiters idle for longer than limiterIdleTTL. Callers hold mu.
func (s *limiterStore) sweep(now time.Time) {
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

// clientKey identifies the caller. Forwarding headers are honoured only when
// the connection comes from a trusted proxy.
func clientKey(r *http.Request, trustedProxyCIDRs []string) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}

	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	if len(trustedCIDRs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidrStr := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(cidrStr)
		if err != nil {
			continue
		}
		if cidr.Contains(parsedIP) {
			return true
		}
	}

	return false
}
