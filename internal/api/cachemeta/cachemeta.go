// Package cachemeta carries the cacheability of a response from the handler
// that built it to the response cache.
//
// A handler declares the request contexts its output varies by (for example
// one query argument) and how long the output stays valid. The declaration
// travels in response headers so caches outside the process can honour it too.
package cachemeta

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// HeaderContexts lists the declared cache contexts, space separated.
const HeaderContexts = "X-Cache-Contexts"

const (
	// ContextLanguages varies a response by the negotiated content language.
	ContextLanguages = "languages"

	queryArgPrefix = "url.query_args:"
)

// QueryArg names the context of a single query argument.
func QueryArg(name string) string {
	return queryArgPrefix + name
}

// Metadata is the cacheability of one response. A zero MaxAge leaves
// Cache-Control untouched. NoStore forbids storing the response at all.
type Metadata struct {
	Contexts []string
	MaxAge   time.Duration
	NoStore  bool
}

// New returns metadata varying by contexts.
func New(contexts ...string) Metadata {
	return Metadata{Contexts: normalize(contexts)}
}

// WithMaxAge returns a copy of m expiring after maxAge.
func (m Metadata) WithMaxAge(maxAge time.Duration) Metadata {
	m.MaxAge = maxAge
	return m
}

// Merge combines two declarations: contexts are unioned and the shorter
// positive max age wins.
func (m Metadata) Merge(other Metadata) Metadata {
	merged := Metadata{
		Contexts: normalize(append(slices.Clone(m.Contexts), other.Contexts...)),
		MaxAge:   m.MaxAge,
		NoStore:  m.NoStore || other.NoStore,
	}
	if other.MaxAge > 0 && (merged.MaxAge <= 0 || other.MaxAge < merged.MaxAge) {
		merged.MaxAge = other.MaxAge
	}
	return merged
}

// Apply writes m to h. It must be called before the response header is sent.
// Max age is rounded down to whole seconds; a positive max age under one
// second is written as no-store so the response cannot outlive it.
func (m Metadata) Apply(h http.Header) {
	if contexts := normalize(m.Contexts); len(contexts) > 0 {
		h.Set(HeaderContexts, strings.Join(contexts, " "))
	}
	switch {
	case m.NoStore || (m.MaxAge > 0 && m.MaxAge < time.Second):
		h.Set("Cache-Control", "no-store")
	case m.MaxAge > 0:
		h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(m.MaxAge/time.Second)))
	}
}

// FromHeader reads the metadata a handler applied to h.
func FromHeader(h http.Header) Metadata {
	m := Metadata{Contexts: normalize(strings.Fields(h.Get(HeaderContexts)))}
	for _, directive := range strings.Split(h.Get("Cache-Control"), ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		if directive == "no-store" {
			m.NoStore = true
			continue
		}
		if value, ok := strings.CutPrefix(directive, "max-age="); ok {
			seconds, err := strconv.Atoi(value)
			switch {
			case err != nil:
			case seconds > 0:
				m.MaxAge = time.Duration(seconds) * time.Second
			default:
				// already stale
				m.NoStore = true
			}
		}
	}
	return m
}

// Value resolves context for r. lang is the negotiated language. Unknown
// contexts resolve to the empty string.
func Value(context string, r *http.Request, lang string) string {
	if context == ContextLanguages {
		return lang
	}
	if name, ok := strings.CutPrefix(context, queryArgPrefix); ok {
		return r.URL.Query().Get(name)
	}
	return ""
}

// UntilMidnight returns the time left from now until the next midnight in
// now's location.
func UntilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
}

func normalize(contexts []string) []string {
	out := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
