// Package i18n resolves the content language of a request.
package i18n

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

type contextKey struct{}

// Negotiator picks the content language of a request from Accept-Language
// among the configured languages.
type Negotiator struct {
	codes    []string
	matcher  language.Matcher
	fallback string
}

// NewNegotiator builds a negotiator for supported, answering fallback when
// nothing matches. fallback must be one of supported.
func NewNegotiator(supported []string, fallback string) (*Negotiator, error) {
	fallbackTag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", fallback, err)
	}

	// The matcher answers its first tag when nothing matches.
	tags := []language.Tag{fallbackTag}
	codes := []string{fallback}
	found := false
	for _, code := range supported {
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("parse language %q: %w", code, err)
		}
		if tag == fallbackTag {
			found = true
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, code)
	}
	if !found {
		return nil, fmt.Errorf("default language %q is not among %v", fallback, supported)
	}

	return &Negotiator{
		codes:    codes,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}, nil
}

// Negotiate returns the configured language code best matching an
// Accept-Language header value.
func (n *Negotiator) Negotiate(acceptLanguage string) string {
	if acceptLanguage == "" {
		return n.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return n.fallback
	}
	_, index, confidence := n.matcher.Match(tags...)
	if confidence == language.No {
		return n.fallback
	}
	return n.codes[index]
}

// Current returns the language negotiated for the request carried by ctx,
// or the default language outside a request.
func (n *Negotiator) Current(ctx context.Context) string {
	if code, ok := ctx.Value(contextKey{}).(string); ok && code != "" {
		return code
	}
	return n.fallback
}

// WithLanguage returns a context carrying code as the current language.
func WithLanguage(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, contextKey{}, code)
}

// Middleware negotiates the language of each request, stores it in the
// request context and announces it in Content-Language.
func (n *Negotiator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := n.Negotiate(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", code)
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), code)))
	})
}
