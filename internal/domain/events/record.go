package events

import "time"

// KindEvent is the discriminator value of event records.
const KindEvent = "event"

// Store-level field names understood by Query conditions and sorts.
const (
	FieldKind     = "type"
	FieldStatus   = "status"
	FieldLanguage = "langcode"
	FieldDate     = "field_date"
)

// Record is a content record as held by the record store. Only records whose
// Kind is KindEvent are served by the date range endpoint; other kinds share
// the table and pass through the normalizer untouched.
type Record struct {
	ID        string
	Kind      string
	Title     string
	Body      string
	Date      string
	Published bool
	Language  string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attributes returns the default external representation of the record:
// every stored attribute keyed by its store-level name.
func (r Record) Attributes() map[string]any {
	attrs := map[string]any{
		"id":          r.ID,
		FieldKind:     r.Kind,
		"title":       r.Title,
		"body":        r.Body,
		FieldDate:     r.Date,
		FieldStatus:   r.Published,
		FieldLanguage: r.Language,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	}
	for key, value := range r.Fields {
		if _, reserved := attrs[key]; reserved {
			continue
		}
		attrs[key] = value
	}
	return attrs
}
