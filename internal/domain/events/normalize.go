package events

// EventView is the external shape of an event record.
type EventView struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Date  string `json:"date"`
}

// Normalize returns the external representation of record. Events are
// projected to EventView with their stored values as-is; every other kind
// gets its full attribute map.
func Normalize(record Record) any {
	switch record.Kind {
	case KindEvent:
		return EventView{
			Title: record.Title,
			Body:  record.Body,
			Date:  record.Date,
		}
	default:
		return record.Attributes()
	}
}

// NormalizeAll normalizes records in order. The result is never nil.
func NormalizeAll(records []Record) []any {
	out := make([]any, 0, len(records))
	for _, record := range records {
		out = append(out, Normalize(record))
	}
	return out
}
