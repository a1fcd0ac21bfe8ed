package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Togather-Foundation/event-api/internal/domain/events"
	"github.com/Togather-Foundation/event-api/internal/metrics"
)

var _ events.Store = (*EventRepository)(nil)
var _ events.Writer = (*EventRepository)(nil)

const tracerName = "github.com/Togather-Foundation/event-api/internal/storage/postgres"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// columns maps query field names to columns of the records table.
var columns = map[string]string{
	events.FieldKind:     "type",
	events.FieldStatus:   "status",
	events.FieldLanguage: "langcode",
	events.FieldDate:     "field_date",
}

var recordColumns = []string{
	"id", "type", "title", "body", "COALESCE(to_char(field_date, 'YYYY-MM-DD'), '')",
	"status", "langcode", "fields", "created_at", "updated_at",
}

type recordRow struct {
	ID        string
	Kind      string
	Title     string
	Body      string
	Date      string
	Status    bool
	Langcode  string
	Fields    map[string]any
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

func (r *EventRepository) Query(ctx context.Context, q *events.Query) (ids []string, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "postgres.records.Query")
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordQuery("records_query", start, err) }()

	sqlText, args, err := buildIDQuery(q)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("db.statement", sqlText))

	rows, err := r.queryer().Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	ids = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record ids: %w", err)
	}
	return ids, nil
}

func (r *EventRepository) Load(ctx context.Context, ids []string) (_ []events.Record, err error) {
	if len(ids) == 0 {
		return []events.Record{}, nil
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "postgres.records.Load")
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordQuery("records_load", start, err) }()
	span.SetAttributes(attribute.Int("records.requested", len(ids)))

	sqlText, args, err := buildLoadQuery(ids)
	if err != nil {
		return nil, err
	}

	rows, err := r.queryer().Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]events.Record, len(ids))
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(
			&row.ID, &row.Kind, &row.Title, &row.Body, &row.Date,
			&row.Status, &row.Langcode, &row.Fields, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		byID[row.ID] = row.toRecord()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	out := make([]events.Record, 0, len(byID))
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *EventRepository) Save(ctx context.Context, record events.Record) error {
	fields := record.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	_, err := r.queryer().Exec(ctx, `
INSERT INTO records (id, type, title, body, field_date, status, langcode, fields, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, $6, $7, $8, COALESCE($9, now()), COALESCE($10, now()))
ON CONFLICT (id) DO UPDATE SET
  type = EXCLUDED.type,
  title = EXCLUDED.title,
  body = EXCLUDED.body,
  field_date = EXCLUDED.field_date,
  status = EXCLUDED.status,
  langcode = EXCLUDED.langcode,
  fields = EXCLUDED.fields,
  updated_at = now()
`,
		record.ID, record.Kind, record.Title, record.Body, record.Date,
		record.Published, record.Language, fields,
		timeOrNil(record.CreatedAt), timeOrNil(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", record.ID, err)
	}
	return nil
}

// buildIDQuery renders q as a statement selecting matching record ids. Rows
// with equal sort keys come back in id order.
func buildIDQuery(q *events.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	stmt := psql.Select("id").From("records")
	for _, cond := range q.Conditions {
		pred, err := predicate(cond)
		if err != nil {
			return "", nil, err
		}
		stmt = stmt.Where(pred)
	}
	for _, by := range q.Sorts {
		stmt = stmt.OrderBy(columns[by.Field] + " " + string(by.Direction))
	}
	stmt = stmt.OrderBy("id ASC")

	return stmt.ToSql()
}

func buildLoadQuery(ids []string) (string, []any, error) {
	return psql.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"id": ids}).
		ToSql()
}

func predicate(cond events.Condition) (sq.Sqlizer, error) {
	column := columns[cond.Field]
	placeholder := "?"
	if cond.Field == events.FieldDate {
		if _, ok := cond.Value.(string); !ok {
			return nil, fmt.Errorf("field %s expects a %s string, got %T", cond.Field, events.DateFormatLabel, cond.Value)
		}
		placeholder = "?::date"
	}

	if cond.Operator == events.OpEqual && placeholder == "?" {
		return sq.Eq{column: cond.Value}, nil
	}
	return sq.Expr(column+" "+string(cond.Operator)+" "+placeholder, cond.Value), nil
}

func (row recordRow) toRecord() events.Record {
	record := events.Record{
		ID:        row.ID,
		Kind:      row.Kind,
		Title:     row.Title,
		Body:      row.Body,
		Date:      row.Date,
		Published: row.Status,
		Language:  row.Langcode,
		Fields:    row.Fields,
	}
	if row.CreatedAt.Valid {
		record.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		record.UpdatedAt = row.UpdatedAt.Time
	}
	return record
}

func timeOrNil(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}
