package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Togather-Foundation/event-api/internal/domain/ids"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ImportFile is the YAML document accepted by the import command.
type ImportFile struct {
	Records []ImportRecord `yaml:"records" validate:"dive"`
}

type ImportRecord struct {
	ID        string         `yaml:"id" validate:"omitempty,ulid"`
	Kind      string         `yaml:"type" validate:"required"`
	Title     string         `yaml:"title" validate:"required"`
	Body      string         `yaml:"body"`
	Date      string         `yaml:"date" validate:"omitempty,datetime=2006-01-02"`
	Published *bool          `yaml:"status"`
	Language  string         `yaml:"langcode" validate:"required,bcp47_language_tag"`
	Fields    map[string]any `yaml:"fields"`
}

var importValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeImport parses and validates an import document.
func DecodeImport(r io.Reader) (ImportFile, error) {
	var file ImportFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportFile{}, nil
		}
		return ImportFile{}, fmt.Errorf("decode import: %w", err)
	}
	if err := importValidator.Struct(file); err != nil {
		return ImportFile{}, fmt.Errorf("validate import: %w", err)
	}
	for i, rec := range file.Records {
		if rec.Kind == KindEvent && rec.Date == "" {
			return ImportFile{}, fmt.Errorf("validate import: record %d: events require a date", i)
		}
	}
	return file, nil
}

type ImportService struct {
	writer Writer
	now    func() time.Time
}

func NewImportService(writer Writer) *ImportService {
	return &ImportService{writer: writer, now: time.Now}
}

// Import saves every record of file, minting ULIDs for records without one.
// Records default to published. It stops at the first failure and returns
// the number of records saved before it.
func (s *ImportService) Import(ctx context.Context, file ImportFile) (int, error) {
	saved := 0
	for _, in := range file.Records {
		record, err := s.toRecord(in)
		if err != nil {
			return saved, err
		}
		if err := s.writer.Save(ctx, record); err != nil {
			return saved, fmt.Errorf("save record %s: %w", record.ID, err)
		}
		saved++
	}
	return saved, nil
}

func (s *ImportService) toRecord(in ImportRecord) (Record, error) {
	now := s.now().UTC()
	id := ids.Normalize(in.ID)
	if id == "" {
		generated, err := ids.NewULIDAt(now)
		if err != nil {
			return Record{}, fmt.Errorf("generate id: %w", err)
		}
		id = generated
	}
	published := true
	if in.Published != nil {
		published = *in.Published
	}
	return Record{
		ID:        id,
		Kind:      in.Kind,
		Title:     in.Title,
		Body:      in.Body,
		Date:      in.Date,
		Published: published,
		Language:  in.Language,
		Fields:    in.Fields,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
