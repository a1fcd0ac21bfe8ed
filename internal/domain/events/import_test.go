package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	saved []Record
	err   error
}

func (w *recordingWriter) Save(_ context.Context, record Record) error {
	if w.err != nil {
		return w.err
	}
	w.saved = append(w.saved, record)
	return nil
}

const importDoc = `
records:
  - type: event
    title: Launch
    body: Details
    date: 2024-06-01
    langcode: en
  - id: 01hyx3kqw7ertv9xnbm2p8qjzf
    type: page
    title: About
    langcode: fr-CA
    status: false
    fields:
      menu: main
`

func TestDecodeImport(t *testing.T) {
	file, err := DecodeImport(strings.NewReader(importDoc))

	require.NoError(t, err)
	require.Len(t, file.Records, 2)
	require.Equal(t, "2024-06-01", file.Records[0].Date)
	require.Nil(t, file.Records[0].Published)
	require.NotNil(t, file.Records[1].Published)
	require.False(t, *file.Records[1].Published)
	require.Equal(t, "main", file.Records[1].Fields["menu"])
}

func TestDecodeImportEmptyDocument(t *testing.T) {
	file, err := DecodeImport(strings.NewReader(""))

	require.NoError(t, err)
	require.Empty(t, file.Records)
}

func TestDecodeImportValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "records:\n  - type: event\n    title: A\n    date: 2024-06-01\n    langcode: en\n    color: red\n"},
		{name: "missing type", doc: "records:\n  - title: A\n    langcode: en\n"},
		{name: "bad date", doc: "records:\n  - type: event\n    title: A\n    date: 2024-13-01\n    langcode: en\n"},
		{name: "event without date", doc: "records:\n  - type: event\n    title: A\n    langcode: en\n"},
		{name: "bad language", doc: "records:\n  - type: page\n    title: A\n    langcode: not a tag\n"},
		{name: "bad id", doc: "records:\n  - id: 42\n    type: page\n    title: A\n    langcode: en\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImport(strings.NewReader(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestImportServiceSavesRecords(t *testing.T) {
	file, err := DecodeImport(strings.NewReader(importDoc))
	require.NoError(t, err)

	writer := &recordingWriter{}
	svc := NewImportService(writer)
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	count, err := svc.Import(context.Background(), file)

	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, writer.saved, 2)

	first := writer.saved[0]
	_, err = ulid.ParseStrict(first.ID)
	require.NoError(t, err)
	require.Equal(t, KindEvent, first.Kind)
	require.True(t, first.Published)
	require.Equal(t, fixed, first.CreatedAt)

	second := writer.saved[1]
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZF", second.ID)
	require.False(t, second.Published)
	require.Equal(t, "fr-CA", second.Language)
}

func TestImportServiceStopsOnWriteError(t *testing.T) {
	file, err := DecodeImport(strings.NewReader(importDoc))
	require.NoError(t, err)

	boom := errors.New("disk full")
	count, err := NewImportService(&recordingWriter{err: boom}).Import(context.Background(), file)

	require.ErrorIs(t, err, boom)
	require.Zero(t, count)
}
