package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

const testULID = "01HYX3KQW7ERTV9XNBM2P8QJZF"

func TestNewULIDAtEncodesTimestamp(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	value, err := NewULIDAt(at)
	require.NoError(t, err)
	parsed, err := ulid.ParseStrict(value)
	require.NoError(t, err)
	require.Equal(t, at.UnixMilli(), ulid.Time(parsed.Time()).UnixMilli())
}

func TestNormalize(t *testing.T) {
	require.Equal(t, testULID, Normalize("  01hyx3kqw7ertv9xnbm2p8qjzf "))
}
