package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)

	tests := []struct {
		name string
		line string
		want time.Time
	}{
		{"json", `{"time":"2026-01-15T10:30:45.123Z","level":"INFO","msg":"x"}`, want},
		{"text field", `time=2026-01-15T10:30:45.123Z level=INFO msg=x`, want},
		{"prefix", `2026-01-15T10:30:45.123Z INFO x`, want},
		{"none", `INFO something happened`, time.Time{}},
		{"garbage time", `{"time":"yesterday"}`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(extractTimestamp(tt.line)), "got %v", extractTimestamp(tt.line))
		})
	}
}

func TestTailLines(t *testing.T) {
	input := strings.Join([]string{
		`{"time":"2026-01-15T10:00:00Z","msg":"one"}`,
		`{"time":"2026-01-15T11:00:00Z","msg":"two"}`,
		`no timestamp`,
		`{"time":"2026-01-15T12:00:00Z","msg":"three"}`,
	}, "\n")

	t.Run("last n", func(t *testing.T) {
		lines, err := tailLines(strings.NewReader(input), 2, time.Time{})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, "no timestamp", lines[0])
		assert.Contains(t, lines[1], "three")
	})

	t.Run("since keeps undated lines", func(t *testing.T) {
		since := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
		lines, err := tailLines(strings.NewReader(input), 10, since)
		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "two")
	})

	t.Run("zero lines", func(t *testing.T) {
		lines, err := tailLines(strings.NewReader(input), 0, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}
