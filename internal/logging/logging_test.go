package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")

	logger.Info().Msg("hidden")
	logger.Warn().Str("source", "battery").Msg("fallback applied")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "battery", entry["source"])
	assert.Equal(t, "fallback applied", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewConsoleAndLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "nonsense", "console")

	logger.Debug().Msg("dropped")
	logger.Info().Msg("solve finished")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "solve finished")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
