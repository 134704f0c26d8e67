package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestExternalServiceResult_FailureLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "error", "json")
	t.Cleanup(func() { Initialize("info", "text") })

	ExternalServiceResult("slack", "post", nil) // debug, filtered out
	ExternalServiceResult("slack", "post", errors.New("status 500"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "slack", entry["service"])
	assert.Equal(t, "status 500", entry["error"])
}
