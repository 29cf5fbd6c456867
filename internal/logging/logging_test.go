package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := Setup(Options{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("render.done", "types", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "render.done", rec["msg"])
	assert.EqualValues(t, 3, rec["types"])
	assert.NotContains(t, rec, "source")
	assert.Contains(t, rec["time"], "Z")
}

func TestSetup_DebugTextAddsSource(t *testing.T) {
	var buf bytes.Buffer
	l, err := Setup(Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	l.Debug("classify", "field", "id")
	assert.Contains(t, buf.String(), "msg=classify")
	assert.Contains(t, buf.String(), "source=")
}

func TestSetup_Errors(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = Setup(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestDiscard(t *testing.T) {
	assert.NotNil(t, Discard())
}
