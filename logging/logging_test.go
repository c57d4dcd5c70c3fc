package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{10, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Level(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestGetTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(1, &buf)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	l := Get("resource")
	l.Info().Msg("hello")
	l.Debug().Msg("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "resource", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}
