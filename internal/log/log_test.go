package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"brickcore/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.Log{Level: "debug", Format: "json"})
	require.NoError(t, err)
	ingestLogger := For(logger, CompIngest)
	ingestLogger.Debug().Str("item", "part:3001:5").Int("instances", 2).Msg("pushed")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	require.Equal(t, "debug", event["level"])
	require.Equal(t, "ingest", event["component"])
	require.Equal(t, "part:3001:5", event["item"])
	require.EqualValues(t, 2, event["instances"])
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.Log{Level: "warn", Format: "console"})
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	require.Empty(t, buf.String())
	logger.Warn().Msg("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(&bytes.Buffer{}, config.Log{Level: "loud"})
	require.Error(t, err)
	_, err = New(&bytes.Buffer{}, config.Log{Level: "info", Format: "xml"})
	require.Error(t, err)
}
