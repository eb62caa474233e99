package config_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fwojciec/collate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := config.NewLogger("info", config.LogFormatJSON, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("collated document")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "collated document", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewLogger_Console(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := config.NewLogger("debug", config.LogFormatConsole, &buf)
	require.NoError(t, err)

	logger.Debug("queue drained")
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "queue drained")
}

func TestNewLogger_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.NewLogger("loud", config.LogFormatJSON, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = config.NewLogger("info", "xml", &bytes.Buffer{})
	assert.EqualError(t, err, `unknown log format "xml"`)
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := config.NewLogger("debug", config.LogFormatJSON, &buf)
	require.NoError(t, err)

	config.Log(&config.Settings{CacheDir: "/tmp/cache", Moves: "/tmp/moves.jsonl"}, logger)

	assert.Contains(t, buf.String(), `"cache_dir":"/tmp/cache"`)
	assert.Contains(t, buf.String(), `"moves":"/tmp/moves.jsonl"`)
	assert.NotContains(t, buf.String(), "metrics_addr")
}
