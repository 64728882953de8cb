package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira-issue-sync/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "json")

	logger.Info().Str("project", "PROJ").Int("offset", 50).Msg("page synced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "PROJ", entry["project"])
	assert.Equal(t, float64(50), entry["offset"])
	assert.Equal(t, "page synced", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "console")
	logger.Warn().Msg("skipped record")

	assert.Contains(t, buf.String(), "skipped record")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestNew_FileAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	logger, closer, err := New(config.LogConfig{Level: "warn", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info().Msg("filtered out")
	logger.Warn().Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "filtered out")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
