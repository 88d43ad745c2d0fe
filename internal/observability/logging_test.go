package observability

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/config"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestNewLogger_TagsServiceIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(
		config.LoggerConfig{Level: "WARN", Output: path},
		config.AppConfig{Name: "helpdesk-sla", Version: "1.4.0", Env: "production"},
	)
	require.NoError(t, err)

	logger.Info("dropped below level")
	logger.Warn("breach scan slow")
	require.NoError(t, logger.Sync())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "breach scan slow", entries[0]["message"])
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "helpdesk-sla", entries[0]["service"])
	assert.Equal(t, "1.4.0", entries[0]["version"])
	assert.Equal(t, "production", entries[0]["env"])
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty", Output: path}, config.AppConfig{Name: "helpdesk-sla"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.Sync())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}
