package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/securitas/internal/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line must be valid JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestSlogLoggerWritesStructuredFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC).Module("detection")

	log.Info("detection stored",
		logger.String("detection_id", "d1"),
		logger.Int("attempt", 2),
		logger.Bool("approved", true),
		logger.Duration("elapsed", 1500*time.Millisecond))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "detection stored", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "detection", entry["module"])
	assert.Equal(t, "d1", entry["detection_id"])
	assert.InDelta(t, 2, entry["attempt"], 0)
	assert.Equal(t, true, entry["approved"])
	assert.Equal(t, "1.5s", entry["elapsed"])
}

func TestSlogLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelWarn, time.UTC)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Log(logger.LogLevelError, "also shown")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "also shown", entries[1]["msg"])
}

func TestSubModuleAndAccumulatedFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC).Module("datastore")
	scoped := base.Module("gorm").With(logger.String("company_code", "acme"))

	scoped.Info("query")
	base.Info("plain")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "datastore.gorm", entries[0]["module"])
	assert.Equal(t, "acme", entries[0]["company_code"])
	assert.Equal(t, "datastore", entries[1]["module"])
	assert.NotContains(t, entries[1], "company_code", "parent logger must not inherit child fields")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	log.WithContext(logger.WithTraceID(context.Background(), "req-42")).Info("approved")
	log.WithContext(context.Background()).Info("no trace")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "logs", "securitas.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: logPath, Level: "debug"},
		ModuleLevels: map[string]string{"notification": "warn"},
	})
	require.NoError(t, err)

	cl.Module("detection").Debug("ingested", logger.String("detection_id", "d1"))
	cl.Module("notification").Info("suppressed by module level")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "ingested", entries[0]["msg"])
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Contains(t, entries[0], "time")
}

func TestCentralLoggerRejectsInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}
