package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "data/studyquest.db", cfg.DBDSN)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.ReminderStartHour)
	assert.Equal(t, 20, cfg.ReminderEndHour)
	assert.Equal(t, 2.0, cfg.SyncRatePerSecond)
	assert.Equal(t, 5, cfg.SyncBurst)
	assert.Equal(t, 720*time.Hour, cfg.SyncBatchRetention)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Error(t, cfg.RequireServe())
}

func TestOverrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"STUDYQUEST_DB_DRIVER":            "postgres",
		"STUDYQUEST_DB_DSN":               "postgres://localhost/studyquest",
		"STUDYQUEST_JWT_SECRET":           "s3cret",
		"STUDYQUEST_TIMEZONE":             "Europe/Berlin",
		"STUDYQUEST_SYNC_BATCH_RETENTION": "48h",
		"STUDYQUEST_LOG_FORMAT":           "json",
		"DB_DRIVER":                       "ignored-without-prefix",
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, 48*time.Hour, cfg.SyncBatchRetention)
	assert.NoError(t, cfg.RequireServe())
}

func TestValidationReportsEveryProblem(t *testing.T) {
	_, err := FromMap(map[string]string{
		"STUDYQUEST_DB_DRIVER":           "mysql",
		"STUDYQUEST_TIMEZONE":            "Mars/Olympus",
		"STUDYQUEST_REMINDER_START_HOUR": "21",
		"STUDYQUEST_SYNC_BURST":          "0",
		"STUDYQUEST_LOG_LEVEL":           "loud",
	})
	require.Error(t, err)
	for _, want := range []string{"DB_DRIVER", "TIMEZONE", "REMINDER_START_HOUR", "SYNC_BURST", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestMalformedValue(t *testing.T) {
	_, err := FromMap(map[string]string{"STUDYQUEST_SYNC_BURST": "many"})
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STUDYQUEST_HTTP_ADDR=:9999\nSTUDYQUEST_SYNC_BURST=9\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STUDYQUEST_HTTP_ADDR")
		os.Unsetenv("STUDYQUEST_SYNC_BURST")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 9, cfg.SyncBurst)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg, err := FromMap(map[string]string{"STUDYQUEST_LOG_FORMAT": "json", "STUDYQUEST_LOG_LEVEL": "warn"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "profile_id", 7)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, float64(7), line["profile_id"])
}
