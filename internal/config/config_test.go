package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
host = "localhost"
port = 8080
log_level = "trace"
logs_path = ""
log_to_stdout = true
sentry_enabled = false
workouts_csv_path = "./workouts.csv"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"

[production]
host = ""
port = 9000
log_level = "debug"
logs_path = "/var/log/fittracker/service.log"
log_to_stdout = false
sentry_enabled = true
workouts_csv_path = "/var/data/fittracker/workouts.csv"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigContent), 0o644))
	return path
}

func TestLoad_Development(t *testing.T) {
	cfg, err := Load("development", writeTestConfig(t))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.True(t, cfg.LogToStdout)
	assert.False(t, cfg.SentryEnabled)
	assert.Equal(t, "./workouts.csv", cfg.WorkoutsCsvPath)
}

func TestLoad_Production(t *testing.T) {
	cfg, err := Load("prod", writeTestConfig(t))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.SentryEnabled)
	assert.Equal(t, "/var/data/fittracker/workouts.csv", cfg.WorkoutsCsvPath)
}

func TestLoad_UnknownEnv(t *testing.T) {
	cfg, err := Load("staging", writeTestConfig(t))
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "unknown env")
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("development", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Nil(t, cfg)
	assert.Error(t, err)
}
