package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolatedLoader(t *testing.T, paths ...string) *Loader {
	t.Helper()
	t.Setenv(configEnvVar, "")
	if len(paths) == 0 {
		paths = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	}
	return NewLoader(WithConfigPaths(paths...))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := isolatedLoader(t).Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Rebooking.MaxLegs)
	assert.Equal(t, 72*time.Hour, cfg.Rebooking.MaxDepartureDrift)
	assert.Equal(t, 23*time.Hour, cfg.Rebooking.MaxLayover)
	assert.Equal(t, 8, cfg.Rebooking.Workers)
	assert.Equal(t, "csv", cfg.Input.Source)
	assert.Equal(t, "csv", cfg.Report.Format)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "rebooking.results", cfg.Kafka.Topic)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rebooking:
  max_legs: 3
  max_layover: 12h
report:
  format: xlsx
  output: out/report.xlsx
`), 0644))

	loader := isolatedLoader(t, path)
	t.Setenv("REBOOK_REBOOKING_WORKERS", "4")
	t.Setenv("REBOOK_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Rebooking.MaxLegs)
	assert.Equal(t, 12*time.Hour, cfg.Rebooking.MaxLayover)
	assert.Equal(t, 72*time.Hour, cfg.Rebooking.MaxDepartureDrift)
	assert.Equal(t, 4, cfg.Rebooking.Workers)
	assert.Equal(t, "xlsx", cfg.Report.Format)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Invalid(t *testing.T) {
	loader := isolatedLoader(t)
	t.Setenv("REBOOK_REBOOKING_MAX_LEGS", "0")
	t.Setenv("REBOOK_INPUT_SOURCE", "ftp")

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_legs")
	assert.Contains(t, err.Error(), "input.source")
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Database: "rebook", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 dbname=rebook user=u password=p sslmode=disable", d.DSN())
}

func TestLoad_ConfigFileSelection(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(present, []byte("rebooking:\n  workers: 3\n"), 0o600))
	missing := filepath.Join(dir, "absent.yaml")

	tests := []struct {
		name        string
		envPath     string
		opts        []LoaderOption
		wantErr     bool
		wantWorkers int
	}{
		{"Missing search path falls back to defaults", "", []LoaderOption{WithConfigPaths(missing)}, false, 8},
		{"Search path present", "", []LoaderOption{WithConfigPaths(missing, present)}, false, 3},
		{"Named file present", "", []LoaderOption{WithConfigFile(present)}, false, 3},
		{"Named file missing", "", []LoaderOption{WithConfigFile(missing)}, true, 0},
		{"Named file missing despite present search path", "", []LoaderOption{WithConfigPaths(present), WithConfigFile(missing)}, true, 0},
		{"Environment path missing", missing, []LoaderOption{WithConfigPaths(present)}, true, 0},
		{"Environment path overrides named file", present, []LoaderOption{WithConfigFile(missing)}, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(configEnvVar, tt.envPath)
			cfg, err := NewLoader(tt.opts...).Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to load config file")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWorkers, cfg.Rebooking.Workers)
		})
	}
}
