package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "REBOOK_"
	configEnvVar = "REBOOK_CONFIG"
)

// Loader reads configuration from defaults, a YAML file and the environment
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	configFile  string
	envPrefix   string
}

// LoaderOption customizes a Loader
type LoaderOption func(*Loader)

// WithConfigPaths sets the YAML files searched in order
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithConfigFile names a YAML file that must exist. It takes precedence
// over the search paths; REBOOK_CONFIG takes precedence over it.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.configFile = path
	}
}

// WithEnvPrefix sets the environment variable prefix
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// NewLoader creates a loader with the default search paths
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/rebook/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load merges, lowest priority first: defaults, config file, environment
func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Defaults returns the baseline configuration values
func Defaults() map[string]any {
	return map[string]any{
		"app.name":        "rebook",
		"app.environment": "development",

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"http.port":               8080,
		"http.read_timeout":       5 * time.Second,
		"http.write_timeout":      10 * time.Second,
		"http.idle_timeout":       120 * time.Second,
		"http.rate_limit_per_sec": 20,

		"metrics.enabled":   true,
		"metrics.namespace": "rebook",

		"database.host":            "localhost",
		"database.port":            5432,
		"database.database":        "rebook",
		"database.user":            "postgres",
		"database.password":        "",
		"database.ssl_mode":        "disable",
		"database.min_conns":       2,
		"database.max_conns":       10,
		"database.simple_protocol": false,

		"redis.enabled":    false,
		"redis.host":       "localhost",
		"redis.port":       6379,
		"redis.db":         0,
		"redis.tls":        false,
		"redis.ttl":        10 * time.Minute,
		"redis.mutex_ttl":  5 * time.Second,
		"redis.lock_wait":  3 * time.Second,
		"redis.key_prefix": "",

		"kafka.enabled":     false,
		"kafka.brokers":     []string{"localhost:9092"},
		"kafka.topic":       "rebooking.results",
		"kafka.max_retries": 3,

		"input.source":            "csv",
		"input.available_flights": "PRMI-DM-AVAILABLE_FLIGHTS.csv",
		"input.passengers":        "PRMI_DM_ALL_PNRs.csv",
		"input.cancelled_flights": "PRMI-DM_TARGET_FLIGHTS.csv",
		"input.airports":          "",

		"rebooking.max_legs":            2,
		"rebooking.max_departure_drift": 72 * time.Hour,
		"rebooking.max_layover":         23 * time.Hour,
		"rebooking.workers":             8,
		"rebooking.nearby_radius_km":    0.0,

		"report.format": "csv",
		"report.output": "rebooking_report.csv",
	}
}

// loadConfigFile loads an explicitly named file, which must exist, or else
// the first search path present. Missing search paths are not an error.
func (l *Loader) loadConfigFile() error {
	path := os.Getenv(configEnvVar)
	if path == "" {
		path = l.configFile
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return err
		}
		return l.k.Load(file.Provider(path), yaml.Parser())
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return nil
}

// loadEnv maps REBOOK_REBOOKING_MAX_LEGS to rebooking.max_legs. The first
// underscore separates the section, the rest belong to the key name.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		if envKey == configEnvVar {
			return "", nil
		}
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))
		key = strings.Replace(key, "_", ".", 1)

		if key == "kafka.brokers" {
			return key, splitAndTrim(value)
		}
		return key, value
	}), nil)
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
