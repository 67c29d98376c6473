package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration of every rebook binary
type Config struct {
	App       AppConfig       `koanf:"app"`
	Log       LogConfig       `koanf:"log"`
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Input     InputConfig     `koanf:"input"`
	Rebooking RebookingConfig `koanf:"rebooking"`
	Report    ReportConfig    `koanf:"report"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"`
}

type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	RateLimitPerSec int           `koanf:"rate_limit_per_sec"`
}

type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

type DatabaseConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	Database       string `koanf:"database"`
	User           string `koanf:"user"`
	Password       string `koanf:"password"`
	SSLMode        string `koanf:"ssl_mode"`
	MinConns       int32  `koanf:"min_conns"`
	MaxConns       int32  `koanf:"max_conns"`
	SimpleProtocol bool   `koanf:"simple_protocol"`
}

// DSN returns the libpq style connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Database, d.User, d.Password, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Host      string        `koanf:"host"`
	Port      int           `koanf:"port"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	TLS       bool          `koanf:"tls"`
	TTL       time.Duration `koanf:"ttl"`
	MutexTTL  time.Duration `koanf:"mutex_ttl"`
	LockWait  time.Duration `koanf:"lock_wait"`
	KeyPrefix string        `koanf:"key_prefix"`
}

// Address returns host:port
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Enabled    bool     `koanf:"enabled"`
	Brokers    []string `koanf:"brokers"`
	Topic      string   `koanf:"topic"`
	MaxRetries int      `koanf:"max_retries"`
}

// InputConfig points at the CSV feeds of a batch run
type InputConfig struct {
	Source           string `koanf:"source"` // csv, postgres
	AvailableFlights string `koanf:"available_flights"`
	Passengers       string `koanf:"passengers"`
	CancelledFlights string `koanf:"cancelled_flights"`
	Airports         string `koanf:"airports"`
}

type RebookingConfig struct {
	MaxLegs           int           `koanf:"max_legs"`
	MaxDepartureDrift time.Duration `koanf:"max_departure_drift"`
	MaxLayover        time.Duration `koanf:"max_layover"`
	Workers           int           `koanf:"workers"`
	NearbyRadiusKm    float64       `koanf:"nearby_radius_km"`
}

type ReportConfig struct {
	Format string `koanf:"format"` // csv, xlsx
	Output string `koanf:"output"`
}

// Validate checks the values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	var errs []string

	if c.Rebooking.MaxLegs < 1 {
		errs = append(errs, "rebooking.max_legs must be >= 1")
	}
	if c.Rebooking.MaxDepartureDrift < 0 {
		errs = append(errs, "rebooking.max_departure_drift must not be negative")
	}
	if c.Rebooking.MaxLayover < 0 {
		errs = append(errs, "rebooking.max_layover must not be negative")
	}
	if c.Rebooking.Workers < 1 {
		errs = append(errs, "rebooking.workers must be >= 1")
	}
	if c.Rebooking.NearbyRadiusKm < 0 {
		errs = append(errs, "rebooking.nearby_radius_km must not be negative")
	}
	switch c.Input.Source {
	case "csv", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("input.source %q must be csv or postgres", c.Input.Source))
	}
	switch c.Report.Format {
	case "csv", "xlsx":
	default:
		errs = append(errs, fmt.Sprintf("report.format %q must be csv or xlsx", c.Report.Format))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, "kafka.brokers is required when kafka is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
