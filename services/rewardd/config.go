package rewardd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"azorion/storage"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures the runtime configuration for rewardd.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	GenesisPath   string          `yaml:"genesis"`
	PauseOnStart  bool            `yaml:"pause"`
	Storage       StorageConfig   `yaml:"storage"`
	Authority     AuthorityConfig `yaml:"authority"`
	Receipts      ReceiptsConfig  `yaml:"receipts"`
	Auth          AuthConfig      `yaml:"auth"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Estimator     EstimatorConfig `yaml:"estimator"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects the key-value backend holding program state.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// AuthorityConfig locates the program authority key used to sign receipts.
type AuthorityConfig struct {
	Keystore      string `yaml:"keystore"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

// ReceiptsConfig selects the SQL database receiving claim receipts.
type ReceiptsConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`
}

// AuthConfig configures bearer-token verification for the API.
type AuthConfig struct {
	Disabled       bool     `yaml:"disabled"`
	HMACSecret     string   `yaml:"hmac_secret"`
	HMACSecretFile string   `yaml:"hmac_secret_file"`
	HMACSecretEnv  string   `yaml:"hmac_secret_env"`
	Issuer         string   `yaml:"issuer"`
	Audience       string   `yaml:"audience"`
	ClockSkew      Duration `yaml:"clock_skew"`
}

// RateLimitConfig bounds claim submissions per claimant.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// SchedulerConfig controls the periodic task-slot refresh.
type SchedulerConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
	Slot     Duration `yaml:"slot"`
}

// EstimatorConfig selects how the active-claimant signal is derived.
type EstimatorConfig struct {
	Mode   string   `yaml:"mode"`
	Window Duration `yaml:"window"`
	Floor  uint64   `yaml:"floor"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	Insecure       bool     `yaml:"insecure"`
	Metrics        bool     `yaml:"metrics"`
	Traces         bool     `yaml:"traces"`
	SampleRatio    float64  `yaml:"sample_ratio"`
	MetricInterval Duration `yaml:"metric_interval"`
}

// Estimator modes.
const (
	EstimatorStatic   = "static"
	EstimatorObserved = "observed"
)

// Receipt drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// LoadConfig reads configuration from the supplied path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Auth.normalise(); err != nil {
		return cfg, fmt.Errorf("auth: %w", err)
	}
	if err := cfg.Receipts.normalise(); err != nil {
		return cfg, fmt.Errorf("receipts: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7090"
	}
	if cfg.GenesisPath == "" {
		cfg.GenesisPath = "services/rewardd/genesis.toml"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = storage.BackendLevelDB
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./rewardd-data"
	}
	if cfg.Authority.PassphraseEnv == "" {
		cfg.Authority.PassphraseEnv = "REWARDD_KEYSTORE_PASSPHRASE"
	}
	if cfg.Receipts.Driver == "" {
		cfg.Receipts.Driver = DriverSQLite
	}
	if cfg.Receipts.DSN == "" && cfg.Receipts.DSNEnv == "" && cfg.Receipts.Driver == DriverSQLite {
		cfg.Receipts.DSN = "file:rewardd-receipts.db"
	}
	if cfg.Auth.ClockSkew.Duration <= 0 {
		cfg.Auth.ClockSkew.Duration = 2 * time.Minute
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 60
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.Scheduler.Interval.Duration == 0 {
		cfg.Scheduler.Interval.Duration = 15 * time.Second
	}
	if cfg.Scheduler.Slot.Duration == 0 {
		cfg.Scheduler.Slot.Duration = 400 * time.Millisecond
	}
	if cfg.Estimator.Mode == "" {
		cfg.Estimator.Mode = EstimatorStatic
	}
	if cfg.Estimator.Window.Duration == 0 {
		cfg.Estimator.Window.Duration = 10 * time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 3
	}
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Authority.Keystore) == "" {
		return fmt.Errorf("authority keystore must be configured")
	}
	switch cfg.Storage.Backend {
	case storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	switch cfg.Receipts.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown receipts driver %q", cfg.Receipts.Driver)
	}
	if strings.TrimSpace(cfg.Receipts.DSN) == "" {
		return fmt.Errorf("receipts dsn must be configured")
	}
	if !cfg.Auth.Disabled && cfg.Auth.HMACSecret == "" {
		return fmt.Errorf("configure auth.hmac_secret or set auth.disabled")
	}
	switch cfg.Estimator.Mode {
	case EstimatorStatic, EstimatorObserved:
	default:
		return fmt.Errorf("unknown estimator mode %q", cfg.Estimator.Mode)
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.Interval.Duration < time.Second {
		return fmt.Errorf("scheduler interval must be at least 1s")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample_ratio %v outside [0, 1]", cfg.Telemetry.SampleRatio)
	}
	return nil
}

func (a *AuthConfig) normalise() error {
	if a == nil {
		return fmt.Errorf("auth configuration missing")
	}
	secret := strings.TrimSpace(a.HMACSecret)
	switch {
	case secret != "":
	case strings.TrimSpace(a.HMACSecretEnv) != "":
		secret = strings.TrimSpace(os.Getenv(strings.TrimSpace(a.HMACSecretEnv)))
		if secret == "" {
			return fmt.Errorf("hmac_secret_env %s is empty", a.HMACSecretEnv)
		}
	case strings.TrimSpace(a.HMACSecretFile) != "":
		contents, err := os.ReadFile(strings.TrimSpace(a.HMACSecretFile))
		if err != nil {
			return fmt.Errorf("read hmac_secret_file: %w", err)
		}
		secret = strings.TrimSpace(string(contents))
	}
	a.HMACSecret = secret
	return nil
}

func (r *ReceiptsConfig) normalise() error {
	if r == nil {
		return fmt.Errorf("receipts configuration missing")
	}
	r.Driver = strings.ToLower(strings.TrimSpace(r.Driver))
	r.DSN = strings.TrimSpace(r.DSN)
	if r.DSN == "" && strings.TrimSpace(r.DSNEnv) != "" {
		r.DSN = strings.TrimSpace(os.Getenv(strings.TrimSpace(r.DSNEnv)))
		if r.DSN == "" {
			return fmt.Errorf("dsn_env %s is empty", r.DSNEnv)
		}
	}
	return nil
}
