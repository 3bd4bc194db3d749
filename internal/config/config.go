package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultDatabaseURL is a private in-memory sqlite database.
const DefaultDatabaseURL = "sqlite://:memory:"

// Keys shared by environment variables (upper case) and the config file
// (lower case).
const (
	KeyDatabaseURL         = "database_url"
	KeyReadOnly            = "read_only"
	KeyQueryTimeout        = "query_timeout"
	KeyLogLevel            = "log_level"
	KeySetupFile           = "setup_file"
	KeySchemaFile          = "schema_file"
	KeyTransport           = "transport"
	KeyHTTPAddr            = "http_addr"
	KeyHTTPBearerToken     = "http_bearer_token"
	KeyPoolMaxConns        = "pool_max_conns"
	KeyPoolMinConns        = "pool_min_conns"
	KeyPoolMaxConnLifetime = "pool_max_conn_lifetime"
	KeyOTelEnabled         = "otel_enabled"
)

type Config struct {
	// Database connection.
	DatabaseURL  string
	ReadOnly     bool
	QueryTimeout time.Duration // zero disables the timeout

	// Bootstrap.
	SetupFile  string // optional SQL script run once at startup
	SchemaFile string // optional YAML table registry

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http

	// Connection pool, postgres only.
	PoolMaxConns        int32         // default: 5
	PoolMinConns        int32         // default: 1
	PoolMaxConnLifetime time.Duration // default: 30m

	// Observability.
	OTelEnabled bool

	// CLI-only fields (not settable via env vars or the config file).
	ConfigFile  string
	DryRun      bool
	ExplainOnly bool
	AuditLog    string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	ConfigFile      string
	DatabaseURL     *string
	ReadOnly        *bool
	LogLevel        *string
	QueryTimeout    *time.Duration
	SetupFile       *string
	SchemaFile      *string
	Transport       *string
	HTTPAddr        *string
	HTTPBearerToken *string
	OTelEnabled     *bool
	DryRun          bool
	ExplainOnly     bool
	AuditLog        string

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from defaults, then environment variables and the
// optional config file, then CLI overrides, and validates the result.
// Environment variables take precedence over the file.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	v, err := newSource(overrides.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := loadSource(cfg, v); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		DatabaseURL:         DefaultDatabaseURL,
		ReadOnly:            true,
		QueryTimeout:        10 * time.Second,
		LogLevel:            slog.LevelInfo,
		Transport:           "stdio",
		HTTPAddr:            ":8080",
		PoolMaxConns:        5,
		PoolMinConns:        1,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// newSource returns a private viper instance reading the environment and,
// when path is set, a config file.
func newSource(path string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return v, nil
}

// lookup returns the trimmed value for key and whether it is non-empty.
func lookup(v *viper.Viper, key string) (string, bool) {
	if !v.IsSet(key) {
		return "", false
	}
	s := strings.TrimSpace(v.GetString(key))
	return s, s != ""
}

func envName(key string) string {
	return strings.ToUpper(key)
}

// loadSource reads all supported keys into cfg.
func loadSource(cfg *Config, v *viper.Viper) error {
	if s, ok := lookup(v, KeyDatabaseURL); ok {
		cfg.DatabaseURL = s
	}

	if s, ok := lookup(v, KeyReadOnly); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", envName(KeyReadOnly), s, err)
		}
		cfg.ReadOnly = b
	}

	if s, ok := lookup(v, KeyQueryTimeout); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", envName(KeyQueryTimeout), s, err)
		}
		cfg.QueryTimeout = d
	}

	if s, ok := lookup(v, KeyLogLevel); ok {
		level, err := parseLogLevel(s)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if s, ok := lookup(v, KeySetupFile); ok {
		cfg.SetupFile = s
	}
	if s, ok := lookup(v, KeySchemaFile); ok {
		cfg.SchemaFile = s
	}

	if s, ok := lookup(v, KeyTransport); ok {
		cfg.Transport = s
	}
	if s, ok := lookup(v, KeyHTTPAddr); ok {
		cfg.HTTPAddr = s
	}
	if s, ok := lookup(v, KeyHTTPBearerToken); ok {
		cfg.HTTPBearerToken = s
	}

	if s, ok := lookup(v, KeyOTelEnabled); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", envName(KeyOTelEnabled), s, err)
		}
		cfg.OTelEnabled = b
	}

	return loadPoolSource(cfg, v)
}

// loadPoolSource reads connection pool settings.
func loadPoolSource(cfg *Config, v *viper.Viper) error {
	if s, ok := lookup(v, KeyPoolMaxConns); ok {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s value %q: must be a positive integer", envName(KeyPoolMaxConns), s)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if s, ok := lookup(v, KeyPoolMinConns); ok {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s value %q: must be a non-negative integer", envName(KeyPoolMinConns), s)
		}
		cfg.PoolMinConns = int32(n)
	}
	if s, ok := lookup(v, KeyPoolMaxConnLifetime); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", envName(KeyPoolMaxConnLifetime), s, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.ReadOnly != nil {
		cfg.ReadOnly = *o.ReadOnly
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.SetupFile != nil {
		cfg.SetupFile = *o.SetupFile
	}
	if o.SchemaFile != nil {
		cfg.SchemaFile = *o.SchemaFile
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	cfg.ConfigFile = o.ConfigFile
	cfg.DryRun = o.DryRun
	cfg.ExplainOnly = o.ExplainOnly
	cfg.AuditLog = o.AuditLog
	if o.OTelEnabled != nil {
		cfg.OTelEnabled = *o.OTelEnabled
	}

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty (omit it to use %s)", DefaultDatabaseURL)
	}

	if cfg.QueryTimeout < 0 {
		return fmt.Errorf("invalid QUERY_TIMEOUT value %s: must not be negative", cfg.QueryTimeout)
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}

	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
