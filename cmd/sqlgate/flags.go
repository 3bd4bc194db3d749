package main

import (
	"time"

	"github.com/guillermoBallester/sqlgate/internal/config"
	"github.com/spf13/pflag"
)

func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file (keys match the environment variables, lower case)")
	fs.String("database-url", "", "Database URL: sqlite://<path>, sqlite://:memory:, or postgres://... (env: DATABASE_URL)")
	fs.Bool("read-only", true, "Refuse writes at the engine level (env: READ_ONLY)")
	fs.String("log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.Duration("query-timeout", 0, "Per-query timeout, 0 disables (env: QUERY_TIMEOUT)")
	fs.String("setup-file", "", "SQL script run once at startup (env: SETUP_FILE)")
	fs.String("schema-file", "", "YAML table registry (env: SCHEMA_FILE)")
	fs.String("transport", "", "MCP transport: stdio or http (env: TRANSPORT)")
	fs.String("http-addr", "", "Listen address for the http transport (env: HTTP_ADDR)")
	fs.String("http-bearer-token", "", "Bearer token required by the http transport (env: HTTP_BEARER_TOKEN)")
	fs.Int32("pool-max-conns", 0, "Maximum postgres pool connections (env: POOL_MAX_CONNS)")
	fs.Int32("pool-min-conns", 0, "Minimum postgres pool connections (env: POOL_MIN_CONNS)")
	fs.Duration("pool-max-conn-lifetime", 0, "Maximum postgres connection lifetime (env: POOL_MAX_CONN_LIFETIME)")
	fs.Bool("otel", false, "Enable OpenTelemetry tracing and metrics (env: OTEL_ENABLED)")
	fs.Bool("dry-run", false, "Load config, open the database, apply bootstrap files, then exit")
	fs.Bool("explain-only", false, "Return query plans instead of executing queries")
	fs.String("audit-log", "", "Append an NDJSON audit line per executed query to this file")
}

// parseFlags parses args with the root command's flag set.
func parseFlags(args []string) (config.Overrides, error) {
	fs := pflag.NewFlagSet("sqlgate", pflag.ContinueOnError)
	registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}
	return overridesFromFlags(fs)
}

// overridesFromFlags keeps only the flags given on the command line, so
// unset flags never mask environment variables.
func overridesFromFlags(fs *pflag.FlagSet) (config.Overrides, error) {
	var (
		o   config.Overrides
		err error
	)

	o.ConfigFile, _ = fs.GetString("config")
	o.AuditLog, _ = fs.GetString("audit-log")
	o.DryRun, _ = fs.GetBool("dry-run")
	o.ExplainOnly, _ = fs.GetBool("explain-only")

	if o.DatabaseURL, err = changedString(fs, "database-url"); err != nil {
		return o, err
	}
	if o.LogLevel, err = changedString(fs, "log-level"); err != nil {
		return o, err
	}
	if o.SetupFile, err = changedString(fs, "setup-file"); err != nil {
		return o, err
	}
	if o.SchemaFile, err = changedString(fs, "schema-file"); err != nil {
		return o, err
	}
	if o.Transport, err = changedString(fs, "transport"); err != nil {
		return o, err
	}
	if o.HTTPAddr, err = changedString(fs, "http-addr"); err != nil {
		return o, err
	}
	if o.HTTPBearerToken, err = changedString(fs, "http-bearer-token"); err != nil {
		return o, err
	}
	if o.ReadOnly, err = changedBool(fs, "read-only"); err != nil {
		return o, err
	}
	if o.OTelEnabled, err = changedBool(fs, "otel"); err != nil {
		return o, err
	}
	if o.QueryTimeout, err = changedDuration(fs, "query-timeout"); err != nil {
		return o, err
	}
	if o.PoolMaxConns, err = changedInt32(fs, "pool-max-conns"); err != nil {
		return o, err
	}
	if o.PoolMinConns, err = changedInt32(fs, "pool-min-conns"); err != nil {
		return o, err
	}
	if o.PoolMaxConnLifetime, err = changedDuration(fs, "pool-max-conn-lifetime"); err != nil {
		return o, err
	}

	return o, nil
}

func changedBool(fs *pflag.FlagSet, name string) (*bool, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetBool(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedString(fs *pflag.FlagSet, name string) (*string, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetString(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedDuration(fs *pflag.FlagSet, name string) (*time.Duration, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetDuration(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedInt32(fs *pflag.FlagSet, name string) (*int32, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetInt32(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
