// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// Named connections and entity models live in an optional catalog file, see
// LoadCatalog.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Import   ImportConfig
	Logging  LoggingConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	// Env is the deployment environment; "production" asks for confirmation
	// before importing (default: local)
	Env string `env:"APP_ENV" default:"local"`

	// CatalogFile is the path of the connection and model catalog
	CatalogFile string `env:"IMPORTIO_CONFIG"`
}

// DatabaseConfig holds the default connection settings.
type DatabaseConfig struct {
	// URL is the connection string of the default connection.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Driver is the driver of the default connection: postgres, sqlite,
	// sqlserver (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// ConnectTimeout bounds connecting and the initial ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// ImportConfig holds defaults for import options not given on the command line.
type ImportConfig struct {
	// Delimiter is the field delimiter; escapes such as \t are allowed (default: ,)
	Delimiter string `env:"IMPORT_DELIMITER" default:","`

	// Mode is the default import mode (default: upsert)
	Mode string `env:"IMPORT_MODE" default:"upsert"`

	// Encoding is the charset of import files (default: utf-8)
	Encoding string `env:"IMPORT_ENCODING" default:"utf-8"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: warn)
	Level string `env:"LOG_LEVEL" default:"warn"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// Output is console, file or both (default: console)
	Output string `env:"LOG_OUTPUT" default:"console"`

	// File is the log file for file output (default: logs/importio.log)
	File string `env:"LOG_FILE" default:"logs/importio.log"`

	// MaxSize is the size in megabytes before the log file rotates (default: 50)
	MaxSize int `env:"LOG_MAX_SIZE" default:"50"`

	// MaxBackups is the number of rotated files to keep (default: 5)
	MaxBackups int `env:"LOG_MAX_BACKUPS" default:"5"`

	// MaxAge is the number of days to keep rotated files (default: 30)
	MaxAge int `env:"LOG_MAX_AGE" default:"30"`
}

// IsProduction reports whether the importer runs against production.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
