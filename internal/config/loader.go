package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/importio/internal/core"
)

// Load reads the configuration from environment variables, applies
// defaults and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// envTag is the parsed env, envAlt, default and required tags of a field.
type envTag struct {
	names    []string
	fallback string
	required bool
}

func parseEnvTag(f reflect.StructField) (envTag, bool) {
	name := f.Tag.Get("env")
	if name == "" {
		return envTag{}, false
	}
	tag := envTag{
		names:    []string{name},
		fallback: f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}
	if alt := f.Tag.Get("envAlt"); alt != "" {
		tag.names = append(tag.names, alt)
	}
	return tag, true
}

// lookup returns the first variable that is set, naming it for errors.
func (t envTag) lookup() (name, value string) {
	for _, n := range t.names {
		if v := os.Getenv(n); v != "" {
			return n, v
		}
	}
	return t.names[0], ""
}

// loadStruct fills the tagged fields of v, descending into nested structs.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, fieldVal := t.Field(i), v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != timeType {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		tag, ok := parseEnvTag(field)
		if !ok {
			continue
		}

		name, value := tag.lookup()
		if value == "" {
			if tag.required {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = tag.fallback
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}

	return nil
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks every setting and reports all failures at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" && c.App.CatalogFile == "" {
		errs = append(errs, "DATABASE_URL is required when IMPORTIO_CONFIG is not set")
	}
	if !validDrivers[strings.ToLower(c.Database.Driver)] {
		errs = append(errs, fmt.Sprintf("DB_DRIVER (%q) must be one of: postgres, sqlite, sqlserver", c.Database.Driver))
	}
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be positive")
	}
	if c.Database.MaxConnLifetime < 0 {
		errs = append(errs, "DB_MAX_CONN_LIFETIME must be non-negative")
	}

	if _, err := core.ParseMode(c.Import.Mode); err != nil {
		errs = append(errs, fmt.Sprintf("IMPORT_MODE (%q) must be one of: insert, insert-new, update, upsert", c.Import.Mode))
	}
	if _, err := core.UnescapeDelimiter(c.Import.Delimiter); err != nil {
		errs = append(errs, fmt.Sprintf("IMPORT_DELIMITER (%q) must be a single character", c.Import.Delimiter))
	}
	if _, err := core.LookupEncoding(c.Import.Encoding); err != nil {
		errs = append(errs, fmt.Sprintf("IMPORT_ENCODING (%q) is not a known encoding", c.Import.Encoding))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	validOutputs := map[string]bool{"console": true, "file": true, "both": true}
	output := strings.ToLower(c.Logging.Output)
	if !validOutputs[output] {
		errs = append(errs, fmt.Sprintf("LOG_OUTPUT (%q) must be one of: console, file, both", c.Logging.Output))
	}
	if output != "console" && c.Logging.File == "" {
		errs = append(errs, "LOG_FILE is required when logging to a file")
	}
	if c.Logging.MaxSize <= 0 {
		errs = append(errs, "LOG_MAX_SIZE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

var validDrivers = map[string]bool{"postgres": true, "sqlite": true, "sqlserver": true}

// String renders the config for logging with the database URL masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("App: {Env: %q, CatalogFile: %q}, ", c.App.Env, c.App.CatalogFile))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], Driver: %q, ConnectTimeout: %s}, ",
		c.Database.Driver, c.Database.ConnectTimeout))
	b.WriteString(fmt.Sprintf("Import: {Delimiter: %q, Mode: %q, Encoding: %q}, ",
		c.Import.Delimiter, c.Import.Mode, c.Import.Encoding))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q, Output: %q}",
		c.Logging.Level, c.Logging.Format, c.Logging.Output))
	b.WriteString("}")
	return b.String()
}
