package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConnection is the name of the connection built from DATABASE_URL.
const DefaultConnection = "default"

// ErrUnknownConnection is returned for a connection name the catalog doesn't declare.
var ErrUnknownConnection = errors.New("unknown connection")

// Connection is a named database the importer can write to.
type Connection struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Model declares an entity target: a table with a primary key and the
// attributes an import may assign.
type Model struct {
	Table      string   `mapstructure:"table"`
	PrimaryKey string   `mapstructure:"primary_key"`
	Fillable   []string `mapstructure:"fillable"`
	Timestamps bool     `mapstructure:"timestamps"`
}

// Catalog holds the named connections and entity models.
type Catalog struct {
	Default     string                `mapstructure:"default"`
	Connections map[string]Connection `mapstructure:"connections"`
	Models      map[string]Model      `mapstructure:"models"`
}

// LoadCatalog reads the catalog file named by cfg.App.CatalogFile (YAML,
// JSON or TOML). Keys can be overridden with IMPORTIO_ prefixed
// environment variables, e.g. IMPORTIO_DEFAULT. Without a file the catalog
// holds one connection, "default", built from DATABASE_URL and DB_DRIVER.
func LoadCatalog(cfg *Config) (*Catalog, error) {
	v := viper.New()
	v.SetEnvPrefix("IMPORTIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("default", DefaultConnection)

	if cfg.App.CatalogFile != "" {
		v.SetConfigFile(cfg.App.CatalogFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", cfg.App.CatalogFile, err)
		}
	}

	var cat Catalog
	if err := v.Unmarshal(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	cat.Default = v.GetString("default")

	if cat.Connections == nil {
		cat.Connections = make(map[string]Connection)
	}
	for name, conn := range cat.Connections {
		conn.DSN = os.ExpandEnv(conn.DSN)
		if conn.Driver == "" {
			conn.Driver = cfg.Database.Driver
		}
		conn.Driver = strings.ToLower(conn.Driver)
		cat.Connections[name] = conn
	}
	if _, ok := cat.Connections[DefaultConnection]; !ok && cfg.Database.URL != "" {
		cat.Connections[DefaultConnection] = Connection{
			Driver: strings.ToLower(cfg.Database.Driver),
			DSN:    cfg.Database.URL,
		}
	}

	if err := cat.validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) validate() error {
	var errs []string

	for _, name := range sortedKeys(c.Connections) {
		conn := c.Connections[name]
		if !validDrivers[conn.Driver] {
			errs = append(errs, fmt.Sprintf("connection %q: driver %q must be one of: postgres, sqlite, sqlserver", name, conn.Driver))
		}
		if conn.DSN == "" {
			errs = append(errs, fmt.Sprintf("connection %q: dsn is required", name))
		}
	}
	for _, name := range sortedKeys(c.Models) {
		if len(c.Models[name].Fillable) == 0 {
			errs = append(errs, fmt.Sprintf("model %q: fillable must list at least one attribute", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Connection resolves name, or the default connection when name is empty.
func (c *Catalog) Connection(name string) (string, Connection, error) {
	if name == "" {
		name = c.Default
	}
	conn, ok := c.Connections[name]
	if !ok {
		return name, Connection{}, fmt.Errorf("%w '%s'", ErrUnknownConnection, name)
	}
	return name, conn, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
