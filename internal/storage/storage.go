// Package storage implements the import targets: relational tables reached
// through pgx (PostgreSQL) or sqlx (SQLite, SQL Server), and declared entity
// models reached through gorm.
//
// Backends register themselves by driver name; Open selects one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/importio/internal/core"
)

// ErrConnect is returned when a backend can't be opened or doesn't answer a ping.
var ErrConnect = errors.New("can't establish a db connection")

// ErrEntityUnsupported is returned by backends that have no entity support.
var ErrEntityUnsupported = errors.New("entity targets are not supported by this driver")

// Options configures a backend connection.
type Options struct {
	DSN             string
	ConnectTimeout  time.Duration
	MaxConnLifetime time.Duration
	Logger          *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Backend is an open connection that hands out import targets.
type Backend interface {
	// Driver returns the registered driver name.
	Driver() string

	// Table returns a target writing to the named table. The name may be
	// schema-qualified.
	Table(name string) core.Target

	// Entity returns a target writing through the given model.
	Entity(model Model) (core.Target, error)

	Close() error
}

type factory func(ctx context.Context, opts Options) (Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]factory{}
)

// Register makes a backend available under driver. It is called from init
// functions. Registering the same driver twice panics.
func Register(driver string, f factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if driver == "" {
		panic("storage: Register called with empty driver")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := backends[driver]; exists {
		panic(fmt.Sprintf("storage: backend already registered for driver=%q", driver))
	}

	backends[driver] = f
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	out := make([]string, 0, len(backends))
	for d := range backends {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Open connects to the database with the backend registered for driver and
// verifies the connection with a ping. Connection failures wrap ErrConnect.
func Open(ctx context.Context, driver string, opts Options) (Backend, error) {
	backendsMu.RLock()
	f := backends[driver]
	backendsMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	b, err := f(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	opts.logger().Debug("connected to database", "driver", driver)
	return b, nil
}
