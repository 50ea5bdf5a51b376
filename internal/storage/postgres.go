package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/JonMunkholm/importio/internal/core"
)

func init() {
	Register("postgres", openPostgres)
}

type postgresBackend struct {
	pool   *pgxpool.Pool
	opts   Options
	gormDB *gorm.DB
}

func openPostgres(ctx context.Context, opts Options) (Backend, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, err
	}

	// Rows are processed one at a time; a second connection serves gorm.
	poolConfig.MaxConns = 2
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresBackend{pool: pool, opts: opts}, nil
}

func (b *postgresBackend) Driver() string { return "postgres" }

func (b *postgresBackend) Table(name string) core.Target {
	return newPGTable(b.pool, name)
}

// Entity targets share the pool through database/sql.
func (b *postgresBackend) Entity(model Model) (core.Target, error) {
	if b.gormDB == nil {
		sqlDB := stdlib.OpenDBFromPool(b.pool)
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(b.opts.logger()))
		if err != nil {
			return nil, err
		}
		b.gormDB = gdb
	}
	return newEntityTarget(b.gormDB, model), nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
