package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/importio/internal/core"

	_ "github.com/microsoft/go-mssqldb"
)

func init() {
	Register("sqlserver", openSQLServer)
}

type sqlserverBackend struct {
	db *sqlx.DB
}

func openSQLServer(ctx context.Context, opts Options) (Backend, error) {
	db, err := sqlx.Open("sqlserver", opts.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(opts.MaxConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlserverBackend{db: db}, nil
}

func (b *sqlserverBackend) Driver() string { return "sqlserver" }

func (b *sqlserverBackend) Table(name string) core.Target {
	return newSQLTable(b.db, sqlserverDialect, name)
}

// Entity is not available: no gorm dialector for SQL Server is wired in.
func (b *sqlserverBackend) Entity(Model) (core.Target, error) {
	return nil, ErrEntityUnsupported
}

func (b *sqlserverBackend) Close() error {
	return b.db.Close()
}
