package storage

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JonMunkholm/importio/internal/core"

	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite"; sqlx needs to know its bind style.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	Register("sqlite", openSQLite)
}

type sqliteBackend struct {
	db     *sqlx.DB
	opts   Options
	gormDB *gorm.DB
}

// sqliteDSN adds a busy timeout and foreign key enforcement unless the DSN
// already sets pragmas.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
}

func openSQLite(ctx context.Context, opts Options) (Backend, error) {
	db, err := sqlx.Open("sqlite", sqliteDSN(opts.DSN))
	if err != nil {
		return nil, err
	}

	// One connection keeps the pragmas and a transaction on the same handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(opts.MaxConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteBackend{db: db, opts: opts}, nil
}

func (b *sqliteBackend) Driver() string { return "sqlite" }

func (b *sqliteBackend) Table(name string) core.Target {
	return newSQLTable(b.db, sqliteDialect, name)
}

func (b *sqliteBackend) Entity(model Model) (core.Target, error) {
	if b.gormDB == nil {
		gdb, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", Conn: b.db.DB}, gormConfig(b.opts.logger()))
		if err != nil {
			return nil, err
		}
		b.gormDB = gdb
	}
	return newEntityTarget(b.gormDB, model), nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
