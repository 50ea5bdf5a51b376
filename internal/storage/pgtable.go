package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/importio/internal/core"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so statements run the
// same way inside and outside a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// pgTable is a PostgreSQL table target. Values are sent as text and cast
// by the server to the column type.
type pgTable struct {
	pool    *pgxpool.Pool
	tx      pgx.Tx
	name    string
	columns columnSet
}

func newPGTable(pool *pgxpool.Pool, name string) *pgTable {
	return &pgTable{pool: pool, name: name}
}

func (t *pgTable) conn() DBTX {
	if t.tx != nil {
		return t.tx
	}
	return t.pool
}

func (t *pgTable) Name() string { return t.name }

func (t *pgTable) TargetExists(ctx context.Context) (bool, error) {
	var n int
	err := t.conn().QueryRow(ctx, postgresDialect.tableExistsQuery(), postgresDialect.lookupArgs(t.name)...).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *pgTable) HasField(ctx context.Context, field string) (bool, error) {
	if t.columns == nil {
		rows, err := t.conn().Query(ctx, postgresDialect.columnsQuery(), postgresDialect.lookupArgs(t.name)...)
		if err != nil {
			return false, fmt.Errorf("list columns: %w", err)
		}
		names, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return false, fmt.Errorf("list columns: %w", err)
		}
		t.columns = newColumnSet(names)
	}
	return t.columns[field], nil
}

func (t *pgTable) FindByKey(ctx context.Context, key core.Row) ([]core.Row, error) {
	q, args := postgresDialect.selectOne(t.name, key)

	var one int
	err := t.conn().QueryRow(ctx, q, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []core.Row{key.Clone()}, nil
}

func (t *pgTable) Insert(ctx context.Context, row core.Row) error {
	q, args := postgresDialect.insert(t.name, row)
	_, err := t.conn().Exec(ctx, q, args...)
	return err
}

func (t *pgTable) Update(ctx context.Context, key, row core.Row) (int64, error) {
	q, args := postgresDialect.update(t.name, key, row)
	tag, err := t.conn().Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTable) Begin(ctx context.Context) error {
	if t.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	t.tx = tx
	return nil
}

func (t *pgTable) Commit(ctx context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Commit(ctx)
	t.tx = nil
	return err
}

func (t *pgTable) Rollback(ctx context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback(ctx)
	t.tx = nil
	return err
}
