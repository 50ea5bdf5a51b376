package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/importio/internal/core"
)

// sqlTable is a table target over database/sql, used for SQLite and SQL Server.
type sqlTable struct {
	db      *sqlx.DB
	tx      *sqlx.Tx
	dialect dialect
	name    string
	columns columnSet
}

func newSQLTable(db *sqlx.DB, d dialect, name string) *sqlTable {
	return &sqlTable{db: db, dialect: d, name: name}
}

// conn returns the open transaction, or the database when there is none.
func (t *sqlTable) conn() sqlx.ExtContext {
	if t.tx != nil {
		return t.tx
	}
	return t.db
}

func (t *sqlTable) Name() string { return t.name }

func (t *sqlTable) TargetExists(ctx context.Context) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, t.conn(), &n, t.dialect.tableExistsQuery(), t.dialect.lookupArgs(t.name)...); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *sqlTable) HasField(ctx context.Context, field string) (bool, error) {
	if t.columns == nil {
		var names []string
		if err := sqlx.SelectContext(ctx, t.conn(), &names, t.dialect.columnsQuery(), t.dialect.lookupArgs(t.name)...); err != nil {
			return false, fmt.Errorf("list columns: %w", err)
		}
		t.columns = newColumnSet(names)
	}
	return t.columns[field], nil
}

func (t *sqlTable) FindByKey(ctx context.Context, key core.Row) ([]core.Row, error) {
	q, args := t.dialect.selectOne(t.name, key)

	var one int
	err := sqlx.GetContext(ctx, t.conn(), &one, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []core.Row{key.Clone()}, nil
}

func (t *sqlTable) Insert(ctx context.Context, row core.Row) error {
	q, args := t.dialect.insert(t.name, row)
	_, err := t.conn().ExecContext(ctx, q, args...)
	return err
}

func (t *sqlTable) Update(ctx context.Context, key, row core.Row) (int64, error) {
	q, args := t.dialect.update(t.name, key, row)
	res, err := t.conn().ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTable) Begin(ctx context.Context) error {
	if t.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	t.tx = tx
	return nil
}

func (t *sqlTable) Commit(context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Commit()
	t.tx = nil
	return err
}

func (t *sqlTable) Rollback(context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return err
}
