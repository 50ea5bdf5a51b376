package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonMunkholm/importio/internal/core"
)

// entityTarget writes through a declared Model: only the primary key and
// fillable attributes may be imported, timestamps are maintained, and an
// update is applied to each matching record by primary key.
type entityTarget struct {
	db    *gorm.DB
	tx    *gorm.DB
	model Model
	now   func() time.Time
}

func newEntityTarget(db *gorm.DB, model Model) *entityTarget {
	return &entityTarget{db: db, model: model, now: time.Now}
}

// scope returns a session on the model's table bound to ctx.
func (e *entityTarget) scope(ctx context.Context) *gorm.DB {
	db := e.db
	if e.tx != nil {
		db = e.tx
	}
	return db.WithContext(ctx).Table(e.model.table())
}

func (e *entityTarget) Name() string { return e.model.Name }

func (e *entityTarget) TargetExists(ctx context.Context) (bool, error) {
	return e.db.WithContext(ctx).Migrator().HasTable(e.model.table()), nil
}

func (e *entityTarget) HasField(_ context.Context, field string) (bool, error) {
	return e.model.Assignable(field), nil
}

func (e *entityTarget) FindByKey(ctx context.Context, key core.Row) ([]core.Row, error) {
	var records []map[string]any
	if err := e.scope(ctx).Where(toMap(key)).Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]core.Row, len(records))
	for i, rec := range records {
		out[i] = fromMap(rec)
	}
	return out, nil
}

func (e *entityTarget) Insert(ctx context.Context, row core.Row) error {
	return e.create(e.scope(ctx), row)
}

func (e *entityTarget) create(db *gorm.DB, row core.Row) error {
	values := toMap(row)
	if e.model.Timestamps {
		now := e.now()
		values["created_at"] = now
		values["updated_at"] = now
	}
	return db.Create(values).Error
}

// Update loads the primary keys of every record matching key and updates
// each one. It returns the number of records updated.
func (e *entityTarget) Update(ctx context.Context, key, row core.Row) (int64, error) {
	pk := e.model.primaryKey()

	var matches []map[string]any
	if err := e.scope(ctx).Select(pk).Where(toMap(key)).Find(&matches).Error; err != nil {
		return 0, err
	}

	values := toMap(row)
	if e.model.Timestamps {
		values["updated_at"] = e.now()
	}

	var n int64
	for _, match := range matches {
		id := match[pk]
		err := e.scope(ctx).
			Where(clause.Eq{Column: clause.Column{Name: pk}, Value: id}).
			Updates(values).Error
		if err != nil {
			return n, fmt.Errorf("update %s %v: %w", pk, id, err)
		}
		n++
	}
	return n, nil
}

// FirstOrCreate creates the record from key and row unless one matches key.
func (e *entityTarget) FirstOrCreate(ctx context.Context, key, row core.Row) (bool, error) {
	created := false
	db := e.db
	if e.tx != nil {
		db = e.tx
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table(e.model.table()).Where(toMap(key)).Limit(1).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		merged := key.Clone()
		for k, v := range row {
			merged[k] = v
		}
		if err := e.create(tx.Table(e.model.table()), merged); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (e *entityTarget) Begin(ctx context.Context) error {
	if e.tx != nil {
		return errors.New("transaction already open")
	}
	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	e.tx = tx
	return nil
}

func (e *entityTarget) Commit(context.Context) error {
	if e.tx == nil {
		return nil
	}
	err := e.tx.Commit().Error
	e.tx = nil
	return err
}

func (e *entityTarget) Rollback(context.Context) error {
	if e.tx == nil {
		return nil
	}
	err := e.tx.Rollback().Error
	e.tx = nil
	return err
}

func toMap(r core.Row) map[string]any {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v
	}
	return m
}

// fromMap renders scanned column values as strings.
func fromMap(m map[string]any) core.Row {
	r := make(core.Row, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			r[k] = ""
		case []byte:
			r[k] = string(val)
		case time.Time:
			r[k] = val.Format(time.RFC3339Nano)
		default:
			r[k] = fmt.Sprint(val)
		}
	}
	return r
}
