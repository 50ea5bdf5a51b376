package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/importio/internal/core"
)

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

var userModel = Model{
	Name:       "User",
	Table:      "users",
	Fillable:   []string{"email", "name", "team"},
	Timestamps: true,
}

func openTestEntity(t *testing.T) (*sqliteBackend, *entityTarget) {
	t.Helper()
	b := openTestSQLite(t, usersDDL)
	target, err := b.Entity(userModel)
	require.NoError(t, err)

	e := target.(*entityTarget)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	return b, e
}

func TestEntity_Schema(t *testing.T) {
	_, e := openTestEntity(t)
	ctx := context.Background()

	assert.Equal(t, "User", e.Name())

	ok, err := e.TargetExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	for field, want := range map[string]bool{"id": true, "email": true, "created_at": false, "password": false} {
		got, err := e.HasField(ctx, field)
		require.NoError(t, err)
		assert.Equal(t, want, got, field)
	}

	missing := newEntityTarget(e.db, Model{Name: "Invoice", Fillable: []string{"no"}})
	ok, err = missing.TargetExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntity_InsertAndFind(t *testing.T) {
	b, e := openTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, core.Row{"email": "ann@example.com", "name": "Ann", "team": "red"}))
	assert.Equal(t, 1, countRows(t, b, `SELECT COUNT(*) FROM users WHERE created_at IS NOT NULL AND updated_at IS NOT NULL`))

	found, err := e.FindByKey(ctx, core.Row{"email": "ann@example.com"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ann", found[0]["name"])
	assert.Equal(t, "1", found[0]["id"])
}

func TestEntity_UpdateEveryMatch(t *testing.T) {
	b, e := openTestEntity(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		team := "red"
		if email == "c@example.com" {
			team = "blue"
		}
		require.NoError(t, e.Insert(ctx, core.Row{"email": email, "team": team}))
	}

	n, err := e.Update(ctx, core.Row{"team": "red"}, core.Row{"name": "Red member"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, countRows(t, b, `SELECT COUNT(*) FROM users WHERE name = 'Red member'`))

	n, err = e.Update(ctx, core.Row{"team": "green"}, core.Row{"name": "x"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEntity_FirstOrCreate(t *testing.T) {
	b, e := openTestEntity(t)
	ctx := context.Background()

	created, err := e.FirstOrCreate(ctx, core.Row{"email": "ann@example.com"}, core.Row{"name": "Ann"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.FirstOrCreate(ctx, core.Row{"email": "ann@example.com"}, core.Row{"name": "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, countRows(t, b, `SELECT COUNT(*) FROM users WHERE name = 'Ann'`))
}

func TestEntity_TransactionRollback(t *testing.T) {
	b, e := openTestEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.Insert(ctx, core.Row{"email": "a@example.com"}))
	created, err := e.FirstOrCreate(ctx, core.Row{"email": "b@example.com"}, core.Row{})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, e.Rollback(ctx))

	assert.Zero(t, countRows(t, b, `SELECT COUNT(*) FROM users`))
}

func TestModelRegistry(t *testing.T) {
	r := NewModelRegistry()
	r.Register(userModel)
	r.Register(Model{Name: "Invoice", Fillable: []string{"number"}})

	m, ok := r.Get("user")
	require.True(t, ok)
	assert.Equal(t, "users", m.table())
	assert.Equal(t, "id", m.primaryKey())

	_, ok = r.Get("Order")
	assert.False(t, ok)

	assert.Equal(t, []string{"Invoice", "User"}, r.Names())
	assert.Panics(t, func() { r.Register(Model{Name: "USER"}) })
}

func TestParseTargetName(t *testing.T) {
	entity, name := ParseTargetName(`\App\User`)
	assert.True(t, entity)
	assert.Equal(t, `App\User`, name)

	entity, name = ParseTargetName(" users ")
	assert.False(t, entity)
	assert.Equal(t, "users", name)
}
