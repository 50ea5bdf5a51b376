package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// buildConfig writes content to a temp file and builds a configuration for
// it with the given fields, then applies extra settings.
func buildConfig(t *testing.T, content string, fields []string, extra ...func(*Builder) error) Configuration {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.SetFile(writeFile(t, "import.csv", content)))
	require.NoError(t, b.SetFields(fields))
	for _, fn := range extra {
		require.NoError(t, fn(b))
	}
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func runImport(t *testing.T, cfg Configuration, target Target, opts ...Option) (*Importer, RunStatistics, error) {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger)}, opts...)
	im := NewImporter(cfg, target, opts...)
	stats, err := im.Run(context.Background())
	return im, stats, err
}

func TestImporter_Upsert(t *testing.T) {
	content := "1,first\n2,second\n"
	cfg := buildConfig(t, content, []string{"foo", "bar"}, func(b *Builder) error {
		return b.SetKey([]string{"foo"})
	})
	target := newMemTarget("items", "foo", "bar")
	target.records = []Row{{"foo": "1", "bar": "old"}}
	observer := &recordingObserver{}

	im, stats, err := runImport(t, cfg, target, WithObserver(observer))
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, im.State())
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 2, stats.Line)
	assert.NotEmpty(t, stats.RunID)

	assert.Equal(t, []string{
		"update {foo=1} {bar=first foo=1}",
		"insert {bar=second foo=2}",
	}, target.writes())

	assert.Equal(t, int64(len(content)), observer.total)
	require.Len(t, observer.progress, 2)
	assert.Equal(t, int64(len(content)), observer.progress[1])
	assert.Equal(t, 1, observer.finished)
}

func TestImporter_IgnoreAndTake(t *testing.T) {
	cfg := buildConfig(t, "h,h\n1,a\n2,b\n3,c\n4,d\n", []string{"foo", "bar"},
		func(b *Builder) error { return b.SetMode("insert") },
		func(b *Builder) error { return b.SetIgnoreLines(1) },
		func(b *Builder) error { return b.SetTakeLines(2) },
	)
	target := newMemTarget("items", "foo", "bar")
	observer := &recordingObserver{}

	_, stats, err := runImport(t, cfg, target, WithObserver(observer))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 3, stats.Line)
	assert.Equal(t, []string{"insert {bar=a foo=1}", "insert {bar=b foo=2}"}, target.writes())
	assert.Equal(t, int64(2), observer.total)
	assert.Equal(t, []int64{1, 2}, observer.progress)
}

func TestImporter_Transaction(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		transaction  bool
		wantBegun    int
		wantImported int
	}{
		{name: "enabled", content: "1\n2\n3\n", transaction: true, wantBegun: 1, wantImported: 3},
		{name: "disabled", content: "1\n2\n3\n", transaction: false, wantBegun: 0, wantImported: 3},
		{name: "enabled without data rows", content: "\n  \n", transaction: true, wantBegun: 1, wantImported: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buildConfig(t, tt.content, []string{"foo"}, func(b *Builder) error {
				return b.SetTransaction(tt.transaction)
			})
			target := newMemTarget("items", "foo")

			_, stats, err := runImport(t, cfg, target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBegun, target.begun)
			assert.Equal(t, tt.wantBegun, target.committed)
			assert.Zero(t, target.rolledBack)
			assert.Equal(t, tt.wantImported, stats.Imported)
		})
	}
}

func TestImporter_PositionOutOfRangeAborts(t *testing.T) {
	cfg := buildConfig(t, "1,a\n2\n3,c\n", []string{"foo", "bar"},
		func(b *Builder) error { return b.SetMode("insert") },
		func(b *Builder) error { return b.SetTransaction(true) },
	)
	target := newMemTarget("items", "foo", "bar")

	im, stats, err := runImport(t, cfg, target)
	require.ErrorIs(t, err, ErrPositionOutOfRange)

	var posErr *PositionError
	require.ErrorAs(t, err, &posErr)
	assert.Equal(t, 2, posErr.Line)
	assert.Equal(t, "bar", posErr.Field)

	assert.Equal(t, StateAborted, im.State())
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 2, stats.Line)
	assert.Equal(t, []string{"insert {bar=a foo=1}"}, target.writes(), "no row after the failing one is written")
	assert.Equal(t, 1, target.rolledBack)
	assert.Zero(t, target.committed)
}

func TestImporter_Validation(t *testing.T) {
	rules, err := NewRuleSet(map[string]string{"age": "required|integer"})
	require.NoError(t, err)
	content := "ann,31\nbob,old\ncid,40\n"

	t.Run("aborts by default", func(t *testing.T) {
		cfg := buildConfig(t, content, []string{"name", "age"},
			func(b *Builder) error { return b.SetRules(rules) },
			func(b *Builder) error { return b.SetMode("insert") },
		)
		target := newMemTarget("people", "name", "age")

		_, stats, err := runImport(t, cfg, target)
		require.ErrorIs(t, err, ErrRowValidationFailed)

		var rowErr *RowValidationError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, 2, rowErr.Line)
		assert.Equal(t, []string{"age: must be an integer"}, rowErr.Messages())
		assert.Equal(t, 1, stats.Imported)
		assert.Len(t, target.writes(), 1)
	})

	t.Run("skips invalid rows", func(t *testing.T) {
		cfg := buildConfig(t, content, []string{"name", "age"},
			func(b *Builder) error { return b.SetRules(rules) },
			func(b *Builder) error { return b.SetMode("insert") },
			func(b *Builder) error { return b.SetSkipInvalid(true) },
		)
		target := newMemTarget("people", "name", "age")

		_, stats, err := runImport(t, cfg, target)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Imported)
		assert.Equal(t, 1, stats.Skipped)
		assert.Equal(t, []string{"insert {age=31 name=ann}", "insert {age=40 name=cid}"}, target.writes())
	})
}

func TestImporter_UpdateIgnoresRulesOfUnwrittenFields(t *testing.T) {
	rules, err := NewRuleSet(map[string]string{
		"id":    "required|integer",
		"email": "required|email",
	})
	require.NoError(t, err)

	cfg := buildConfig(t, "1\n", []string{"id"},
		func(b *Builder) error { return b.SetRules(rules) },
		func(b *Builder) error { return b.SetMode("update") },
	)
	target := newMemTarget("users", "id", "email")
	target.records = []Row{{"id": "1", "email": "a@example.com"}}

	_, stats, err := runImport(t, cfg, target)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
}

func TestImporter_SchemaChecks(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		cfg := buildConfig(t, "1,2\n", []string{"foo", "nope"})
		target := newMemTarget("items", "foo")

		im, _, err := runImport(t, cfg, target)
		require.ErrorIs(t, err, ErrUnknownField)
		assert.EqualError(t, err, "column 'nope' doesn't exist in 'items'")
		assert.Equal(t, StateAborted, im.State())
		assert.Empty(t, target.calls)
	})

	t.Run("unknown key field", func(t *testing.T) {
		cfg := buildConfig(t, "1,2\n", []string{"foo"}, func(b *Builder) error {
			return b.SetKey([]string{"ref:1"})
		})
		target := newMemTarget("items", "foo")

		_, _, err := runImport(t, cfg, target)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("missing target", func(t *testing.T) {
		cfg := buildConfig(t, "1\n", []string{"foo"})
		target := newMemTarget("items", "foo")
		target.missing = true

		_, _, err := runImport(t, cfg, target)
		assert.ErrorIs(t, err, ErrTargetNotFound)
		assert.True(t, IsConfigurationError(err))
	})
}

func TestImporter_DryRun(t *testing.T) {
	cfg := buildConfig(t, "1\n2\n", []string{"foo"}, func(b *Builder) error {
		return b.SetDryRun(true)
	})
	target := newMemTarget("items", "foo")
	target.records = []Row{{"foo": "1"}}

	_, stats, err := runImport(t, cfg, target)
	require.NoError(t, err)
	assert.True(t, stats.DryRun)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Inserted)
	assert.Empty(t, target.writes())
	assert.Len(t, target.records, 1)
}

func TestImporter_RunOnce(t *testing.T) {
	cfg := buildConfig(t, "1\n", []string{"foo"})
	im := NewImporter(cfg, newMemTarget("items", "foo"), WithLogger(discardLogger))

	_, err := im.Run(context.Background())
	require.NoError(t, err)

	_, err = im.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}
