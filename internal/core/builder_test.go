package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Defaults(t *testing.T) {
	path := writeFile(t, "in.csv", "1,2\n")

	b := NewBuilder()
	require.NoError(t, b.SetFile(path))
	require.NoError(t, b.SetFields([]string{"foo", "bar"}))

	cfg, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, ModeUpsert, cfg.Mode)
	assert.Equal(t, ',', cfg.Delimiter)
	assert.Equal(t, 0, cfg.Ignore)
	assert.Equal(t, 0, cfg.Take)
	assert.Equal(t, cfg.Fields, cfg.Key, "key defaults to the fields")
}

func TestBuilder_KeyBeforeFields(t *testing.T) {
	path := writeFile(t, "in.csv", "1,2,3\n")

	b := NewBuilder()
	require.NoError(t, b.SetFile(path))
	require.NoError(t, b.SetKey([]string{"foo", "id:2"}))
	require.NoError(t, b.SetFields([]string{"foo", "bar"}))

	cfg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, FieldSpec{{"foo", 0}, {"id", 2}}, cfg.Key)
}

func TestBuilder_SetterErrors(t *testing.T) {
	b := NewBuilder()

	assert.ErrorIs(t, b.SetMode("replace"), ErrInvalidMode)
	assert.ErrorIs(t, b.SetIgnoreLines(-1), ErrInvalidIgnore)
	assert.ErrorIs(t, b.SetTakeLines(0), ErrInvalidTake)
	assert.ErrorIs(t, b.SetDelimiter(";;"), ErrInvalidDelimiter)
	assert.ErrorIs(t, b.SetEncoding("klingon"), ErrInvalidEncoding)
	assert.ErrorIs(t, b.SetFields([]string{"foo:x"}), ErrInvalidFieldDefinition)
	assert.ErrorIs(t, b.SetFile(""), ErrFileNotReadable)

	require.NoError(t, b.SetFields([]string{"foo"}))
	assert.ErrorIs(t, b.SetKey([]string{"bar"}), ErrInvalidKeyField)
}

func TestBuilder_BuildErrors(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.ErrorIs(t, err, ErrMissingFile)

	b := NewBuilder()
	require.NoError(t, b.SetFile(writeFile(t, "in.csv", "1\n")))
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrEmptyFieldSpec)
}

func TestBuilder_FrozenAfterBuild(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetFile(writeFile(t, "in.csv", "1\n")))
	require.NoError(t, b.SetFields([]string{"foo"}))

	_, err := b.Build()
	require.NoError(t, err)

	assert.ErrorIs(t, b.SetMode("insert"), ErrConfigurationFrozen)
	assert.ErrorIs(t, b.SetDryRun(true), ErrConfigurationFrozen)
	assert.ErrorIs(t, b.SetFields([]string{"bar"}), ErrConfigurationFrozen)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrConfigurationFrozen)
}

func TestBuilder_UpdateNarrowsRules(t *testing.T) {
	rules, err := NewRuleSet(map[string]string{
		"foo":   "required|integer",
		"email": "required|email",
	})
	require.NoError(t, err)

	b := NewBuilder()
	require.NoError(t, b.SetFile(writeFile(t, "in.csv", "1\n")))
	require.NoError(t, b.SetFields([]string{"foo"}))
	require.NoError(t, b.SetRules(rules))
	require.NoError(t, b.SetMode("update"))

	cfg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, cfg.ValidationRules().Fields())
	assert.Len(t, cfg.Rules, 2)
}

func TestUnescapeDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: ','},
		{in: ";", want: ';'},
		{in: `\t`, want: '\t'},
		{in: `\x1f`, want: '\x1f'},
		{in: "|", want: '|'},
		{in: `\q`, wantErr: true},
		{in: "ab", wantErr: true},
		{in: `\n`, wantErr: true},
		{in: `"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := UnescapeDelimiter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDelimiter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
