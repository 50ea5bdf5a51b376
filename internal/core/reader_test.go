package core

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile writes content to a file in a per-test temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type readRecord struct {
	line   int
	values []string
}

func readAll(t *testing.T, r *RowReader) []readRecord {
	t.Helper()
	var out []readRecord
	for {
		values, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, readRecord{line: r.Line(), values: append([]string(nil), values...)})
	}
}

func TestRowReader_SkipTake(t *testing.T) {
	path := writeFile(t, "import.csv", "foo,bar\n1,bar 1\n2,bar2\n")

	tests := []struct {
		name      string
		opts      ReaderOptions
		wantLines []int
	}{
		{"all", ReaderOptions{}, []int{1, 2, 3}},
		{"ignore header", ReaderOptions{Ignore: 1}, []int{2, 3}},
		{"ignore and take", ReaderOptions{Ignore: 1, Take: 1}, []int{2}},
		{"take beyond end", ReaderOptions{Take: 10}, []int{1, 2, 3}},
		{"ignore everything", ReaderOptions{Ignore: 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := OpenRows(path, tt.opts)
			require.NoError(t, err)
			defer r.Close()

			var lines []int
			for _, rec := range readAll(t, r) {
				lines = append(lines, rec.line)
			}
			assert.Equal(t, tt.wantLines, lines)
		})
	}
}

func TestRowReader_BlankLinesAndQuotes(t *testing.T) {
	content := "1,\"Smith, John\",x\n\n   \n2,\"say \"\"hi\"\"\",y\n3,\"multi\nline\",z\n"
	path := writeFile(t, "quoted.csv", content)

	r, err := OpenRows(path, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r)
	require.Len(t, got, 3)

	assert.Equal(t, readRecord{1, []string{"1", "Smith, John", "x"}}, got[0])
	assert.Equal(t, readRecord{4, []string{"2", `say "hi"`, "y"}}, got[1])
	assert.Equal(t, readRecord{5, []string{"3", "multi\nline", "z"}}, got[2])
}

func TestRowReader_Delimiter(t *testing.T) {
	path := writeFile(t, "tabs.tsv", "a\tb c\t d\n")

	r, err := OpenRows(path, ReaderOptions{Delimiter: '\t'})
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b c", " d"}, got[0].values)
}

func TestRowReader_BytesRead(t *testing.T) {
	content := "1,a\n2,b\n"
	path := writeFile(t, "bytes.csv", content)

	r, err := OpenRows(path, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(len(content)), r.Size())
	readAll(t, r)
	assert.Equal(t, int64(len(content)), r.BytesRead())
}

func TestOpenRows_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	_, err := OpenRows(empty, ReaderOptions{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = OpenRows(filepath.Join(dir, "nope.csv"), ReaderOptions{})
	assert.ErrorIs(t, err, ErrFileNotReadable)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "Import file", fileErr.Label)

	_, err = OpenRows(writeFile(t, "ok.csv", "a\n"), ReaderOptions{Delimiter: '"'})
	assert.ErrorIs(t, err, ErrInvalidDelimiter)
}

func TestMapRow(t *testing.T) {
	values := []string{" 1 ", "bar 1  ", "x"}

	row, err := MapRow(3, values, FieldSpec{{"foo", 0}, {"bar", 1}})
	require.NoError(t, err)
	assert.Equal(t, Row{"foo": "1", "bar": "bar 1"}, row)

	aliased, err := MapRow(3, values, FieldSpec{{"a", 2}, {"b", 2}})
	require.NoError(t, err)
	assert.Equal(t, Row{"a": "x", "b": "x"}, aliased)
}

func TestMapRow_PositionOutOfRange(t *testing.T) {
	_, err := MapRow(7, []string{"a", "b"}, FieldSpec{{"foo", 0}, {"baz", 5}})
	require.ErrorIs(t, err, ErrPositionOutOfRange)

	var posErr *PositionError
	require.True(t, errors.As(err, &posErr))
	assert.Equal(t, "baz", posErr.Field)
	assert.Equal(t, 5, posErr.Position)
	assert.Equal(t, 7, posErr.Line)
	assert.Contains(t, err.Error(), "'baz'")
	assert.False(t, IsConfigurationError(err))
}

func TestIsBlankRecord(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		want   bool
	}{
		{"empty slice", []string{}, true},
		{"single empty value", []string{""}, true},
		{"whitespace only", []string{"   ", "\t", "  \t  "}, true},
		{"line breaks only", []string{"\n", "\r\n", "\r"}, true},
		{"one value", []string{"", "data", ""}, false},
		{"all values", []string{"a", "b", "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBlankRecord(tt.record); got != tt.want {
				t.Errorf("isBlankRecord(%q) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}
