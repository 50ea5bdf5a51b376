package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

// ReaderOptions controls how a delimited file is split into records.
type ReaderOptions struct {
	Delimiter rune // Defaults to ','
	Ignore    int  // Records skipped before the first one yielded
	Take      int  // Maximum records yielded, 0 for no limit
	Encoding  encoding.Encoding
}

// RowReader streams records from a delimited file. It is forward-only and
// can't be restarted.
type RowReader struct {
	file    *os.File
	counter *CountingReader
	csv     *csv.Reader

	ignore  int
	take    int
	yielded int
	line    int
}

// OpenRows opens path for streaming. Unreadable and empty files are
// rejected here, before any record is read.
func OpenRows(path string, opts ReaderOptions) (*RowReader, error) {
	if err := checkInputFile(path); err != nil {
		return nil, &FileError{Label: "Import file", Path: path, Err: err}
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	if !ValidDelimiter(delim) {
		return nil, fmt.Errorf("%w %q", ErrInvalidDelimiter, delim)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Label: "Import file", Path: path, Err: ErrFileNotReadable}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &FileError{Label: "Import file", Path: path, Err: ErrFileNotReadable}
	}

	stream, counter := WrapForStreaming(f, info.Size(), opts.Encoding)

	reader := csv.NewReader(stream)
	reader.Comma = delim
	reader.FieldsPerRecord = -1 // Allow variable field counts
	reader.LazyQuotes = true    // Be lenient with quotes
	reader.ReuseRecord = true

	return &RowReader{
		file:    f,
		counter: counter,
		csv:     reader,
		ignore:  opts.Ignore,
		take:    opts.Take,
	}, nil
}

// Next returns the next record's values. The slice is reused between calls.
// It returns io.EOF when the file or the take bound is exhausted.
func (r *RowReader) Next() ([]string, error) {
	if r.take > 0 && r.yielded >= r.take {
		return nil, io.EOF
	}

	for {
		record, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.line = parseErr.StartLine
			}
			return nil, fmt.Errorf("read record: %w", err)
		}

		r.line, _ = r.csv.FieldPos(0)

		if isBlankRecord(record) {
			continue
		}

		if r.ignore > 0 {
			r.ignore--
			continue
		}

		r.yielded++
		return record, nil
	}
}

// Line returns the 1-based file line where the last record started.
func (r *RowReader) Line() int {
	return r.line
}

// BytesRead returns the bytes consumed from the file so far.
func (r *RowReader) BytesRead() int64 {
	return r.counter.BytesRead
}

// Size returns the file size in bytes.
func (r *RowReader) Size() int64 {
	return r.counter.Total
}

// Close releases the underlying file.
func (r *RowReader) Close() error {
	return r.file.Close()
}

// ValidDelimiter reports whether d can separate fields.
func ValidDelimiter(d rune) bool {
	return d != 0 && d != '"' && d != '\r' && d != '\n' && utf8.ValidRune(d) && d != utf8.RuneError
}

// isBlankRecord reports whether every value of a record is whitespace.
func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
