package core

// streaming.go wraps input files for the row reader without loading them
// into memory:
//
//   - CountingReader tracks raw bytes consumed, for progress reporting
//   - the decoder converts the source charset to UTF-8, replacing invalid
//     sequences with U+FFFD
//   - a leading byte order mark switches to the matching Unicode decoding
//     and is stripped
//
// Use WrapForStreaming to apply all of them in the correct order.

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // Source size in bytes, 0 if unknown
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// LookupEncoding resolves a charset label such as "windows-1252", "latin1"
// or "utf-16le". An empty name means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w '%s'", ErrInvalidEncoding, name)
	}
	return enc, nil
}

// WrapForStreaming returns a UTF-8 reader over r and the counter that
// tracks raw bytes consumed from r.
//
// The order matters:
// 1. Counting wraps the raw source so progress matches the file size
// 2. BOM detection happens before decoding
// 3. Decoding (with replacement of invalid input) happens last
func WrapForStreaming(r io.Reader, totalSize int64, enc encoding.Encoding) (io.Reader, *CountingReader) {
	if enc == nil {
		enc = unicode.UTF8
	}
	counter := NewCountingReader(r, totalSize)
	decoder := unicode.BOMOverride(enc.NewDecoder())
	return transform.NewReader(counter, decoder), counter
}
