package core

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. These are raised before any row is read.
var (
	ErrEmptyFieldSpec         = errors.New("import fields haven't been specified")
	ErrInvalidFieldDefinition = errors.New("invalid field definition")
	ErrInvalidKeyField        = errors.New("invalid key field definition")
	ErrInvalidMode            = errors.New("invalid mode")
	ErrInvalidDelimiter       = errors.New("invalid delimiter")
	ErrInvalidIgnore          = errors.New("ignore value should be a non-negative integer")
	ErrInvalidTake            = errors.New("take value should be a positive integer greater or equal to 1")
	ErrInvalidEncoding        = errors.New("unknown encoding")
	ErrFileNotReadable        = errors.New("file is not readable")
	ErrEmptyFile              = errors.New("file is empty")
	ErrInvalidRules           = errors.New("invalid rules")
	ErrTargetNotFound         = errors.New("target doesn't exist")
	ErrUnknownField           = errors.New("field doesn't exist")
	ErrMissingFile            = errors.New("import file hasn't been specified")
	ErrConfigurationFrozen    = errors.New("configuration can't be changed once built")
)

// Run errors.
var (
	ErrPositionOutOfRange  = errors.New("position out of range")
	ErrRowValidationFailed = errors.New("row validation failed")
	ErrAlreadyRun          = errors.New("importer has already run")
)

var configurationErrors = []error{
	ErrEmptyFieldSpec, ErrInvalidFieldDefinition, ErrInvalidKeyField,
	ErrInvalidMode, ErrInvalidDelimiter, ErrInvalidIgnore, ErrInvalidTake,
	ErrInvalidEncoding, ErrFileNotReadable, ErrEmptyFile, ErrInvalidRules,
	ErrTargetNotFound, ErrUnknownField, ErrMissingFile, ErrConfigurationFrozen,
}

// IsConfigurationError reports whether err was raised while configuring a
// run, as opposed to while processing rows.
func IsConfigurationError(err error) bool {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// FieldDefinitionError reports a malformed name:position token.
type FieldDefinitionError struct {
	Field    string
	Position string
}

func (e *FieldDefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: missing field name in %q", ErrInvalidFieldDefinition, ":"+e.Position)
	}
	return fmt.Sprintf("invalid position for the field '%s'", e.Field)
}

func (e *FieldDefinitionError) Unwrap() error { return ErrInvalidFieldDefinition }

// KeyFieldError reports a bare key name that is not a configured field.
type KeyFieldError struct {
	Field string
}

func (e *KeyFieldError) Error() string {
	return fmt.Sprintf("invalid definition for key field '%s'", e.Field)
}

func (e *KeyFieldError) Unwrap() error { return ErrInvalidKeyField }

// FileError reports a file that can't be used as input.
type FileError struct {
	Label string // "Import file", "Field file", "Rules file"
	Path  string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s '%s': %v", e.Label, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// SchemaError reports a field the target does not know.
type SchemaError struct {
	Target string
	Field  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column '%s' doesn't exist in '%s'", e.Field, e.Target)
}

func (e *SchemaError) Unwrap() error { return ErrUnknownField }

// PositionError reports a field position beyond the end of a record. It
// usually means the delimiter or the field definitions don't match the file.
type PositionError struct {
	Line     int
	Field    string
	Position int
	Columns  int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("line %d: position '%d' is out of scope for field '%s' (record has %d columns); make sure you use a proper delimiter",
		e.Line, e.Position, e.Field, e.Columns)
}

func (e *PositionError) Unwrap() error { return ErrPositionOutOfRange }

// RowValidationError aggregates every rule failure of one row.
type RowValidationError struct {
	Line   int
	Errors []ValidationError
}

// Messages returns the failure messages in report order.
func (e *RowValidationError) Messages() []string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return msgs
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, strings.Join(e.Messages(), "; "))
}

func (e *RowValidationError) Unwrap() error { return ErrRowValidationFailed }

// StorageError wraps a failure returned by a Target.
type StorageError struct {
	Op     string
	Target string
	Line   int
	Err    error
}

func (e *StorageError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %s: %v", e.Line, e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
