package core

// error_messages.go maps failures to user-facing messages with codes for
// support reference. Users can quote the code when reporting a problem.
//
// # Configuration Errors (CFG001-CFG099)
//
// Raised before any row is read; the run never starts:
//
//	CFG001 - No fields: import fields haven't been specified
//	         Action: Pass field definitions with -f or a field file with -F
//	CFG002 - Bad field definition: a name:position pair is malformed
//	         Action: Use name or name:position with a 0-based, non-negative position
//	CFG003 - Bad key field: a key name is not one of the import fields
//	         Action: Give the key an explicit position (name:position) or add it to the fields
//	CFG004 - Invalid mode
//	         Action: Use one of insert, insert-new, update, upsert
//	CFG005 - Invalid delimiter, ignore or take value, or unknown encoding
//	         Action: Check the option values
//	CFG006 - Invalid rules: the rule file can't be parsed or names an unknown rule
//	         Action: Map each field to a rule expression such as required|integer
//	CFG007 - Target not found: the table or model doesn't exist
//	         Action: Check the target name and the selected connection
//	CFG008 - Unknown field: a field is not a column (or fillable attribute) of the target
//	         Action: Check the field names against the target schema
//	CFG009 - Missing import file
//	         Action: Pass the path of the file to import
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not readable
//	          Action: Check the path and permissions
//	FILE002 - Empty file
//	          Action: Provide a file with at least one record
//
// # Row Errors (ROW001-ROW099, VAL001-VAL099)
//
// Raised while processing a row; the run is aborted at that row:
//
//	ROW001 - Position out of range: a field position is past the end of the record
//	         Action: Make sure you use the proper delimiter and field positions
//	VAL001 - Row validation failed
//	         Action: Fix the listed values, or rerun with --skip-invalid
//
// # Database Errors (DB001-DB099)
//
// Storage failures, matched by pattern:
//
//	DB001 - Duplicate key        Patterns: "duplicate key", "unique constraint", "violates unique"
//	DB003 - Foreign key          Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused   Patterns: "connection refused", "can't establish a db connection"
//	DB005 - Connection reset     Patterns: "connection reset"
//	DB006 - Timeout              Patterns: "timeout", "context deadline exceeded"
//	DB007 - Deadlock or lock     Patterns: "deadlock", "database is locked"
//	DB008 - Not null             Patterns: "not null", "null value in column"
//
// # Default Error (ERR000)
//
// Fallback when nothing specific matches. Check the logs (they carry the
// run_id) for the technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorKind maps a sentinel error to its user message. Checked with
// errors.Is before any pattern matching.
type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{ErrEmptyFieldSpec, UserMessage{"Import fields haven't been specified", "Pass field definitions with -f or a field file with -F", "CFG001"}},
	{ErrInvalidFieldDefinition, UserMessage{"Invalid field definition", "Use name or name:position with a 0-based, non-negative position", "CFG002"}},
	{ErrInvalidKeyField, UserMessage{"Invalid key field definition", "Give the key an explicit position (name:position) or add it to the fields", "CFG003"}},
	{ErrInvalidMode, UserMessage{"Invalid import mode", "Use one of insert, insert-new, update, upsert", "CFG004"}},
	{ErrInvalidDelimiter, UserMessage{"Invalid delimiter", "Use a single character; escapes such as \\t are allowed", "CFG005"}},
	{ErrInvalidIgnore, UserMessage{"Invalid ignore value", "Use an integer greater or equal to 0", "CFG005"}},
	{ErrInvalidTake, UserMessage{"Invalid take value", "Use an integer greater or equal to 1", "CFG005"}},
	{ErrInvalidEncoding, UserMessage{"Unknown file encoding", "Use a label such as utf-8, windows-1252 or utf-16le", "CFG005"}},
	{ErrInvalidRules, UserMessage{"Invalid validation rules", "Map each field to a rule expression such as required|integer", "CFG006"}},
	{ErrTargetNotFound, UserMessage{"Import target doesn't exist", "Check the target name and the selected connection", "CFG007"}},
	{ErrUnknownField, UserMessage{"Field doesn't exist in the target", "Check the field names against the target schema", "CFG008"}},
	{ErrMissingFile, UserMessage{"Import file hasn't been specified", "Pass the path of the file to import", "CFG009"}},
	{ErrFileNotReadable, UserMessage{"File is not readable", "Check the path and permissions", "FILE001"}},
	{ErrEmptyFile, UserMessage{"File is empty", "Provide a file with at least one record", "FILE002"}},
	{ErrPositionOutOfRange, UserMessage{"Field position is out of range", "Make sure you use the proper delimiter and field positions", "ROW001"}},
	{ErrRowValidationFailed, UserMessage{"Row validation failed", "Fix the listed values, or rerun with --skip-invalid", "VAL001"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical storage errors (case-insensitive) to user
// messages. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{"A record with this key already exists", "Use upsert or insert-new mode, or remove duplicates from the file", "DB001"}},
	{"unique constraint", UserMessage{"A record with this key already exists", "Use upsert or insert-new mode, or remove duplicates from the file", "DB001"}},
	{"violates unique", UserMessage{"A record with this key already exists", "Use upsert or insert-new mode, or remove duplicates from the file", "DB001"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Import parent records first", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Check the connection settings and try again", "DB004"}},
	{"can't establish a db connection", UserMessage{"Unable to connect to database", "Check the connection settings and try again", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"context deadline exceeded", UserMessage{"Operation timed out", "Try again later or import a smaller file", "DB006"}},
	{"timeout", UserMessage{"Operation timed out", "Try again later or import a smaller file", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"database is locked", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"not null", UserMessage{"A required column has no value", "Add the column to the fields or give it a default", "DB008"}},
	{"null value in column", UserMessage{"A required column has no value", "Add the column to the fields or give it a default", "DB008"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Known sentinel
// errors are matched first, then storage error patterns. If nothing
// matches, a generic fallback message with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message: detail (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s (Code: %s). %s", msg.Message, err.Error(), msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
