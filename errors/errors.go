// Package errors defines the error model shared by every layer of the
// datamodel engine.
//
// Failures are reported as Issues, a slice of Issue values each carrying a
// stable string code, the dot-separated path of the offending field, and an
// optional underlying cause. Codes split into configuration-time failures
// (schema loading/compilation), value-level failures (validation), programmer
// errors (readonly, missing field) and physical I/O failures.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeSchemaLoad indicates a schema document could not be fetched or parsed.
	CodeSchemaLoad Code = "schema_load"
	// CodeSchemaInvalid indicates a schema document failed meta-schema validation.
	CodeSchemaInvalid Code = "schema_invalid"
	// CodeValidation indicates a value violated its schema fragment. The field
	// is left unchanged; callers may retry with a corrected value.
	CodeValidation Code = "validation"
	// CodeReadOnly indicates a write or delete on a readonly field.
	CodeReadOnly Code = "read_only"
	// CodeNoSuchField indicates a delete on a field with no stored value.
	CodeNoSuchField Code = "no_such_field"
	// CodeAttributeMissing signals an absent optional field. It is consumed
	// internally to trigger default synthesis and never surfaced to callers.
	CodeAttributeMissing Code = "attribute_missing"
	// CodeMissingPrimaryRecord indicates a data field's record is structurally
	// required at index 0 but absent from the container.
	CodeMissingPrimaryRecord Code = "missing_primary_record"
	// CodeStorageIO wraps a physical failure from the container layer.
	CodeStorageIO Code = "storage_io"
)

// Issue is a single failure entry.
type Issue struct {
	Path    string // dot-separated field path, e.g. meta.observation.date
	Code    Code
	Message string
	Cause   error // optional underlying error
}

func (it Issue) Error() string {
	if it.Path == "" {
		return fmt.Sprintf("%s: %s", it.Code, it.Message)
	}
	return fmt.Sprintf("%s at %s: %s", it.Code, it.Path, it.Message)
}

func (it Issue) Unwrap() error { return it.Cause }

// Issues is a collection of failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(iss)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(iss[i].Error())
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// New builds a single-issue error.
func New(code Code, path, format string, args ...any) error {
	return Issues{{Path: path, Code: code, Message: fmt.Sprintf(format, args...)}}
}

// Wrap builds a single-issue error carrying an underlying cause.
func Wrap(code Code, path string, cause error, format string, args ...any) error {
	return Issues{{Path: path, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// AsIssues extracts Issues from an error chain.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	var it Issue
	if errors.As(err, &it) {
		return Issues{it}, true
	}
	return nil, false
}

// HasCode reports whether any issue in the error chain carries the code.
func HasCode(err error, code Code) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// IsMissing reports the internal absent-field condition.
func IsMissing(err error) bool {
	return HasCode(err, CodeAttributeMissing) || HasCode(err, CodeMissingPrimaryRecord)
}
