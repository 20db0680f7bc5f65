// Package errors provides coded errors for uvbrew.
//
// Every fatal condition of the formula pipeline carries a [Code], so the CLI
// and tests can tell a missing manifest from a failed build without matching
// on message text:
//
//	FILE_NOT_FOUND     pyproject.toml or uv.lock is absent
//	INVALID_MANIFEST   pyproject.toml lacks name, version or requires-python
//	INVALID_PACKAGE    a project name unsafe for URLs and dist paths
//	INVALID_INPUT      bad option values (index URL, indent, timeouts)
//	INVALID_FORMAT     unknown output format
//	RESOLUTION_FAILED  uv export failed or its output is unusable
//	BUILD_FAILED       uv build failed or left no sdist in dist/
//	NETWORK_ERROR      the index could not be reached or an archive not downloaded
//	INTERNAL_ERROR     anything else, e.g. an unresolvable dist path
//
// Usage:
//
//	err := errors.Wrap(errors.ErrCodeBuild, exitErr, "uv build failed (exit code %d)", code)
//	if errors.Is(err, errors.ErrCodeBuild) {
//	    // ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeResolution      Code = "RESOLUTION_FAILED"
	ErrCodeBuild           Code = "BUILD_FAILED"
	ErrCodeNetwork         Code = "NETWORK_ERROR"
	ErrCodeInternal        Code = "INTERNAL_ERROR"
)

// Error is a pipeline failure tagged with a [Code].
type Error struct {
	Code    Code
	Message string
	Cause   error // nil unless created with [Wrap]
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error with a printf-style message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is [New] with an underlying cause, kept for errors.Is and errors.As.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether any *Error in err's chain carries code. A manifest
// error wrapping a package-name error therefore matches both
// ErrCodeInvalidManifest and ErrCodeInvalidPackage.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage strips the code prefix for display. Errors that are not
// *Error are returned verbatim.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}
