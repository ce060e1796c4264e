// Package errors provides structured error types for the datadex system.
// All errors include a category, code, and message so callers can react
// to the class of failure without matching on message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategorySchema   ErrorCategory = "SCHEMA"
	ErrCategoryParse    ErrorCategory = "PARSE"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryStorage  ErrorCategory = "STORAGE"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeNoLibrary     = "NO_LIBRARY"
	CodeInvalidConfig = "INVALID_CONFIG"

	// Schema codes
	CodeLibraryNotEmpty = "LIBRARY_NOT_EMPTY"
	CodeInvalidColumn   = "INVALID_COLUMN"
	CodeDuplicateColumn = "DUPLICATE_COLUMN"

	// Parse codes
	CodeFileUnreadable = "FILE_UNREADABLE"

	// Query codes
	CodeBadClause         = "BAD_CLAUSE"
	CodeUnknownColumn     = "UNKNOWN_COLUMN"
	CodeNonNumericCompare = "NON_NUMERIC_COMPARE"
	CodeBadLiteral        = "BAD_LITERAL"

	// Storage codes
	CodeRootNotFound    = "ROOT_NOT_FOUND"
	CodeRenameCollision = "RENAME_COLLISION"
	CodeStoreFailed     = "STORE_FAILED"
	CodeArchiveFailed   = "ARCHIVE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// DexError is the structured error type used throughout the system.
type DexError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *DexError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DexError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *DexError) Is(target error) bool {
	var t *DexError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new DexError.
func New(category ErrorCategory, code, message string) *DexError {
	return &DexError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new DexError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *DexError {
	return &DexError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DexError) WithDetails(details map[string]interface{}) *DexError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a DexError.
func GetCategory(err error) ErrorCategory {
	var de *DexError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a DexError.
func GetCode(err error) string {
	var de *DexError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *DexError {
	return New(ErrCategoryConfig, code, message)
}

func NewSchemaError(code, message string) *DexError {
	return New(ErrCategorySchema, code, message)
}

func NewParseError(message string, cause error) *DexError {
	return Wrap(ErrCategoryParse, CodeFileUnreadable, message, cause)
}

func NewQueryError(code, message string) *DexError {
	return New(ErrCategoryQuery, code, message)
}

func NewStorageError(code, message string, cause error) *DexError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *DexError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
