package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeContent ErrorType = "content"
	ErrorTypeIO      ErrorType = "io"
	ErrorTypeBuild   ErrorType = "build"
	ErrorTypeConfig  ErrorType = "config"
)

// Error codes used across the build.
const (
	CodeMissingComponentDirectory = "MISSING_COMPONENT_DIRECTORY"
	CodeMissingComponentBody      = "MISSING_COMPONENT_BODY"
	CodeMissingSnippet            = "MISSING_SNIPPET"
	CodeUnreadableSourceFile      = "UNREADABLE_SOURCE_FILE"
	CodeInvalidPriorityListEntry  = "INVALID_PRIORITY_LIST_ENTRY"
	CodeExternalCompilerFailure   = "EXTERNAL_COMPILER_FAILURE"
	CodeIOFailure                 = "IO_FAILURE"
	CodeExpansionDepthExceeded    = "EXPANSION_DEPTH_EXCEEDED"
)

// Sentinels for errors.Is checks. Only Type and Code take part in the comparison.
var (
	ErrMissingComponentDirectory = &PagesmithError{Type: ErrorTypeContent, Code: CodeMissingComponentDirectory}
	ErrMissingComponentBody      = &PagesmithError{Type: ErrorTypeContent, Code: CodeMissingComponentBody}
	ErrMissingSnippet            = &PagesmithError{Type: ErrorTypeContent, Code: CodeMissingSnippet}
	ErrUnreadableSourceFile      = &PagesmithError{Type: ErrorTypeIO, Code: CodeUnreadableSourceFile}
	ErrInvalidPriorityListEntry  = &PagesmithError{Type: ErrorTypeConfig, Code: CodeInvalidPriorityListEntry}
	ErrExternalCompilerFailure   = &PagesmithError{Type: ErrorTypeBuild, Code: CodeExternalCompilerFailure}
	ErrIOFailure                 = &PagesmithError{Type: ErrorTypeIO, Code: CodeIOFailure}
	ErrExpansionDepthExceeded    = &PagesmithError{Type: ErrorTypeContent, Code: CodeExpansionDepthExceeded}
)

// PagesmithError is a structured error type with context.
type PagesmithError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *PagesmithError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PagesmithError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *PagesmithError) Is(target error) bool {
	var t *PagesmithError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PagesmithError) WithContext(key string, value interface{}) *PagesmithError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile adds file location information.
func (e *PagesmithError) WithFile(filePath string) *PagesmithError {
	e.FilePath = filePath

	return e
}

// WithComponent adds component context.
func (e *PagesmithError) WithComponent(component string) *PagesmithError {
	e.Component = component

	return e
}

// NewContentError creates a recoverable content-resolution error.
func NewContentError(code, message string) *PagesmithError {
	return &PagesmithError{
		Type:        ErrorTypeContent,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *PagesmithError {
	return &PagesmithError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *PagesmithError {
	return &PagesmithError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *PagesmithError {
	return &PagesmithError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var pe *PagesmithError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}

	return false
}

// IsContentError checks if an error came from content resolution.
func IsContentError(err error) bool {
	var pe *PagesmithError
	if errors.As(err, &pe) {
		return pe.Type == ErrorTypeContent
	}

	return false
}

// Common error constructors

// ErrIO wraps a fatal filesystem failure for path.
func ErrIO(op, path string, cause error) *PagesmithError {
	return NewIOError(CodeIOFailure, op, cause).WithFile(path)
}

// ErrInvalidPriorityEntry reports a priority list line naming no component directory.
func ErrInvalidPriorityEntry(entry, listPath string) *PagesmithError {
	return NewConfigError(
		CodeInvalidPriorityListEntry,
		fmt.Sprintf("invalid component name in order file: %q", entry),
	).WithFile(listPath).WithComponent(entry)
}

// ErrCompilerFailed reports a failed external compilation of one unit.
func ErrCompilerFailed(source string, cause error) *PagesmithError {
	return NewBuildError(CodeExternalCompilerFailure, "compilation failed", cause).WithFile(source)
}

// ErrDepthExceeded reports an expansion loop that hit its iteration cap.
func ErrDepthExceeded(limit int, lastTag string) *PagesmithError {
	return NewContentError(
		CodeExpansionDepthExceeded,
		fmt.Sprintf("expansion exceeded %d iterations (last tag %q)", limit, lastTag),
	)
}

// Chain returns the messages of err and each of its causes, outermost first.
func Chain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}

	return chain
}
