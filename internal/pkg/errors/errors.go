// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes.
const (
	// Input errors.
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidStrategy = "INVALID_STRATEGY"
	CodeParse           = "PARSE_ERROR"
	CodeNotFound        = "NOT_FOUND"

	// Integrity errors. These abort a run.
	CodeScheduleExhausted = "SCHEDULE_EXHAUSTED"
	CodeRankIntegrity     = "RANK_INTEGRITY"

	// Environment errors.
	CodeIO          = "IO_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for this error.
func (e *AppError) ExitCode() int {
	switch e.Code {
	case CodeValidation, CodeInvalidStrategy:
		return 2
	case CodeScheduleExhausted, CodeRankIntegrity:
		return 3
	case CodeParse:
		return 4
	default:
		return 1
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InvalidStrategyError creates an error for an unknown drift method name.
func InvalidStrategyError(name string) *AppError {
	return New(CodeInvalidStrategy, fmt.Sprintf("unknown drift method %q", name)).
		WithDetail("method", name)
}

// ScheduleExhaustedError reports that a domain collection cannot cover a schedule.
func ScheduleExhaustedError(domain string, need, have int) *AppError {
	return New(CodeScheduleExhausted, fmt.Sprintf("domain %s has %d items, schedule needs %d", domain, have, need)).
		WithDetails(map[string]string{
			"domain": domain,
			"need":   fmt.Sprintf("%d", need),
			"have":   fmt.Sprintf("%d", have),
		})
}

// RankIntegrityError reports a ranking line whose declared rank does not match its position.
func RankIntegrityError(qid uint64, line, declared, expected int) *AppError {
	return New(CodeRankIntegrity, fmt.Sprintf("query %d declares rank %d at line %d, expected %d", qid, declared, line, expected)).
		WithDetails(map[string]string{
			"qid":      fmt.Sprintf("%d", qid),
			"line":     fmt.Sprintf("%d", line),
			"declared": fmt.Sprintf("%d", declared),
			"expected": fmt.Sprintf("%d", expected),
		})
}

// ParseError creates a parse error for a source location.
func ParseError(source string, line int, err error) *AppError {
	return Wrap(CodeParse, fmt.Sprintf("%s:%d", source, line), err)
}

// IOError wraps a filesystem or stream failure.
func IOError(message string, err error) *AppError {
	return Wrap(CodeIO, message, err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// IsCode reports whether err, or any error it wraps, is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidation)
}

// ExitCode returns the exit status for any error; 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}
