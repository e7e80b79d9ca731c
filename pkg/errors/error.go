// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into ranges, and each range maps to a Category:
//   - General errors (1-99)
//   - Configuration errors (100-199): bad date range, capital, commission, symbols
//   - Data errors (200-299): missing or malformed bars, cache failures
//   - Strategy errors (400-499): strategy construction and runtime failures
//   - Execution errors (500-599): order sizing and fill failures
//   - Backtest errors (600-649): engine lifecycle failures
//   - Analytics errors (650-699): degenerate numeric input
//   - Market data errors (700-799): provider fetch and parse failures
//   - Callback errors (800-899): progress callback failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeDataNotFound, "data not found for symbol %s", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeHistoricalDataFailed, "failed to load bars", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeDataNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCategory returns the category of the first *Error in err's chain.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.Category()
	}

	return CategoryUnknown
}

// IsConfigurationError reports whether err is an invalid-configuration failure.
func IsConfigurationError(err error) bool {
	return GetCategory(err) == CategoryConfiguration
}

// IsDataError reports whether err is caused by missing or malformed historical data.
func IsDataError(err error) bool {
	return GetCategory(err) == CategoryData
}

// IsExecutionError reports whether err happened while replaying bars.
func IsExecutionError(err error) bool {
	return GetCategory(err) == CategoryExecution
}

// IsAnalyticsError reports whether err comes from degenerate metric input.
func IsAnalyticsError(err error) bool {
	return GetCategory(err) == CategoryAnalytics
}

// InsufficientDataError is returned by indicator helpers when the window is
// longer than the bars seen so far. Strategies treat it as "no signal yet".
type InsufficientDataError struct {
	Required int    // Minimum data points required
	Actual   int    // Actual data points available
	Symbol   string // Optional: symbol context
	Message  string // Human-readable message
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
// It uses errors.As to check the error chain.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
