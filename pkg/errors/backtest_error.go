package errors

import "fmt"

// BacktestError is returned by a failed run. It records the run state the
// engine ended in and wraps the coded cause.
type BacktestError struct {
	RunID string
	State string
	Cause error
}

// NewBacktestError wraps cause for the run identified by runID.
func NewBacktestError(runID string, state string, cause error) *BacktestError {
	return &BacktestError{
		RunID: runID,
		State: state,
		Cause: cause,
	}
}

// Error implements the error interface.
func (e *BacktestError) Error() string {
	return fmt.Sprintf("backtest %s failed (%s): %v", e.RunID, e.State, e.Cause)
}

// Unwrap returns the underlying error cause.
func (e *BacktestError) Unwrap() error {
	return e.Cause
}

// Code returns the code of the wrapped cause.
func (e *BacktestError) Code() ErrorCode {
	return GetCode(e.Cause)
}

// IsBacktestError checks if err is a *BacktestError.
func IsBacktestError(err error) bool {
	var backtestErr *BacktestError

	return As(err, &backtestErr)
}
