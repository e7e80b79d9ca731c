package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDateRange     ErrorCode = 102
	ErrCodeInvalidCapital       ErrorCode = 103
	ErrCodeInvalidCommission    ErrorCode = 104
	ErrCodeNoSymbols            ErrorCode = 105
	ErrCodeInvalidInterval      ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 107
	ErrCodeMissingParameter     ErrorCode = 108
	ErrCodeInsufficientData     ErrorCode = 109

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeMalformedBar          ErrorCode = 204
	ErrCodeCacheReadFailed       ErrorCode = 205
	ErrCodeCacheWriteFailed      ErrorCode = 206

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 400
	ErrCodeStrategyRuntimeError ErrorCode = 401
	ErrCodeUnsupportedStrategy  ErrorCode = 402

	// Execution errors (500-599)
	ErrCodeOrderFailed      ErrorCode = 500
	ErrCodeInvalidOrder     ErrorCode = 501
	ErrCodePositionSize     ErrorCode = 502
	ErrCodeInsufficientCash ErrorCode = 503
	ErrCodeInvalidStopLoss  ErrorCode = 504
	ErrCodeInvalidSignal    ErrorCode = 505

	// Backtest errors (600-649)
	ErrCodeBacktestInitFailed     ErrorCode = 600
	ErrCodeBacktestAlreadyRunning ErrorCode = 601
	ErrCodeBacktestStopped        ErrorCode = 602
	ErrCodeBacktestNoStrategy     ErrorCode = 603
	ErrCodeBacktestNoDatasource   ErrorCode = 604
	ErrCodeBacktestArchiveFailed  ErrorCode = 605
	ErrCodeBacktestResultWrite    ErrorCode = 606

	// Analytics errors (650-699)
	ErrCodeDegenerateSeries ErrorCode = 650

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)

// Category groups error codes by how the engine reacts to them.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryData          Category = "data"
	CategoryExecution     Category = "execution"
	CategoryAnalytics     Category = "analytics"
	CategoryUnknown       Category = "unknown"
)

// Category returns the category the code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryConfiguration
	case c >= 200 && c < 300, c >= 700 && c < 800:
		return CategoryData
	case c >= 400 && c < 650, c >= 800 && c < 900:
		return CategoryExecution
	case c >= 650 && c < 700:
		return CategoryAnalytics
	default:
		return CategoryUnknown
	}
}
