package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidThreshold     ErrorCode = 103
	ErrCodeInvalidSignalRow     ErrorCode = 104
	ErrCodeMissingField         ErrorCode = 105
	ErrCodeUnorderedStream      ErrorCode = 106
	ErrCodeInvalidVersion       ErrorCode = 107
	ErrCodeInvalidMode          ErrorCode = 108

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 203

	// Simulation errors (300-399)
	ErrCodeSimulationFailed ErrorCode = 300
	ErrCodeVariantFailed    ErrorCode = 301
	ErrCodeEmptyStream      ErrorCode = 302

	// Results errors (400-499)
	ErrCodeResultsWriteFailed ErrorCode = 400
	ErrCodeResultsReadFailed  ErrorCode = 401
	ErrCodeSchemaIncompatible ErrorCode = 402
	ErrCodeNoResultsDir       ErrorCode = 403

	// Evaluation/Feature errors (500-599)
	ErrCodeInsufficientData   ErrorCode = 500
	ErrCodeEvaluationFailed   ErrorCode = 501
	ErrCodeFeatureComputation ErrorCode = 502

	// Market data errors (600-699)
	ErrCodeMarketDataFetchFailed ErrorCode = 600
	ErrCodeMarketDataWriteFailed ErrorCode = 601
	ErrCodeMarketDataParseFailed ErrorCode = 602
	ErrCodeInvalidInterval       ErrorCode = 603
)
