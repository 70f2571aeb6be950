package client

import (
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-json"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// Error codes.
const (
	CodeInvalidDSN        = "E_INVALID_DSN"
	CodeUnsupportedDriver = "E_UNSUPPORTED_DRIVER"
	CodeMissingDBName     = "E_MISSING_DBNAME"
	CodeConnectFailed     = "E_CONNECT_FAILED"
	CodeClosed            = "E_CLOSED"
	CodePingFailed        = "E_PING_FAILED"

	CodeQueryFailed        = "E_QUERY_FAILED"
	CodeParamCountMismatch = "E_PARAM_COUNT_MISMATCH"

	CodeInvalidIsolationLevel = "E_INVALID_ISOLATION_LEVEL"
	CodeBeginFailed           = "E_BEGIN_FAILED"
	CodeCommitFailed          = "E_COMMIT_FAILED"
	CodeRollbackFailed        = "E_ROLLBACK_FAILED"

	CodeBatchFailed         = "E_BATCH_FAILED"
	CodeParallelUnsupported = "E_PARALLEL_UNSUPPORTED"
	CodeParallelFailed      = "E_PARALLEL_FAILED"
	CodeAsyncUnsupported    = "E_ASYNC_UNSUPPORTED"
	CodeAsyncBatchParams    = "E_ASYNC_BATCH_PARAMS"
	CodeAsyncSendFailed     = "E_ASYNC_SEND_FAILED"
)

// Sentinels for errors.Is. Matching is by error type and code.
var (
	ErrConnectFailed         = &ConnectionError{Code: CodeConnectFailed}
	ErrClosed                = &ConnectionError{Code: CodeClosed}
	ErrParamCountMismatch    = &QueryError{Code: CodeParamCountMismatch}
	ErrQueryFailed           = &QueryError{Code: CodeQueryFailed}
	ErrInvalidIsolationLevel = &TransactionError{Code: CodeInvalidIsolationLevel}
	ErrBatchFailed           = &BatchError{Code: CodeBatchFailed}
	ErrParallelUnsupported   = &BatchError{Code: CodeParallelUnsupported}
	ErrAsyncUnsupported      = &BatchError{Code: CodeAsyncUnsupported}
	ErrAsyncBatchParams      = &BatchError{Code: CodeAsyncBatchParams}
	ErrAsyncSendFailed       = &BatchError{Code: CodeAsyncSendFailed}
)

// ConnectionError represents connection-related failures.
type ConnectionError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode setting.
// When debugMode=false: returns simple "CODE: message" format.
// When debugMode=true: returns full JSON with stack trace and timestamp.
func (e *ConnectionError) FormatError(debugMode bool) string {
	if !debugMode {
		return formatShort(e.Code, e.Message, e.Cause)
	}
	return formatDebug(debugFields{
		code:       e.Code,
		typ:        e.Type,
		message:    e.Message,
		details:    e.Details,
		cause:      e.Cause,
		stackTrace: e.StackTrace,
		timestamp:  e.Timestamp,
	})
}

// Unwrap returns the underlying cause error for errors.Is and errors.As compatibility.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ConnectionError with the same code.
func (e *ConnectionError) Is(target error) bool {
	t, ok := target.(*ConnectionError)
	return ok && t.Code == e.Code
}

// QueryError represents statement execution errors with parameter context.
type QueryError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Query      string                 `json:"query,omitempty"`
	Params     []interface{}          `json:"params,omitempty"`
	RetryClass dialect.RetryClass     `json:"retry_class"`
	Attempts   int                    `json:"attempts,omitempty"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *QueryError) FormatError(debugMode bool) string {
	if !debugMode {
		return formatShort(e.Code, e.Message, e.Cause)
	}

	details := copyDetails(e.Details)
	if e.Query != "" {
		details["query"] = e.Query
	}
	if len(e.Params) > 0 {
		details["params"] = e.Params
	}
	if e.Attempts > 0 {
		details["attempts"] = e.Attempts
		details["retry_class"] = e.RetryClass.String()
	}

	return formatDebug(debugFields{
		code:       e.Code,
		typ:        e.Type,
		message:    e.Message,
		details:    details,
		cause:      e.Cause,
		stackTrace: e.StackTrace,
		timestamp:  e.Timestamp,
	})
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a QueryError with the same code.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	return ok && t.Code == e.Code
}

// TransactionError represents transaction and isolation errors.
type TransactionError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *TransactionError) FormatError(debugMode bool) string {
	if !debugMode {
		return formatShort(e.Code, e.Message, e.Cause)
	}
	return formatDebug(debugFields{
		code:       e.Code,
		typ:        e.Type,
		message:    e.Message,
		details:    e.Details,
		cause:      e.Cause,
		stackTrace: e.StackTrace,
		timestamp:  e.Timestamp,
	})
}

// Unwrap returns the underlying cause error.
func (e *TransactionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TransactionError with the same code.
func (e *TransactionError) Is(target error) bool {
	t, ok := target.(*TransactionError)
	return ok && t.Code == e.Code
}

// BatchError represents failures of parallel, async and single-call batch execution.
type BatchError struct {
	Code       string                 `json:"code"`
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return e.FormatError(false)
}

// FormatError formats the error based on debug mode.
func (e *BatchError) FormatError(debugMode bool) string {
	if !debugMode {
		return formatShort(e.Code, e.Message, e.Cause)
	}
	return formatDebug(debugFields{
		code:       e.Code,
		typ:        e.Type,
		message:    e.Message,
		details:    e.Details,
		cause:      e.Cause,
		stackTrace: e.StackTrace,
		timestamp:  e.Timestamp,
	})
}

// Unwrap returns the underlying cause error.
func (e *BatchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a BatchError with the same code.
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*BatchError)
	return ok && t.Code == e.Code
}

// newConnectionError builds a ConnectionError with a captured stack.
func newConnectionError(code, message string, cause error, details map[string]interface{}) *ConnectionError {
	return &ConnectionError{
		Code:       code,
		Type:       "CONNECTION_ERROR",
		Message:    message,
		Details:    details,
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// newTransactionError builds a TransactionError with a captured stack.
func newTransactionError(code, message string, cause error, details map[string]interface{}) *TransactionError {
	return &TransactionError{
		Code:       code,
		Type:       "TRANSACTION_ERROR",
		Message:    message,
		Details:    details,
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// newBatchError builds a BatchError with a captured stack.
func newBatchError(code, message string, cause error, details map[string]interface{}) *BatchError {
	return &BatchError{
		Code:       code,
		Type:       "BATCH_ERROR",
		Message:    message,
		Details:    details,
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrInvalidParameterCount creates an error for batches whose parameter sets
// do not line up with their statements.
func ErrInvalidParameterCount(expected, actual int) *QueryError {
	return &QueryError{
		Code:    CodeParamCountMismatch,
		Type:    "QUERY_ERROR",
		Message: fmt.Sprintf("parameter count mismatch: expected %d parameter sets, got %d", expected, actual),
		Details: map[string]interface{}{
			"expected": expected,
			"actual":   actual,
		},
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

// ErrIsolationLevel creates an error for an unknown isolation level name.
func ErrIsolationLevel(level string) *TransactionError {
	return newTransactionError(CodeInvalidIsolationLevel,
		fmt.Sprintf("invalid isolation level %q", level), nil,
		map[string]interface{}{
			"level":   level,
			"allowed": []string{ReadCommitted, RepeatableRead, Serializable},
		})
}

// errClosed is returned by operations on a closed Client.
func errClosed(operation string) *ConnectionError {
	return newConnectionError(CodeClosed, "client is closed", nil,
		map[string]interface{}{"operation": operation})
}

// Helper functions

type debugFields struct {
	code       string
	typ        string
	message    string
	details    map[string]interface{}
	cause      error
	stackTrace []string
	timestamp  time.Time
}

func formatShort(code, message string, cause error) string {
	if cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", code, message, cause.Error())
	}
	return fmt.Sprintf("%s: %s", code, message)
}

func formatDebug(f debugFields) string {
	errorData := map[string]interface{}{
		"code":    f.code,
		"type":    f.typ,
		"message": f.message,
	}

	if len(f.details) > 0 {
		errorData["details"] = f.details
	}

	if f.cause != nil {
		errorData["cause"] = map[string]interface{}{"message": f.cause.Error()}
	}

	if len(f.stackTrace) > 0 {
		errorData["stack_trace"] = f.stackTrace
	}

	if !f.timestamp.IsZero() {
		errorData["timestamp"] = f.timestamp.Format(time.RFC3339Nano)
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

func copyDetails(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// captureStackTrace captures the current stack trace for error reporting.
func captureStackTrace() []string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(3, pcs) // Skip captureStackTrace, the error constructor, and runtime.Callers

	frames := make([]string, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := callersFrames.Next()

		// Format: function (file:line)
		frames = append(frames, fmt.Sprintf("%s (%s:%d)",
			frame.Function,
			frame.File,
			frame.Line,
		))

		if !more {
			break
		}
	}

	return frames
}

// FormatError is a helper to format any error with debug mode support.
func FormatError(err error, debugMode bool) string {
	if err == nil {
		return ""
	}

	type debugFormatter interface {
		FormatError(bool) string
	}

	if formatter, ok := err.(debugFormatter); ok {
		return formatter.FormatError(debugMode)
	}

	return err.Error()
}
