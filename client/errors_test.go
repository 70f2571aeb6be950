package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/dan-strohschein/resilientdb/dialect"
)

func TestConnectionError(t *testing.T) {
	err := newConnectionError(CodeConnectFailed, "failed to open connection", nil,
		map[string]interface{}{"database": "shop"})

	if got := err.Error(); got != "E_CONNECT_FAILED: failed to open connection" {
		t.Errorf("unexpected short form: %s", got)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(err.FormatError(true)), &parsed); jsonErr != nil {
		t.Fatalf("debug form should be valid JSON: %v", jsonErr)
	}

	if parsed["code"] != CodeConnectFailed {
		t.Errorf("expected code=%s, got %v", CodeConnectFailed, parsed["code"])
	}
	if parsed["type"] != "CONNECTION_ERROR" {
		t.Errorf("expected type=CONNECTION_ERROR, got %v", parsed["type"])
	}
	if parsed["stack_trace"] == nil {
		t.Error("expected stack trace in debug form")
	}
	details := parsed["details"].(map[string]interface{})
	if details["database"] != "shop" {
		t.Errorf("expected database detail, got %v", details["database"])
	}
}

func TestConnectionErrorWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := newConnectionError(CodeConnectFailed, "failed to open connection", cause, nil)

	if !strings.Contains(err.Error(), "caused by: connection refused") {
		t.Errorf("error should contain cause, got: %s", err.Error())
	}

	var parsed map[string]interface{}
	json.Unmarshal([]byte(err.FormatError(true)), &parsed)
	if parsed["cause"] == nil {
		t.Error("expected cause field in JSON")
	}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestErrorsIsByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"connect failed", newConnectionError(CodeConnectFailed, "x", nil, nil), ErrConnectFailed, true},
		{"closed", errClosed("query"), ErrClosed, true},
		{"closed is not connect failed", errClosed("query"), ErrConnectFailed, false},
		{"param count", ErrInvalidParameterCount(2, 1), ErrParamCountMismatch, true},
		{"isolation", ErrIsolationLevel("chaos"), ErrInvalidIsolationLevel, true},
		{"batch", newBatchError(CodeBatchFailed, "x", nil, nil), ErrBatchFailed, true},
		{"parallel", newBatchError(CodeParallelUnsupported, "x", nil, nil), ErrParallelUnsupported, true},
		{"async", newBatchError(CodeAsyncUnsupported, "x", nil, nil), ErrAsyncUnsupported, true},
		{"different type same code", newTransactionError(CodeBatchFailed, "x", nil, nil), ErrBatchFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryErrorDebugDetails(t *testing.T) {
	err := &QueryError{
		Code:       CodeQueryFailed,
		Type:       "QUERY_ERROR",
		Message:    "statement execution failed",
		Query:      "SELECT * FROM users WHERE id = $1",
		Params:     []interface{}{int64(7)},
		RetryClass: dialect.Main,
		Attempts:   3,
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(FormatError(err, true)), &parsed); jsonErr != nil {
		t.Fatalf("debug form should be valid JSON: %v", jsonErr)
	}

	details := parsed["details"].(map[string]interface{})
	if details["query"] != "SELECT * FROM users WHERE id = $1" {
		t.Errorf("expected query detail, got %v", details["query"])
	}
	if details["retry_class"] != "main" {
		t.Errorf("expected retry_class=main, got %v", details["retry_class"])
	}
	if details["attempts"] != float64(3) {
		t.Errorf("expected attempts=3, got %v", details["attempts"])
	}
}

func TestErrInvalidParameterCount(t *testing.T) {
	err := ErrInvalidParameterCount(3, 2)

	if err.Code != CodeParamCountMismatch {
		t.Errorf("expected code=%s, got %s", CodeParamCountMismatch, err.Code)
	}
	if err.Details["expected"] != 3 || err.Details["actual"] != 2 {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestFormatErrorPlain(t *testing.T) {
	if FormatError(nil, true) != "" {
		t.Error("expected empty string for nil error")
	}
	if FormatError(errors.New("plain"), true) != "plain" {
		t.Error("expected plain errors to use Error()")
	}
}
