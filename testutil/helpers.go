package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dan-strohschein/resilientdb/client"
)

// Integration tests read their connection strings from these variables.
const (
	PostgresEnv = "RESILIENTDB_TEST_PGSQL"
	MySQLEnv    = "RESILIENTDB_TEST_MYSQL"
)

// NewMockClient creates a Postgres Client wired to a fresh MockConn.
// opts may be nil; its Dialer is replaced.
func NewMockClient(t *testing.T, opts *client.ClientOptions) (*client.Client, *MockConn) {
	t.Helper()
	return NewMockClientFor(t, "pgsql:host=localhost;dbname=test", opts)
}

// NewMockClientFor is NewMockClient for an arbitrary connection string.
func NewMockClientFor(t *testing.T, connStr string, opts *client.ClientOptions) (*client.Client, *MockConn) {
	t.Helper()

	mock := NewMockConn()
	o := client.DefaultOptions()
	if opts != nil {
		o = *opts
	}
	o.Dialer = mock.Dialer()
	if o.Logger == nil {
		o.Logger = client.NewNoopLogger()
	}

	c, err := client.New(connStr, &o)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, mock
}

// NewTestClient creates a client against a real server.
// It reads the connection string from env (PostgresEnv or MySQLEnv) and
// skips the test when it is not set. Login and password may be given as
// RESILIENTDB_TEST_LOGIN and RESILIENTDB_TEST_PASSWORD.
//
// Example:
//
//	export RESILIENTDB_TEST_PGSQL="pgsql:host=localhost;dbname=test"
//	c, cleanup := testutil.NewTestClient(t, testutil.PostgresEnv)
//	defer cleanup()
func NewTestClient(t *testing.T, env string) (*client.Client, func()) {
	t.Helper()

	connStr := os.Getenv(env)
	if connStr == "" {
		t.Skipf("%s not set, skipping integration test", env)
		return nil, func() {}
	}

	opts := client.DefaultOptions()
	opts.Login = os.Getenv("RESILIENTDB_TEST_LOGIN")
	opts.Password = os.Getenv("RESILIENTDB_TEST_PASSWORD")
	opts.DebugMode = testing.Verbose()

	c, err := client.New(connStr, &opts)
	if err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}

	ctx, cancel := WithTimeout(t)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	cleanup := func() {
		if err := c.Close(context.Background()); err != nil {
			t.Logf("warning: failed to close: %v", err)
		}
	}

	return c, cleanup
}

// WithTimeout creates a context with timeout for tests.
// Default timeout is 10 seconds.
func WithTimeout(t *testing.T, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	duration := 10 * time.Second
	if len(timeout) > 0 {
		duration = timeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx, cancel
}

// RequireNoError fails the test if err is not nil.
func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("Unexpected error: %v - %v", err, msgAndArgs)
		} else {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
}

// RequireError fails the test if err is nil.
func RequireError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("Expected error but got nil - %v", msgAndArgs)
		} else {
			t.Fatal("Expected error but got nil")
		}
	}
}

// AssertEqual checks if two comparable values are equal.
func AssertEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if expected != actual {
		if len(msgAndArgs) > 0 {
			t.Errorf("Not equal: expected=%v, actual=%v - %v", expected, actual, msgAndArgs)
		} else {
			t.Errorf("Not equal: expected=%v, actual=%v", expected, actual)
		}
	}
}

// AssertContains checks if a string contains a substring.
func AssertContains(t *testing.T, str, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(str, substr) {
		if len(msgAndArgs) > 0 {
			t.Errorf("String does not contain substring: str=%q, substr=%q - %v", str, substr, msgAndArgs)
		} else {
			t.Errorf("String does not contain substring: str=%q, substr=%q", str, substr)
		}
	}
}

// AssertStatements checks the Query and Exec statements the mock saw, in
// order.
func AssertStatements(t *testing.T, mock *MockConn, expected ...string) {
	t.Helper()
	actual := mock.Statements()
	if len(actual) != len(expected) {
		t.Fatalf("expected %d statements, got %d:\n  %s", len(expected), len(actual), strings.Join(actual, "\n  "))
	}
	for i := range expected {
		if normalize(actual[i]) != normalize(expected[i]) {
			t.Errorf("statement %d: expected %q, got %q", i, expected[i], actual[i])
		}
	}
}
