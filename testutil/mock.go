package testutil

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dan-strohschein/resilientdb/client"
	"github.com/dan-strohschein/resilientdb/dialect"
)

// MockConn is a scripted client.Conn. Inject it through
// ClientOptions.Dialer (see Dialer) to drive a Client without a server.
//
// Calls are matched against expectations in registration order; the first
// unexhausted expectation with the same method and a matching statement
// wins. Unmatched calls succeed with an empty result unless the mock is
// strict.
//
// Example usage:
//
//	mock := testutil.NewMockConn()
//	mock.ExpectQuery("SELECT id FROM users").
//	    WillReturnRows([]string{"id"}, []interface{}{int64(1)})
//
//	c, _ := client.New("pgsql:host=db;dbname=app", &client.ClientOptions{Dialer: mock.Dialer()})
//	result, err := c.Query(ctx, "SELECT id FROM users")
//	mock.VerifyExpectations(t)
type MockConn struct {
	expectations []*Expectation
	calls        []Call
	mu           sync.Mutex
	strict       bool // If true, unexpected calls fail
	emulate      bool
	closed       bool
	dials        int
	dialErr      error
}

// Expectation represents an expected call and its response.
type Expectation struct {
	method      string // "Query", "Exec", "Ping" or "Close"
	statement   string
	pattern     *regexp.Regexp
	rows        *client.Rows
	affected    int64
	err         error
	times       int // Expected number of calls (-1 = any)
	actualCalls int
}

// Call represents an actual call that was made.
type Call struct {
	Method    string
	Statement string
	Args      []interface{}
	Emulated  bool
}

// NewMockConn creates a new mock connection.
func NewMockConn() *MockConn {
	return &MockConn{}
}

// Strict makes unexpected calls fail with an error.
func (m *MockConn) Strict() *MockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strict = true
	return m
}

// Dialer returns a client.Dialer handing out this mock.
func (m *MockConn) Dialer() client.Dialer {
	return func(ctx context.Context, d dialect.Dialect, dsn *dialect.DSN, opts client.ClientOptions) (client.Conn, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.dials++
		if m.dialErr != nil {
			return nil, m.dialErr
		}
		m.closed = false
		m.emulate = opts.EmulatePrepares
		return m, nil
	}
}

// FailDial makes subsequent dials fail with err.
func (m *MockConn) FailDial(err error) *MockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialErr = err
	return m
}

// Dials returns how many times the Dialer was invoked.
func (m *MockConn) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// ExpectQuery sets up an expectation for a Query call with the exact
// statement (whitespace-insensitive).
func (m *MockConn) ExpectQuery(statement string) *Expectation {
	return m.expect("Query", statement, nil)
}

// ExpectQueryMatch expects a Query call whose statement matches pattern.
func (m *MockConn) ExpectQueryMatch(pattern string) *Expectation {
	return m.expect("Query", "", regexp.MustCompile(pattern))
}

// ExpectExec sets up an expectation for an Exec call.
func (m *MockConn) ExpectExec(statement string) *Expectation {
	return m.expect("Exec", statement, nil)
}

// ExpectExecMatch expects an Exec call whose statement matches pattern.
func (m *MockConn) ExpectExecMatch(pattern string) *Expectation {
	return m.expect("Exec", "", regexp.MustCompile(pattern))
}

// ExpectPing sets up an expectation for a Ping call.
func (m *MockConn) ExpectPing() *Expectation {
	return m.expect("Ping", "", nil)
}

// ExpectClose sets up an expectation for a Close call.
func (m *MockConn) ExpectClose() *Expectation {
	return m.expect("Close", "", nil)
}

func (m *MockConn) expect(method, statement string, pattern *regexp.Regexp) *Expectation {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp := &Expectation{
		method:    method,
		statement: normalize(statement),
		pattern:   pattern,
		times:     1,
	}
	m.expectations = append(m.expectations, exp)
	return exp
}

// WillReturnRows sets the result set returned by this expectation.
func (e *Expectation) WillReturnRows(columns []string, rows ...[]interface{}) *Expectation {
	e.rows = &client.Rows{Columns: columns, Values: rows}
	return e
}

// WillReturnResult sets the affected-row count.
func (e *Expectation) WillReturnResult(affected int64) *Expectation {
	e.affected = affected
	return e
}

// WillReturnError sets the error to return for this expectation.
func (e *Expectation) WillReturnError(err error) *Expectation {
	e.err = err
	return e
}

// Times sets the expected number of times this call should occur.
// Use -1 for "any number of times".
func (e *Expectation) Times(n int) *Expectation {
	e.times = n
	return e
}

// Once is a shorthand for Times(1).
func (e *Expectation) Once() *Expectation {
	return e.Times(1)
}

// Twice is a shorthand for Times(2).
func (e *Expectation) Twice() *Expectation {
	return e.Times(2)
}

// AnyTimes allows this expectation to match any number of times.
func (e *Expectation) AnyTimes() *Expectation {
	return e.Times(-1)
}

func (e *Expectation) matches(method, statement string) bool {
	if e.method != method {
		return false
	}
	if e.times != -1 && e.actualCalls >= e.times {
		return false
	}
	if e.pattern != nil {
		return e.pattern.MatchString(statement)
	}
	return e.statement == "" || e.statement == normalize(statement)
}

// Query implements client.Conn.
func (m *MockConn) Query(ctx context.Context, query string, args ...interface{}) (*client.Rows, error) {
	exp, err := m.match("Query", query, args)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return &client.Rows{}, nil
	}
	if exp.err != nil {
		return nil, exp.err
	}
	if exp.rows == nil {
		return &client.Rows{RowsAffected: exp.affected}, nil
	}
	rows := *exp.rows
	rows.RowsAffected = exp.affected
	return &rows, nil
}

// Exec implements client.Conn.
func (m *MockConn) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	exp, err := m.match("Exec", query, args)
	if err != nil || exp == nil {
		return 0, err
	}
	return exp.affected, exp.err
}

// Ping implements client.Conn.
func (m *MockConn) Ping(ctx context.Context) error {
	exp, err := m.match("Ping", "", nil)
	if err != nil || exp == nil {
		return err
	}
	return exp.err
}

// Close implements client.Conn.
func (m *MockConn) Close(ctx context.Context) error {
	exp, err := m.match("Close", "", nil)

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if err != nil || exp == nil {
		return err
	}
	return exp.err
}

// EmulatePrepares implements client.Conn.
func (m *MockConn) EmulatePrepares() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emulate
}

// SetEmulatePrepares implements client.Conn.
func (m *MockConn) SetEmulatePrepares(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emulate = on
}

// Closed reports whether Close was called since the last dial.
func (m *MockConn) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConn) match(method, statement string, args []interface{}) (*Expectation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{
		Method:    method,
		Statement: statement,
		Args:      args,
		Emulated:  m.emulate,
	})

	for _, exp := range m.expectations {
		if exp.matches(method, statement) {
			exp.actualCalls++
			return exp, nil
		}
	}

	if m.strict {
		return nil, fmt.Errorf("unexpected %s call: %s", method, statement)
	}
	return nil, nil
}

// VerifyExpectations checks that all expectations were met.
// Should be called at the end of each test.
func (m *MockConn) VerifyExpectations(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, exp := range m.expectations {
		if exp.times != -1 && exp.actualCalls != exp.times {
			what := exp.statement
			if exp.pattern != nil {
				what = exp.pattern.String()
			}
			t.Errorf("expectation %d (%s %s): expected %d calls, got %d",
				i, exp.method, what, exp.times, exp.actualCalls)
		}
	}
}

// GetCalls returns all recorded calls.
func (m *MockConn) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call{}, m.calls...)
}

// Statements returns the statements of recorded Query and Exec calls in
// order.
func (m *MockConn) Statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, call := range m.calls {
		if call.Method == "Query" || call.Method == "Exec" {
			out = append(out, call.Statement)
		}
	}
	return out
}

// GetCallCount returns the number of times a method was called.
func (m *MockConn) GetCallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, call := range m.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all expectations and recorded calls.
func (m *MockConn) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectations = nil
	m.calls = nil
}

// PgError returns a server error with the given SQLSTATE.
func PgError(code string) error {
	return &pgconn.PgError{Severity: "ERROR", Code: code, Message: "mock error " + code}
}

// MySQLError returns a server error with the given error number.
func MySQLError(number uint16) error {
	return &mysql.MySQLError{Number: number, Message: fmt.Sprintf("mock error %d", number)}
}

func normalize(statement string) string {
	return strings.Join(strings.Fields(statement), " ")
}

var _ client.Conn = (*MockConn)(nil)
