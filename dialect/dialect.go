// Package dialect describes the two SQL engines the execution layer talks to.
//
// A Dialect is a closed variant: Postgres or MySQL. Everything that differs
// between the engines (native DSN format, error classification, isolation and
// session statements, catalog introspection) lives behind it so the client
// never switches on driver names.
package dialect

import "fmt"

// Kind identifies a supported engine.
type Kind int

const (
	// Postgres is PostgreSQL, reached through pgx.
	Postgres Kind = iota + 1
	// MySQL is MySQL or MariaDB, reached through go-sql-driver/mysql.
	MySQL
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "unknown"
	}
}

// SessionVar names a session-scoped variable the client keeps in sync.
type SessionVar int

const (
	// UserID is the acting application user.
	UserID SessionVar = iota
	// Locale is the acting user's locale.
	Locale
	// TimeZone is the session time zone.
	TimeZone
)

// String returns the variable's short name.
func (v SessionVar) String() string {
	switch v {
	case UserID:
		return "user_id"
	case Locale:
		return "locale"
	case TimeZone:
		return "time_zone"
	default:
		return "unknown"
	}
}

// Dialect holds the engine-specific statements and behavior.
type Dialect interface {
	Kind() Kind

	// BindType is the sqlx bindvar style used when rebinding named parameters.
	BindType() int

	// NativeDSN renders the driver-level connection string.
	NativeDSN(dsn *DSN, login, password string) (string, error)

	// StrictModeStatement returns the statement (with one parameter) that
	// puts the session in strict mode, or "" when the engine has none.
	StrictModeStatement() string

	// DeferConstraintsStatement returns the statement deferring constraint
	// checks to commit, or "" when unsupported.
	DeferConstraintsStatement() string

	// SessionStatement returns the assignment for v, taking the value as its
	// single bound parameter.
	SessionStatement(v SessionVar, prefix string) string

	BeginStatement() string
	CommitStatement() string
	RollbackStatement() string

	// IsolationQuery reads the current session isolation level as one column.
	IsolationQuery() string

	// SetIsolationStatement sets the session isolation level. level must be
	// one of the validated SQL level names.
	SetIsolationStatement(level string) string

	// CatalogQuery lists table names for database, restricted to schemas
	// where the engine has them.
	CatalogQuery(database string, schemas []string) (string, []interface{})

	// SyntheticTables are catalog entries appended to introspected tables.
	SyntheticTables() []string

	// Classify maps a driver error to a retry class.
	Classify(err error) RetryClass
}

// FanOut is implemented by dialects that support the server-side parallel
// routine and fire-and-forget dispatch on a native connection.
type FanOut interface {
	Dialect

	// FanOutLookup returns a query yielding one row when the routine exists.
	FanOutLookup() string

	// FanOutCall invokes the routine with the transaction texts, the
	// concurrency cap and the native DSN as three parameters.
	FanOutCall() string
}

// For returns the dialect for k.
func For(k Kind) (Dialect, error) {
	switch k {
	case Postgres:
		return postgres{}, nil
	case MySQL:
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, k)
	}
}

var (
	_ FanOut  = postgres{}
	_ Dialect = mysqlDialect{}
)
