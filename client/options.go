package client

import (
	"context"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// DefaultSQLMode is the MySQL sql_mode applied at connect.
const DefaultSQLMode = "STRICT_ALL_TABLES,NO_ZERO_IN_DATE,NO_ZERO_DATE,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION"

// Dialer opens the physical connection for a Client.
type Dialer func(ctx context.Context, d dialect.Dialect, dsn *dialect.DSN, opts ClientOptions) (Conn, error)

// ClientOptions configures a Client. Use DefaultOptions and override fields;
// the zero value disables array results and NULL-to-string conversion.
type ClientOptions struct {
	// Login and Password authenticate the physical connection.
	Login    string
	Password string

	// SessionOptions are extra server runtime parameters sent when the
	// connection opens (Postgres runtime params, MySQL system variables).
	SessionOptions map[string]string

	// Schemas restricts catalog introspection on Postgres.
	// Default: ["public"]
	Schemas []string

	// ArrayResults makes every row-less statement return an empty row list
	// instead of its affected-row count.
	// Default: true
	ArrayResults bool

	// NullsToString turns NULL cells into "".
	// Default: true
	NullsToString bool

	// EmulatePrepares sends parameterized statements with client-side
	// interpolation (pgx simple protocol) instead of server-side prepares.
	// Default: false
	EmulatePrepares bool

	// TransactionalMode keeps a transaction open at all times: one is begun
	// on connect and after every batch.
	// Default: false
	TransactionalMode bool

	// DeferConstraints runs SET CONSTRAINTS ALL DEFERRED on connect (Postgres).
	// Default: false
	DeferConstraints bool

	// UserID, Locale and TimeZone are pushed to the session on connect when
	// non-empty.
	UserID   string
	Locale   string
	TimeZone string

	// SessionVarPrefix namespaces the user and locale session variables.
	// Default: "app"
	SessionVarPrefix string

	// SQLMode is the MySQL sql_mode set on connect. Empty skips the statement.
	// Default: DefaultSQLMode
	SQLMode string

	// RetryEnvPrefix is the prefix of the retry tuning environment
	// variables (<PREFIX>_LITE_RETRY_COUNT and friends).
	// Default: "DB"
	RetryEnvPrefix string

	// MaxParallelConnects caps the connections used by ParallelExecute.
	// Default: 10
	MaxParallelConnects int

	// DebugMode logs every physical statement at DEBUG level. It can be
	// toggled later with EnableDebugMode and DisableDebugMode.
	// Default: false
	DebugMode bool

	// Dialer opens the physical connection. Tests inject fakes here.
	// Default: the pgx / sqlx dialer for the connection string's engine
	Dialer Dialer

	// TagResolver computes invalidation tags for mutating statements.
	// Optional.
	TagResolver TagResolver

	// Logger is the logger implementation to use.
	// If nil, a default logger is used.
	Logger Logger

	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Default: "INFO"
	LogLevel string

	// OnConnected is called when the connection is established.
	OnConnected func(StateTransition)

	// OnClosed is called when the client is closed.
	OnClosed func(StateTransition)
}

// DefaultOptions returns ClientOptions with default values.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Schemas:             []string{"public"},
		ArrayResults:        true,
		NullsToString:       true,
		SessionVarPrefix:    "app",
		SQLMode:             DefaultSQLMode,
		RetryEnvPrefix:      "DB",
		MaxParallelConnects: 10,
		LogLevel:            "INFO",
	}
}

// withDefaults fills empty fields that have no meaningful zero value.
func (o ClientOptions) withDefaults() ClientOptions {
	if o.SessionVarPrefix == "" {
		o.SessionVarPrefix = "app"
	}
	if o.RetryEnvPrefix == "" {
		o.RetryEnvPrefix = "DB"
	}
	if o.MaxParallelConnects <= 0 {
		o.MaxParallelConnects = 10
	}
	if o.Dialer == nil {
		o.Dialer = DefaultDialer
	}
	if o.LogLevel == "" {
		o.LogLevel = "INFO"
	}
	return o
}
