package client

import (
	"context"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// Conn is the single physical connection owned by a Client.
// Implementations are not safe for concurrent use; the Client serializes
// access.
type Conn interface {
	// Query runs a statement and buffers its result set. Statements that
	// return no rows yield an empty Rows with RowsAffected set.
	Query(ctx context.Context, query string, args ...interface{}) (*Rows, error)

	// Exec runs one statement, or several separated by semicolons when no
	// args are given, and reports affected rows.
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)

	// EmulatePrepares reports whether parameters are interpolated client-side.
	EmulatePrepares() bool

	// SetEmulatePrepares toggles client-side interpolation.
	SetEmulatePrepares(on bool)

	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error

	// Close closes the connection.
	Close(ctx context.Context) error
}

// Rows is a fully buffered result set.
type Rows struct {
	Columns      []string
	Values       [][]interface{}
	RowsAffected int64
}

// DefaultDialer opens a pgx connection for Postgres and a pinned sqlx
// connection for MySQL.
func DefaultDialer(ctx context.Context, d dialect.Dialect, dsn *dialect.DSN, opts ClientOptions) (Conn, error) {
	switch d.Kind() {
	case dialect.Postgres:
		return dialPostgres(ctx, d, dsn, opts)
	case dialect.MySQL:
		return dialMySQL(ctx, d, dsn, opts)
	default:
		return nil, newConnectionError(CodeUnsupportedDriver, "no dialer for driver", nil,
			map[string]interface{}{"driver": d.Kind().String()})
	}
}
