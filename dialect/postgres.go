package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// SQLSTATE classes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
var (
	pgLiteClasses = map[string]bool{
		"08": true, // connection exception
		"0Z": true, // diagnostics exception
		"2D": true, // invalid transaction termination
		"3B": true, // savepoint exception
		"54": true, // program limit exceeded
		"57": true, // operator intervention
	}
	pgMainClasses = map[string]bool{
		"40": true, // transaction rollback: deadlock, serialization failure
		"55": true, // object not in prerequisite state: lock not available
	}
)

// pgConninfoKeys are the connection-string keys passed through to libpq-style
// conninfo, in addition to host, port and dbname.
var pgConninfoKeys = map[string]bool{
	"sslmode":              true,
	"sslrootcert":          true,
	"sslcert":              true,
	"sslkey":               true,
	"application_name":     true,
	"connect_timeout":      true,
	"search_path":          true,
	"target_session_attrs": true,
}

type postgres struct{}

func (postgres) Kind() Kind    { return Postgres }
func (postgres) BindType() int { return sqlx.DOLLAR }

// NativeDSN renders a libpq-style conninfo. Explicit credentials win over
// user and password keys in the connection string.
func (postgres) NativeDSN(dsn *DSN, login, password string) (string, error) {
	if dsn.Kind() != Postgres {
		return "", fmt.Errorf("%w: %s is not a postgres connection string", ErrUnsupportedDriver, dsn.Driver())
	}

	login, password = credentials(dsn, login, password)

	parts := make([]string, 0, len(dsn.keys)+2)
	for _, key := range dsn.keys {
		switch {
		case key == "host" || key == "port" || key == "dbname":
		case pgConninfoKeys[key]:
		default:
			continue
		}
		parts = append(parts, key+"="+quoteConninfo(dsn.params[key]))
	}
	if login != "" {
		parts = append(parts, "user="+quoteConninfo(login))
	}
	if password != "" {
		parts = append(parts, "password="+quoteConninfo(password))
	}
	return strings.Join(parts, " "), nil
}

// quoteConninfo quotes a conninfo value when it contains spaces, quotes or
// backslashes.
func quoteConninfo(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (postgres) StrictModeStatement() string { return "" }

func (postgres) DeferConstraintsStatement() string { return "SET CONSTRAINTS ALL DEFERRED" }

func (postgres) SessionStatement(v SessionVar, prefix string) string {
	if v == TimeZone {
		return "SELECT set_config('TimeZone', $1, false)"
	}
	return fmt.Sprintf("SELECT set_config('%s.%s', $1, false)", prefix, v)
}

func (postgres) BeginStatement() string    { return "BEGIN" }
func (postgres) CommitStatement() string   { return "COMMIT" }
func (postgres) RollbackStatement() string { return "ROLLBACK" }

func (postgres) IsolationQuery() string { return "SHOW transaction_isolation" }

func (postgres) SetIsolationStatement(level string) string {
	return "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL " + level
}

func (postgres) CatalogQuery(_ string, schemas []string) (string, []interface{}) {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}
	query := `SELECT (CASE WHEN table_schema = 'public' THEN '' ELSE table_schema || '.' END) || table_name AS table_name
FROM information_schema.tables
WHERE table_schema = ANY($1)
ORDER BY table_schema, table_name`
	return query, []interface{}{schemas}
}

func (postgres) SyntheticTables() []string { return []string{"pg_type", "pg_enum"} }

func (postgres) Classify(err error) RetryClass {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code, pgLiteClasses, pgMainClasses)
	}
	// The statement never reached the server.
	if pgconn.SafeToRetry(err) {
		return Lite
	}
	return NoRetry
}

func (postgres) FanOutLookup() string {
	return "SELECT proname FROM pg_proc WHERE proname = 'execute_multiple'"
}

func (postgres) FanOutCall() string {
	return "SELECT execute_multiple($1::text[], $2::int, $3::text) AS failed"
}
