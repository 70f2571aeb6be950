package dialect

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQL server and client error numbers that are worth retrying.
const (
	erConCount          = 1040 // too many connections
	erLockWaitTimeout   = 1205
	erLockDeadlock      = 1213
	erPSManyParam       = 1390 // prepared statement has too many placeholders
	crServerGoneError   = 2006
	crServerLost        = 2013
	defaultMySQLPort    = "3306"
	defaultMySQLCharset = "utf8mb4"
)

type mysqlDialect struct{}

func (mysqlDialect) Kind() Kind    { return MySQL }
func (mysqlDialect) BindType() int { return sqlx.QUESTION }

// NativeDSN builds a go-sql-driver DSN. Multi-statement execution is always
// enabled because batches are sent as one concatenated string.
func (mysqlDialect) NativeDSN(dsn *DSN, login, password string) (string, error) {
	if dsn.Kind() != MySQL {
		return "", fmt.Errorf("%w: %s is not a mysql connection string", ErrUnsupportedDriver, dsn.Driver())
	}

	login, password = credentials(dsn, login, password)

	cfg := mysql.NewConfig()
	cfg.User = login
	cfg.Passwd = password
	cfg.MultiStatements = true

	if socket, ok := dsn.Get("unix_socket"); ok && socket != "" {
		cfg.Net = "unix"
		cfg.Addr = socket
	} else {
		host, _ := dsn.Get("host")
		if host == "" {
			host = "127.0.0.1"
		}
		port, _ := dsn.Get("port")
		if port == "" {
			port = defaultMySQLPort
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, port)
	}

	if name, ok := dsn.Get("dbname"); ok {
		cfg.DBName = name
	}

	charset, _ := dsn.Get("charset")
	if charset == "" {
		charset = defaultMySQLCharset
	}
	cfg.Params = map[string]string{"charset": charset}

	return cfg.FormatDSN(), nil
}

func (mysqlDialect) StrictModeStatement() string { return "SET SESSION sql_mode = ?" }

func (mysqlDialect) DeferConstraintsStatement() string { return "" }

func (mysqlDialect) SessionStatement(v SessionVar, prefix string) string {
	if v == TimeZone {
		return "SET time_zone = ?"
	}
	return fmt.Sprintf("SET @%s_%s = ?", prefix, v)
}

func (mysqlDialect) BeginStatement() string    { return "START TRANSACTION" }
func (mysqlDialect) CommitStatement() string   { return "COMMIT" }
func (mysqlDialect) RollbackStatement() string { return "ROLLBACK" }

func (mysqlDialect) IsolationQuery() string { return "SELECT @@SESSION.transaction_isolation" }

func (mysqlDialect) SetIsolationStatement(level string) string {
	return "SET SESSION TRANSACTION ISOLATION LEVEL " + level
}

func (mysqlDialect) CatalogQuery(database string, _ []string) (string, []interface{}) {
	query := `SELECT table_name AS table_name
FROM information_schema.tables
WHERE table_schema = ?
ORDER BY table_name`
	return query, []interface{}{database}
}

func (mysqlDialect) SyntheticTables() []string { return nil }

func (mysqlDialect) Classify(err error) RetryClass {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.SQLState[0] == '4' && myErr.SQLState[1] == '0' {
			return Main
		}
		switch myErr.Number {
		case erLockWaitTimeout, erLockDeadlock:
			return Main
		case erConCount, erPSManyParam, crServerGoneError, crServerLost:
			return Lite
		}
		return NoRetry
	}
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, driver.ErrBadConn) {
		return Lite
	}
	return NoRetry
}
