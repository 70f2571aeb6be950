package client

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/dan-strohschein/resilientdb/dialect"
)

func newMockSQLX(t *testing.T) (*sqlxConn, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	conn, err := newSQLXConn(context.Background(), sqlx.NewDb(db, "mysql"))
	if err != nil {
		t.Fatalf("failed to pin connection: %v", err)
	}
	return conn, mock
}

func TestSQLXConnQuery(t *testing.T) {
	conn, mock := newMockSQLX(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name FROM users WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), []byte("alice")))

	rows, err := conn.Query(ctx, "SELECT id, name FROM users WHERE id = ?", int64(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows.Columns) != 2 || rows.Columns[1] != "name" {
		t.Errorf("unexpected columns: %v", rows.Columns)
	}
	if len(rows.Values) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows.Values))
	}
	if name, ok := rows.Values[0][1].([]byte); !ok || string(name) != "alice" {
		t.Errorf("unexpected name cell: %#v", rows.Values[0][1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLXConnQueryRoutesNonSelectToExec(t *testing.T) {
	conn, mock := newMockSQLX(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET name = ? WHERE id = ?").
		WithArgs("bob", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := conn.Query(ctx, "UPDATE users SET name = ? WHERE id = ?", "bob", int64(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows.RowsAffected != 1 || rows.Values != nil {
		t.Errorf("expected affected count only, got %+v", rows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLXConnErrorAndClose(t *testing.T) {
	conn, mock := newMockSQLX(t)
	ctx := context.Background()

	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	mock.ExpectExec("DELETE FROM users").WillReturnError(deadlock)
	mock.ExpectClose()

	_, err := conn.Exec(ctx, "DELETE FROM users")
	if !errors.Is(err, deadlock) {
		t.Fatalf("expected driver error, got %v", err)
	}

	if err := conn.Close(ctx); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRowReturning(t *testing.T) {
	tests := []struct {
		stmt string
		want bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"(SELECT 1) UNION (SELECT 2)", true},
		{"SHOW TABLES", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"UPDATE t SET a = 1", false},
		{"INSERT INTO t SELECT * FROM u", false},
		{"SET @app_user_id = ?", false},
	}
	for _, tt := range tests {
		if got := rowReturning.MatchString(tt.stmt); got != tt.want {
			t.Errorf("rowReturning(%q) = %v, want %v", tt.stmt, got, tt.want)
		}
	}
}

// mysqlClient builds a MySQL Client whose connection is backed by sqlmock.
func mysqlClient(t *testing.T, opts ClientOptions) (*Client, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	opts.Logger = NewNoopLogger()
	opts.Dialer = func(ctx context.Context, d dialect.Dialect, dsn *dialect.DSN, o ClientOptions) (Conn, error) {
		return newSQLXConn(ctx, sqlx.NewDb(db, "mysql"))
	}

	c, err := New("mysql:host=localhost;dbname=shop", &opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, mock
}

func TestMySQLClientConnectAndRetry(t *testing.T) {
	t.Setenv("DB_RETRY_TIMEOUT", "0")

	opts := DefaultOptions()
	opts.UserID = "42"
	opts.ArrayResults = false
	c, mock := mysqlClient(t, opts)
	ctx := context.Background()

	mock.ExpectExec("SET SESSION sql_mode = ?").
		WithArgs(DefaultSQLMode).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET @app_user_id = ?").
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE stock SET qty = qty - 1").
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectExec("UPDATE stock SET qty = qty - 1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	result, err := c.Query(ctx, "UPDATE stock SET qty = qty - 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasRows() || result.RowCount != 4 {
		t.Errorf("expected 4 affected rows, got %+v", result)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLClientStrictModeFailure(t *testing.T) {
	c, mock := mysqlClient(t, DefaultOptions())

	mock.ExpectExec("SET SESSION sql_mode = ?").
		WithArgs(DefaultSQLMode).
		WillReturnError(&mysql.MySQLError{Number: 1231, Message: "Variable 'sql_mode' can't be set"})
	mock.ExpectClose()

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("expected E_CONNECT_FAILED, got %v", err)
	}
	if c.GetState() != NOT_CONNECTED {
		t.Errorf("expected NOT_CONNECTED after failure, got %s", c.GetState())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
