package dialect

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{Postgres, "postgres"},
		{MySQL, "mysql"},
		{Kind(0), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFor(t *testing.T) {
	d, err := For(Postgres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := d.(FanOut); !ok {
		t.Error("postgres dialect should support fan-out")
	}

	d, err = For(MySQL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := d.(FanOut); ok {
		t.Error("mysql dialect should not support fan-out")
	}

	if _, err := For(Kind(42)); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestPostgresClassify(t *testing.T) {
	d := postgres{}

	tests := []struct {
		name     string
		err      error
		expected RetryClass
	}{
		{"deadlock", &pgconn.PgError{Code: "40P01"}, Main},
		{"serialization", &pgconn.PgError{Code: "40001"}, Main},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, Main},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, Lite},
		{"connection failure", &pgconn.PgError{Code: "08006"}, Lite},
		{"invalid transaction termination", &pgconn.PgError{Code: "2D000"}, Lite},
		{"savepoint", &pgconn.PgError{Code: "3B001"}, Lite},
		{"too many columns", &pgconn.PgError{Code: "54011"}, Lite},
		{"unique violation", &pgconn.PgError{Code: "23505"}, NoRetry},
		{"syntax", &pgconn.PgError{Code: "42601"}, NoRetry},
		{"wrapped deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), Main},
		{"plain error", errors.New("boom"), NoRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Classify(tt.err); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMySQLClassify(t *testing.T) {
	d := mysqlDialect{}

	deadlock := &mysql.MySQLError{Number: 1213}
	copy(deadlock.SQLState[:], "40001")

	tests := []struct {
		name     string
		err      error
		expected RetryClass
	}{
		{"deadlock", deadlock, Main},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205}, Main},
		{"too many connections", &mysql.MySQLError{Number: 1040}, Lite},
		{"too many placeholders", &mysql.MySQLError{Number: 1390}, Lite},
		{"gone away", &mysql.MySQLError{Number: 2006}, Lite},
		{"duplicate entry", &mysql.MySQLError{Number: 1062}, NoRetry},
		{"invalid conn", mysql.ErrInvalidConn, Lite},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), Lite},
		{"plain error", errors.New("boom"), NoRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Classify(tt.err); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestSessionStatements(t *testing.T) {
	pg := postgres{}
	if got := pg.SessionStatement(UserID, "app"); got != "SELECT set_config('app.user_id', $1, false)" {
		t.Errorf("unexpected postgres user statement: %s", got)
	}
	if got := pg.SessionStatement(TimeZone, "app"); !strings.Contains(got, "'TimeZone'") {
		t.Errorf("unexpected postgres time zone statement: %s", got)
	}

	my := mysqlDialect{}
	if got := my.SessionStatement(Locale, "app"); got != "SET @app_locale = ?" {
		t.Errorf("unexpected mysql locale statement: %s", got)
	}
	if got := my.SessionStatement(TimeZone, "app"); got != "SET time_zone = ?" {
		t.Errorf("unexpected mysql time zone statement: %s", got)
	}
}

func TestCatalogQuery(t *testing.T) {
	query, args := postgres{}.CatalogQuery("shop", nil)
	if !strings.Contains(query, "information_schema.tables") {
		t.Errorf("expected information_schema query, got %s", query)
	}
	schemas, ok := args[0].([]string)
	if !ok || len(schemas) != 1 || schemas[0] != "public" {
		t.Errorf("expected default schema public, got %v", args)
	}

	_, args = mysqlDialect{}.CatalogQuery("shop", []string{"ignored"})
	if len(args) != 1 || args[0] != "shop" {
		t.Errorf("expected database name argument, got %v", args)
	}
}
