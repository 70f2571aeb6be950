package client

import (
	"context"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// rowReturning matches statements that produce a result set on MySQL.
var rowReturning = regexp.MustCompile(`(?i)^\s*\(?\s*(SELECT|SHOW|DESCRIBE|DESC|EXPLAIN|WITH|CALL|VALUES|TABLE)\b`)

// sqlxConn adapts a pinned database/sql connection to Conn.
type sqlxConn struct {
	db      *sqlx.DB
	conn    *sqlx.Conn
	emulate bool
}

func dialMySQL(ctx context.Context, d dialect.Dialect, dsn *dialect.DSN, opts ClientOptions) (Conn, error) {
	native, err := d.NativeDSN(dsn, opts.Login, opts.Password)
	if err != nil {
		return nil, err
	}

	cfg, err := mysql.ParseDSN(native)
	if err != nil {
		return nil, err
	}
	cfg.InterpolateParams = opts.EmulatePrepares
	if len(opts.SessionOptions) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string, len(opts.SessionOptions))
		}
		for k, v := range opts.SessionOptions {
			cfg.Params[k] = v
		}
	}

	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	conn, err := newSQLXConn(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	conn.emulate = opts.EmulatePrepares
	return conn, nil
}

// newSQLXConn pins a single connection from db.
func newSQLXConn(ctx context.Context, db *sqlx.DB) (*sqlxConn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &sqlxConn{db: db, conn: conn}, nil
}

func (c *sqlxConn) Query(ctx context.Context, query string, args ...interface{}) (*Rows, error) {
	if !rowReturning.MatchString(query) {
		n, err := c.Exec(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return &Rows{RowsAffected: n}, nil
	}

	rows, err := c.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &Rows{Columns: columns}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.RowsAffected = int64(len(out.Values))
	return out, nil
}

func (c *sqlxConn) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// EmulatePrepares reports the recorded setting. go-sql-driver fixes
// interpolation when the connection opens, so toggling only takes effect
// on the next dial.
func (c *sqlxConn) EmulatePrepares() bool      { return c.emulate }
func (c *sqlxConn) SetEmulatePrepares(on bool) { c.emulate = on }

func (c *sqlxConn) Ping(ctx context.Context) error { return c.conn.PingContext(ctx) }

func (c *sqlxConn) Close(_ context.Context) error {
	connErr := c.conn.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return connErr
}
