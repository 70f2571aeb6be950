package client

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// pgxConn adapts a native pgx connection to Conn.
type pgxConn struct {
	conn    *pgx.Conn
	emulate bool
}

func dialPostgres(ctx context.Context, d dialect.Dialect, dsn *dialect.DSN, opts ClientOptions) (Conn, error) {
	conninfo, err := d.NativeDSN(dsn, opts.Login, opts.Password)
	if err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(conninfo)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.SessionOptions {
		cfg.RuntimeParams[k] = v
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &pgxConn{conn: conn, emulate: opts.EmulatePrepares}, nil
}

// withMode prepends the simple-protocol option when emulation is on.
func (c *pgxConn) withMode(args []interface{}) []interface{} {
	if !c.emulate {
		return args
	}
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, pgx.QueryExecModeSimpleProtocol)
	return append(out, args...)
}

func (c *pgxConn) Query(ctx context.Context, query string, args ...interface{}) (*Rows, error) {
	rows, err := c.conn.Query(ctx, query, c.withMode(args)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := &Rows{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		out.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.RowsAffected = rows.CommandTag().RowsAffected()
	return out, nil
}

func (c *pgxConn) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	tag, err := c.conn.Exec(ctx, query, c.withMode(args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *pgxConn) EmulatePrepares() bool      { return c.emulate }
func (c *pgxConn) SetEmulatePrepares(on bool) { c.emulate = on }

func (c *pgxConn) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

func (c *pgxConn) Close(ctx context.Context) error { return c.conn.Close(ctx) }
