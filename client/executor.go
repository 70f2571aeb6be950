package client

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dan-strohschein/resilientdb/dialect"
	"github.com/dan-strohschein/resilientdb/mapper"
)

// Result is the outcome of a single statement: either rows or an affected
// row count, never both. Rows is non-nil exactly when the result is
// row-shaped.
type Result struct {
	Rows     []map[string]interface{}
	RowCount int64
}

// HasRows reports whether the result is row-shaped.
func (r *Result) HasRows() bool { return r != nil && r.Rows != nil }

// Query executes one statement through the retry path and, when an
// isolation override is pending, under that isolation level.
//
// Without params the statement is executed directly. Positional params are
// bound after type inference (bool, int64, string, NULL). A single
// map[string]interface{} argument binds :name placeholders.
//
// Hooks run outside the Descriptor lock and may call back into the Client.
func (c *Client) Query(ctx context.Context, statement string, params ...interface{}) (*Result, error) {
	hookCtx := c.newHookContext(inferCommandType(statement), []string{statement}, [][]interface{}{params})
	if err := c.executeBeforeHooks(ctx, hookCtx); err != nil {
		return nil, err
	}
	if len(hookCtx.Statements) != 1 {
		return nil, ErrInvalidParameterCount(len(hookCtx.Statements), 1)
	}
	statement = hookCtx.Statements[0]

	var (
		result   *Result
		attempts int
	)
	err := c.withLock(func() error {
		if err := c.ensureConnected(ctx, "query"); err != nil {
			return err
		}
		var (
			class dialect.RetryClass
			err   error
		)
		attempts, class, err = c.runIsolated(ctx, func(ctx context.Context) error {
			rows, err := c.runStatement(ctx, statement, params)
			if err != nil {
				return err
			}
			result = c.toResult(rows)
			return nil
		})
		return c.queryError(statement, params, err, class, attempts)
	})
	if err != nil {
		result = nil
	}

	if hookErr := c.finishHooks(ctx, hookCtx, result, attempts, err); hookErr != nil && err == nil {
		return result, hookErr
	}
	return result, err
}

// QueryBatch executes statements in order, each with its parameter set, and
// returns the summed affected-row count. paramSets may be nil; otherwise it
// must have one entry per statement or nothing is executed. The same holds
// after Before hooks rewrote the statements. No transaction is opened here;
// a retry re-executes the whole batch.
func (c *Client) QueryBatch(ctx context.Context, statements []string, paramSets [][]interface{}) (int64, error) {
	if paramSets != nil && len(paramSets) != len(statements) {
		return 0, ErrInvalidParameterCount(len(statements), len(paramSets))
	}
	if paramSets == nil {
		paramSets = make([][]interface{}, len(statements))
	}

	hookCtx := c.newHookContext("batch", statements, paramSets)
	if err := c.executeBeforeHooks(ctx, hookCtx); err != nil {
		return 0, err
	}
	statements = hookCtx.Statements
	if len(statements) != len(paramSets) {
		return 0, ErrInvalidParameterCount(len(statements), len(paramSets))
	}

	var (
		total    int64
		attempts int
	)
	err := c.withLock(func() error {
		if err := c.ensureConnected(ctx, "query batch"); err != nil {
			return err
		}
		var (
			class dialect.RetryClass
			err   error
		)
		attempts, class, err = c.runIsolated(ctx, func(ctx context.Context) error {
			total = 0
			for i, stmt := range statements {
				rows, err := c.runStatement(ctx, stmt, paramSets[i])
				if err != nil {
					return err
				}
				total += rows.RowsAffected
			}
			return nil
		})
		return c.queryError(joinBatch(statements), nil, err, class, attempts)
	})
	if err != nil {
		total = 0
	}

	result := &Result{RowCount: total}
	if hookErr := c.finishHooks(ctx, hookCtx, result, attempts, err); hookErr != nil && err == nil {
		return total, hookErr
	}
	return total, err
}

// Column executes a statement through the retry path and returns the first
// column of every row as text. It does not consume the isolation override
// and does not run hooks.
func (c *Client) Column(ctx context.Context, statement string, params ...interface{}) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx, "column"); err != nil {
		return nil, err
	}
	return c.columnLocked(ctx, statement, params...)
}

func (c *Client) columnLocked(ctx context.Context, statement string, params ...interface{}) ([]string, error) {
	var out []string
	attempts, class, err := c.retry(ctx, func(ctx context.Context) error {
		rows, err := c.runStatement(ctx, statement, params)
		if err != nil {
			return err
		}
		out = make([]string, 0, len(rows.Values))
		for _, values := range rows.Values {
			if len(values) == 0 {
				continue
			}
			out = append(out, mapper.ToString(values[0]))
		}
		return nil
	})
	if err != nil {
		return nil, c.queryError(statement, params, err, class, attempts)
	}
	return out, nil
}

// runStatement binds params and runs one statement on the live connection.
func (c *Client) runStatement(ctx context.Context, statement string, params []interface{}) (*Rows, error) {
	query, args, err := c.bind(statement, params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := c.conn.Query(ctx, query, args...)
	c.logCommandExecution(query, args, rows, time.Since(start), err)
	return rows, err
}

// bind resolves named parameters and infers positional parameter types.
func (c *Client) bind(statement string, params []interface{}) (string, []interface{}, error) {
	if len(params) == 0 {
		return statement, nil, nil
	}
	if len(params) == 1 {
		if named, ok := params[0].(map[string]interface{}); ok {
			query, args, err := sqlx.Named(statement, mapper.BindNamed(named))
			if err != nil {
				return "", nil, err
			}
			return sqlx.Rebind(c.dialect.BindType(), query), args, nil
		}
	}
	return statement, mapper.BindValues(params), nil
}

// toResult shapes buffered rows. Zero rows yield an empty row list, or the
// affected-row count when array results are disabled.
func (c *Client) toResult(rows *Rows) *Result {
	if len(rows.Values) == 0 && !c.opts.ArrayResults {
		return &Result{RowCount: rows.RowsAffected}
	}
	out := make([]map[string]interface{}, 0, len(rows.Values))
	for _, values := range rows.Values {
		out = append(out, c.mapper.MapRow(rows.Columns, values))
	}
	return &Result{Rows: out}
}

func (c *Client) queryError(statement string, params []interface{}, cause error, class dialect.RetryClass, attempts int) error {
	if cause == nil {
		return nil
	}
	// Errors produced by this package already carry their context.
	switch cause.(type) {
	case *QueryError, *TransactionError, *ConnectionError, *BatchError:
		return cause
	}
	return &QueryError{
		Code:       CodeQueryFailed,
		Type:       "QUERY_ERROR",
		Message:    "statement execution failed",
		Query:      statement,
		Params:     params,
		RetryClass: class,
		Attempts:   attempts,
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}
