package client

import (
	"context"
	_ "embed"
	"strconv"
	"strings"

	"github.com/dan-strohschein/resilientdb/dialect"
)

//go:embed sql/execute_multiple.sql
var executeMultipleSQL string

// ParallelExecute runs every group of batch as its own transaction through
// the server-side execute_multiple routine, installing it on first use, with
// at most MaxParallelConnects concurrent connections. It returns the groups
// that were applied; failed groups are stripped and left to the caller.
// Postgres only.
func (c *Client) ParallelExecute(ctx context.Context, batch TxBatch) (TxBatch, error) {
	fo, ok := c.dialect.(dialect.FanOut)
	if !ok {
		return nil, newBatchError(CodeParallelUnsupported, "parallel execution requires postgres", nil,
			map[string]interface{}{"driver": c.dialect.Kind().String()})
	}
	if len(batch) == 0 {
		return TxBatch{}, nil
	}

	hookCtx := c.newHookContext("batch", batch.Statements(), nil)
	if err := c.executeBeforeHooks(ctx, hookCtx); err != nil {
		return nil, err
	}

	var applied TxBatch
	err := c.withLock(func() error {
		if err := c.ensureConnected(ctx, "parallel execute"); err != nil {
			return err
		}
		var err error
		applied, err = c.parallelLocked(ctx, fo, batch)
		return err
	})
	if err == nil {
		hookCtx.Statements = applied.Statements()
	}
	if hookErr := c.finishHooks(ctx, hookCtx, nil, 1, err); hookErr != nil && err == nil {
		return applied, hookErr
	}
	return applied, err
}

func (c *Client) parallelLocked(ctx context.Context, fo dialect.FanOut, batch TxBatch) (TxBatch, error) {
	if err := c.ensureFanOutRoutine(ctx, fo); err != nil {
		return nil, newBatchError(CodeParallelFailed, "cannot install execute_multiple", err, nil)
	}

	conninfo, err := fo.NativeDSN(c.dsn, c.opts.Login, c.opts.Password)
	if err != nil {
		return nil, newBatchError(CodeParallelFailed, "cannot build native connection string", err, nil)
	}

	transactions := make([]string, len(batch))
	for i, group := range batch {
		transactions[i] = strings.Join(group, ";")
	}

	workers := len(batch)
	if c.opts.MaxParallelConnects < workers {
		workers = c.opts.MaxParallelConnects
	}

	values, err := c.columnLocked(ctx, fo.FanOutCall(), transactions, workers, conninfo)
	if err != nil {
		return nil, newBatchError(CodeParallelFailed, "execute_multiple failed", err,
			map[string]interface{}{"transactions": len(batch), "connections": workers})
	}

	var report string
	if len(values) > 0 {
		report = values[0]
	}
	failed := parseFailedIndices(report)

	applied := make(TxBatch, 0, len(batch))
	for i, group := range batch {
		if !failed[i+1] {
			applied = append(applied, group)
		}
	}

	if len(failed) > 0 {
		c.logger.Warn("parallel execution stripped failed transactions",
			Int("failed", len(failed)),
			Int("applied", len(applied)))
	}
	return applied, nil
}

func (c *Client) ensureFanOutRoutine(ctx context.Context, fo dialect.FanOut) error {
	found, err := c.columnLocked(ctx, fo.FanOutLookup())
	if err != nil {
		return err
	}
	if len(found) > 0 {
		return nil
	}

	c.logger.Info("installing execute_multiple routine")
	_, err = c.conn.Exec(ctx, executeMultipleSQL)
	return err
}

// parseFailedIndices reads the routine's comma-separated 1-based indices.
func parseFailedIndices(report string) map[int]bool {
	failed := make(map[int]bool)
	for _, part := range strings.Split(report, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			continue
		}
		failed[n] = true
	}
	return failed
}
