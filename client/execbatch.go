package client

import "context"

// ExecBatch executes the whole batch as one multi-statement driver call with
// statement emulation forced on. On failure it rolls back and returns a
// BatchError. The previous emulation setting is restored in every case. In
// transactional mode a new transaction is begun afterwards.
func (c *Client) ExecBatch(ctx context.Context, batch TxBatch) error {
	query := batch.Concat()
	if query == "" {
		return c.withLock(func() error { return c.ensureConnected(ctx, "exec batch") })
	}

	hookCtx := c.newHookContext("batch", batch.Statements(), nil)
	if err := c.executeBeforeHooks(ctx, hookCtx); err != nil {
		return err
	}

	err := c.withLock(func() error {
		if err := c.ensureConnected(ctx, "exec batch"); err != nil {
			return err
		}
		return c.execBatchLocked(ctx, query, len(batch))
	})
	if hookErr := c.finishHooks(ctx, hookCtx, nil, 1, err); hookErr != nil && err == nil {
		return hookErr
	}
	return err
}

func (c *Client) execBatchLocked(ctx context.Context, query string, groups int) error {
	if err := execEmulated(ctx, c.conn, query); err != nil {
		if _, rbErr := c.conn.Exec(ctx, c.dialect.RollbackStatement()); rbErr != nil {
			c.logger.Warn("rollback after failed batch failed", Error("error", rbErr))
		}
		c.inTx = false
		return newBatchError(CodeBatchFailed, "batch execution failed: "+err.Error(), err,
			map[string]interface{}{"groups": groups})
	}

	// The batch's own COMMIT closed any transaction that was open.
	c.inTx = false
	if c.transactional {
		return c.beginLocked(ctx)
	}
	return nil
}

// execEmulated runs query with statement emulation forced on. The prior
// setting is restored on return, including when conn panics.
func execEmulated(ctx context.Context, conn Conn, query string) error {
	prior := conn.EmulatePrepares()
	conn.SetEmulatePrepares(true)
	defer conn.SetEmulatePrepares(prior)

	_, err := conn.Exec(ctx, query)
	return err
}
