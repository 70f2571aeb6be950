package client

import (
	"context"
	"time"
)

// BeginTransaction opens a transaction on the connection. It returns false
// without error when one is already open.
func (c *Client) BeginTransaction(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx, "begin"); err != nil {
		return false, err
	}
	if c.inTx {
		c.logger.Debug("begin ignored, transaction already open")
		return false, nil
	}
	if err := c.beginLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Commit commits the open transaction. It returns false without error when
// none is open.
func (c *Client) Commit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() || !c.inTx {
		c.logger.Debug("commit ignored, no open transaction")
		return false, nil
	}
	if err := c.commitLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RollBack rolls back the open transaction. It returns false without error
// when none is open.
func (c *Client) RollBack(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() || !c.inTx {
		c.logger.Debug("rollback ignored, no open transaction")
		return false, nil
	}
	if err := c.rollbackLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// InTransaction reports whether a transaction is open.
func (c *Client) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTx
}

func (c *Client) beginLocked(ctx context.Context) error {
	start := time.Now()
	if _, err := c.conn.Exec(ctx, c.dialect.BeginStatement()); err != nil {
		return newTransactionError(CodeBeginFailed, "failed to begin transaction", err, nil)
	}
	c.inTx = true
	if err := c.deferConstraintsLocked(ctx); err != nil {
		return newTransactionError(CodeBeginFailed, "failed to defer constraints", err, nil)
	}
	c.logger.Debug("transaction started", Duration("duration", time.Since(start)))
	return nil
}

func (c *Client) commitLocked(ctx context.Context) error {
	if _, err := c.conn.Exec(ctx, c.dialect.CommitStatement()); err != nil {
		return newTransactionError(CodeCommitFailed, "failed to commit transaction", err, nil)
	}
	c.inTx = false
	c.logger.Debug("transaction committed")
	return nil
}

func (c *Client) rollbackLocked(ctx context.Context) error {
	_, err := c.conn.Exec(ctx, c.dialect.RollbackStatement())
	c.inTx = false
	if err != nil {
		return newTransactionError(CodeRollbackFailed, "failed to roll back transaction", err, nil)
	}
	c.logger.Debug("transaction rolled back")
	return nil
}
