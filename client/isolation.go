package client

import (
	"context"
	"strings"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// Isolation levels accepted by SetIsolationLevel and
// SetNextStatementIsolationLevel.
const (
	ReadCommitted  = "READ COMMITTED"
	RepeatableRead = "REPEATABLE READ"
	Serializable   = "SERIALIZABLE"
)

// NormalizeIsolationLevel canonicalizes a level name ("read-committed",
// "Read Committed" and "READ COMMITTED" are the same) and reports whether
// it is one of the supported levels.
func NormalizeIsolationLevel(level string) (string, bool) {
	l := strings.ToUpper(strings.TrimSpace(level))
	l = strings.ReplaceAll(l, "-", " ")
	l = strings.ReplaceAll(l, "_", " ")
	l = strings.Join(strings.Fields(l), " ")

	switch l {
	case ReadCommitted, RepeatableRead, Serializable:
		return l, true
	default:
		return "", false
	}
}

// SetNextStatementIsolationLevel schedules level for the next Query or
// QueryBatch only. The session level is restored after that call, also when
// it fails. Overrides do not nest.
func (c *Client) SetNextStatementIsolationLevel(level string) error {
	normalized, ok := NormalizeIsolationLevel(level)
	if !ok {
		return ErrIsolationLevel(level)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextIsolation = normalized
	return nil
}

// SetIsolationLevel sets the session isolation level and records it as the
// level restored after overrides. It returns the previously recorded level.
func (c *Client) SetIsolationLevel(ctx context.Context, level string) (string, error) {
	normalized, ok := NormalizeIsolationLevel(level)
	if !ok {
		return "", ErrIsolationLevel(level)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx, "set isolation level"); err != nil {
		return "", err
	}

	prior, err := c.currentIsolationLocked(ctx)
	if err != nil {
		return "", err
	}
	if err := c.applyIsolationLocked(ctx, normalized); err != nil {
		return "", err
	}
	c.isolationLevel = normalized
	return prior, nil
}

// runIsolated runs op through the retry path, under the pending isolation
// override if there is one. The override is consumed even when op fails.
func (c *Client) runIsolated(ctx context.Context, op func(context.Context) error) (int, dialect.RetryClass, error) {
	level := c.nextIsolation
	if level == "" {
		return c.retry(ctx, op)
	}
	c.nextIsolation = ""

	prior, err := c.currentIsolationLocked(ctx)
	if err != nil {
		return 0, dialect.NoRetry, err
	}
	if err := c.applyIsolationLocked(ctx, level); err != nil {
		return 0, dialect.NoRetry, err
	}

	attempts, class, err := c.retry(ctx, op)

	if restoreErr := c.applyIsolationLocked(ctx, prior); restoreErr != nil {
		c.logger.Error("failed to restore isolation level",
			String("level", prior),
			Error("error", restoreErr))
		if err == nil {
			return attempts, dialect.NoRetry, restoreErr
		}
	}
	return attempts, class, err
}

// currentIsolationLocked returns the recorded level, reading it from the
// server once per Client.
func (c *Client) currentIsolationLocked(ctx context.Context) (string, error) {
	if c.isolationLevel != "" {
		return c.isolationLevel, nil
	}

	values, err := c.columnLocked(ctx, c.dialect.IsolationQuery())
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", newTransactionError(CodeInvalidIsolationLevel, "server returned no isolation level", nil, nil)
	}

	level, ok := NormalizeIsolationLevel(values[0])
	if !ok {
		// READ UNCOMMITTED and friends are kept verbatim so they can be restored.
		level = strings.ToUpper(strings.ReplaceAll(values[0], "-", " "))
	}
	c.isolationLevel = level
	return level, nil
}

func (c *Client) applyIsolationLocked(ctx context.Context, level string) error {
	stmt := c.dialect.SetIsolationStatement(level)
	attempts, class, err := c.retry(ctx, func(ctx context.Context) error {
		_, err := c.conn.Exec(ctx, stmt)
		return err
	})
	return c.queryError(stmt, nil, err, class, attempts)
}
