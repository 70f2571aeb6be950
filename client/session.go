package client

import (
	"context"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// SetUserID sets the acting application user. While connected, a changed
// value is assigned to the session immediately; otherwise it is applied on
// the next connect.
func (c *Client) SetUserID(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSessionVar(ctx, dialect.UserID, &c.userID, userID)
}

// SetLocale sets the acting user's locale. See SetUserID.
func (c *Client) SetLocale(ctx context.Context, locale string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSessionVar(ctx, dialect.Locale, &c.locale, locale)
}

// SetTimeZone sets the session time zone. See SetUserID.
func (c *Client) SetTimeZone(ctx context.Context, tz string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSessionVar(ctx, dialect.TimeZone, &c.timeZone, tz)
}

func (c *Client) setSessionVar(ctx context.Context, v dialect.SessionVar, field *string, value string) error {
	if c.stateMgr.GetState() == CLOSED {
		return errClosed("set " + v.String())
	}
	if *field == value {
		return nil
	}
	if c.IsConnected() {
		if err := c.applySessionVar(ctx, v, value); err != nil {
			return c.queryError(c.dialect.SessionStatement(v, c.opts.SessionVarPrefix), nil, err, dialect.NoRetry, 1)
		}
	}
	*field = value
	return nil
}

func (c *Client) applySessionVar(ctx context.Context, v dialect.SessionVar, value string) error {
	stmt := c.dialect.SessionStatement(v, c.opts.SessionVarPrefix)
	if _, err := c.conn.Exec(ctx, stmt, value); err != nil {
		return err
	}
	c.logger.Debug("session variable set", String("variable", v.String()))
	return nil
}

// SetTransactionalMode switches transactional mode. Turning it off while
// connected commits the open transaction; turning it on begins one.
func (c *Client) SetTransactionalMode(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transactional == on {
		return nil
	}
	c.transactional = on

	if !c.IsConnected() {
		return nil
	}
	if on {
		if c.inTx {
			return nil
		}
		return c.beginLocked(ctx)
	}
	if !c.inTx {
		return nil
	}
	return c.commitLocked(ctx)
}

// SetTransactionDeferred toggles deferring constraint checks to commit
// (Postgres). It takes effect at the next connect or begin.
func (c *Client) SetTransactionDeferred(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferConstraints = on
}

func (c *Client) deferConstraintsLocked(ctx context.Context) error {
	if !c.deferConstraints {
		return nil
	}
	stmt := c.dialect.DeferConstraintsStatement()
	if stmt == "" {
		return nil
	}
	_, err := c.conn.Exec(ctx, stmt)
	return err
}
