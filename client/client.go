package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dan-strohschein/resilientdb/dialect"
	"github.com/dan-strohschein/resilientdb/mapper"
)

// Client is a connection descriptor: the configuration of one logical
// database session plus the single physical connection it owns. The
// connection is opened lazily on first use and lives until Close.
//
// Public methods are serialized; callers that need concurrency should own
// one Client each.
type Client struct {
	mu       sync.Mutex
	opts     ClientOptions
	dsn      *dialect.DSN
	dialect  dialect.Dialect
	database string
	conn     Conn
	stateMgr *StateManager
	logger   Logger
	mapper   *mapper.ResponseMapper

	// Session context, pushed to the connection when it changes.
	userID           string
	locale           string
	timeZone         string
	transactional    bool
	deferConstraints bool
	inTx             bool

	// isolationLevel is the memoized session level; "" until first read.
	isolationLevel string
	nextIsolation  string

	hooks   []hookEntry
	hooksMu sync.RWMutex

	debugMode atomic.Bool
}

// New creates a Client for a connection string of the form
// "driver:key=value;key=value" (pgsql, postgres, postgresql or mysql).
// No connection is opened. If opts is nil, default options are used.
func New(connStr string, opts *ClientOptions) (*Client, error) {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}
	o := opts.withDefaults()

	logger := o.Logger
	if logger == nil {
		logger = NewLogger(o.LogLevel, nil)
	}

	dsn, err := dialect.ParseDSN(connStr)
	if err != nil {
		code := CodeInvalidDSN
		if errors.Is(err, dialect.ErrUnsupportedDriver) {
			code = CodeUnsupportedDriver
		}
		return nil, newConnectionError(code, "cannot parse connection string", err, nil)
	}

	d, err := dialect.For(dsn.Kind())
	if err != nil {
		return nil, newConnectionError(CodeUnsupportedDriver, "unsupported driver", err,
			map[string]interface{}{"driver": dsn.Driver()})
	}

	database, err := dsn.Database()
	if err != nil {
		return nil, newConnectionError(CodeMissingDBName, "connection string has no dbname", err,
			map[string]interface{}{"driver": dsn.Driver()})
	}

	c := &Client{
		opts:             o,
		dsn:              dsn,
		dialect:          d,
		database:         database,
		stateMgr:         NewStateManager(),
		logger:           logger.WithFields(String("driver", d.Kind().String()), String("database", database)),
		mapper:           mapper.NewResponseMapper(o.NullsToString),
		userID:           o.UserID,
		locale:           o.Locale,
		timeZone:         o.TimeZone,
		transactional:    o.TransactionalMode,
		deferConstraints: o.DeferConstraints,
	}
	c.debugMode.Store(o.DebugMode)

	if o.OnConnected != nil || o.OnClosed != nil {
		c.stateMgr.OnStateChange(func(transition StateTransition) {
			switch transition.To {
			case CONNECTED:
				if o.OnConnected != nil {
					o.OnConnected(transition)
				}
			case CLOSED:
				if o.OnClosed != nil {
					o.OnClosed(transition)
				}
			}
		})
	}

	return c, nil
}

// DSN returns the connection string as given.
func (c *Client) DSN() string { return c.dsn.String() }

// Driver returns the engine kind.
func (c *Client) Driver() dialect.Kind { return c.dialect.Kind() }

// DatabaseName returns the dbname from the connection string.
func (c *Client) DatabaseName() string { return c.database }

// Schemas returns the schemas catalog introspection is restricted to.
func (c *Client) Schemas() []string { return append([]string(nil), c.opts.Schemas...) }

// GetState returns the connection state.
func (c *Client) GetState() ConnectionState { return c.stateMgr.GetState() }

// IsConnected reports whether the physical connection is live.
func (c *Client) IsConnected() bool { return c.stateMgr.GetState() == CONNECTED }

// Connect opens and initializes the physical connection. It is a no-op when
// the connection is already live. Failures are not retried.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, "user_initiated")
}

func (c *Client) connectLocked(ctx context.Context, reason string) error {
	switch c.stateMgr.GetState() {
	case CONNECTED:
		return nil
	case CLOSED:
		return errClosed("connect")
	}

	metadata := map[string]interface{}{
		"reason":   reason,
		"driver":   c.dialect.Kind().String(),
		"database": c.database,
	}
	if err := c.stateMgr.TransitionTo(CONNECTING, nil, metadata); err != nil {
		return err
	}

	c.logger.Debug("opening connection", String("reason", reason))

	conn, err := c.opts.Dialer(ctx, c.dialect, c.dsn, c.opts)
	if err != nil {
		return c.failConnect(err)
	}
	c.conn = conn

	if err := c.initSession(ctx); err != nil {
		if closeErr := conn.Close(ctx); closeErr != nil {
			c.logger.Warn("failed to close connection after init error", Error("error", closeErr))
		}
		c.conn = nil
		c.inTx = false
		return c.failConnect(err)
	}

	if err := c.stateMgr.TransitionTo(CONNECTED, nil, metadata); err != nil {
		return err
	}
	c.logger.Info("connected", Bool("transactional", c.transactional))
	return nil
}

func (c *Client) failConnect(cause error) error {
	c.stateMgr.TransitionTo(NOT_CONNECTED, cause, map[string]interface{}{"reason": "error"})
	c.logger.Error("connection failed", Error("error", cause))
	return newConnectionError(CodeConnectFailed, "failed to open connection", cause,
		map[string]interface{}{
			"driver":   c.dialect.Kind().String(),
			"database": c.database,
		})
}

// initSession applies connect-time settings in order: strictness, pending
// session variables, then either the auto-begun transaction (which defers
// constraints itself) or deferred constraints directly.
func (c *Client) initSession(ctx context.Context) error {
	if stmt := c.dialect.StrictModeStatement(); stmt != "" && c.opts.SQLMode != "" {
		if _, err := c.conn.Exec(ctx, stmt, c.opts.SQLMode); err != nil {
			return err
		}
	}

	for _, sv := range []struct {
		v     dialect.SessionVar
		value string
	}{
		{dialect.UserID, c.userID},
		{dialect.TimeZone, c.timeZone},
		{dialect.Locale, c.locale},
	} {
		if sv.value == "" {
			continue
		}
		if err := c.applySessionVar(ctx, sv.v, sv.value); err != nil {
			return err
		}
	}

	if c.transactional {
		return c.beginLocked(ctx)
	}
	return c.deferConstraintsLocked(ctx)
}

// Close closes the physical connection, committing nothing: an open
// transaction is rolled back by the server. The Client cannot be reused.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.stateMgr.GetState()
	if state == CLOSED {
		return nil
	}

	var closeErr error
	if c.conn != nil {
		closeErr = c.conn.Close(ctx)
		c.conn = nil
	}
	c.inTx = false

	if err := c.stateMgr.TransitionTo(CLOSED, closeErr, map[string]interface{}{"reason": "user_initiated"}); err != nil {
		return err
	}
	c.logger.Info("connection closed")

	if closeErr != nil {
		return newConnectionError(CodeClosed, "error while closing connection", closeErr, nil)
	}
	return nil
}

// withLock runs fn while holding the Descriptor lock.
func (c *Client) withLock(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

// ensureConnected lazily opens the connection for an operation.
func (c *Client) ensureConnected(ctx context.Context, operation string) error {
	if c.stateMgr.GetState() == CLOSED {
		return errClosed(operation)
	}
	return c.connectLocked(ctx, "lazy_connect")
}
