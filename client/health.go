package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// Ping checks that the server is reachable, opening the connection first if
// needed. A dropped connection is reported, not repaired: the descriptor
// keeps its connection until Close.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx, "ping"); err != nil {
		return err
	}

	err := c.conn.Ping(ctx)
	if err == nil {
		return nil
	}

	dropped := detectConnectionDrop(err)
	c.logger.Warn("health check failed", Error("error", err), Bool("dropped", dropped))
	return newConnectionError(CodePingFailed, "health check failed", err,
		map[string]interface{}{
			"driver":   c.dialect.Kind().String(),
			"database": c.database,
			"dropped":  dropped,
		})
}

var dropPatterns = []string{
	"connection reset",
	"broken pipe",
	"connection refused",
	"connection closed",
	"conn closed",
	"EOF",
}

// detectConnectionDrop checks if an error indicates a connection drop.
func detectConnectionDrop(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	errStr := err.Error()
	for _, pattern := range dropPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
