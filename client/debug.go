package client

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// EnableDebugMode enables per-statement detail logging and verbose error
// serialization.
func (c *Client) EnableDebugMode() {
	c.debugMode.Store(true)
	c.logger.Info("debug mode enabled")
}

// DisableDebugMode disables debug mode.
func (c *Client) DisableDebugMode() {
	c.debugMode.Store(false)
	c.logger.Info("debug mode disabled")
}

// IsDebugMode returns whether debug mode is currently enabled.
func (c *Client) IsDebugMode() bool {
	return c.debugMode.Load()
}

// GetDebugInfo returns a snapshot of the descriptor: connection state,
// session context and the options that shape results.
func (c *Client) GetDebugInfo() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := map[string]interface{}{
		"version":     Version,
		"driver":      c.dialect.Kind().String(),
		"database":    c.database,
		"state":       c.stateMgr.GetState().String(),
		"stateHeldMs": c.stateMgr.Since().Milliseconds(),
		"debugMode":   c.IsDebugMode(),
		"hooks":       c.GetHooks(),
	}

	info["session"] = map[string]interface{}{
		"userID":           c.userID,
		"locale":           c.locale,
		"timeZone":         c.timeZone,
		"transactional":    c.transactional,
		"inTransaction":    c.inTx,
		"deferConstraints": c.deferConstraints,
		"isolationLevel":   c.isolationLevel,
		"nextIsolation":    c.nextIsolation,
	}

	info["options"] = map[string]interface{}{
		"arrayResults":        c.opts.ArrayResults,
		"nullsToString":       c.opts.NullsToString,
		"emulatePrepares":     c.opts.EmulatePrepares,
		"schemas":             c.opts.Schemas,
		"retryEnvPrefix":      c.opts.RetryEnvPrefix,
		"maxParallelConnects": c.opts.MaxParallelConnects,
		"tagResolver":         c.opts.TagResolver != nil,
	}

	return info
}

// DumpDebugInfoJSON returns debug info as formatted JSON string.
func (c *Client) DumpDebugInfoJSON() string {
	info := c.GetDebugInfo()
	bytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal debug info: %s"}`, err.Error())
	}
	return string(bytes)
}

const debugPreviewLen = 1000

// logCommandExecution logs one physical statement in debug mode.
func (c *Client) logCommandExecution(statement string, args []interface{}, rows *Rows, duration time.Duration, err error) {
	if !c.IsDebugMode() {
		return
	}

	fields := []Field{
		String("statement", preview(statement)),
		Int("params", len(args)),
		Duration("duration", duration),
	}

	if err != nil {
		fields = append(fields, Error("error", err))
	} else if rows != nil {
		fields = append(fields,
			Int("rows", len(rows.Values)),
			Int64("rowsAffected", rows.RowsAffected),
			Strings("columns", rows.Columns))
	}

	c.logger.Debug("statement execution detail", fields...)
}

func preview(s string) string {
	if len(s) > debugPreviewLen {
		return s[:debugPreviewLen] + "..."
	}
	return s
}
