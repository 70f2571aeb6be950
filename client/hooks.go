package client

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TagResolver computes the cache-invalidation tags of a statement. It
// returns nil for statements that do not mutate data.
type TagResolver interface {
	MutatingTables(statement string) []string
}

// HookContext contains information about the request being executed.
// This is passed to hooks to allow inspection and modification.
type HookContext struct {
	// Statements are the statement texts; one for Query, several for
	// QueryBatch. Before hooks may rewrite them.
	Statements []string

	// Params holds one parameter set per statement.
	Params [][]interface{}

	// CommandType categorizes the request (query, mutation, transaction,
	// schema, batch, unknown).
	CommandType string

	// StartTime is when the request began.
	StartTime time.Time

	// Metadata allows hooks to store arbitrary data for passing between Before/After
	Metadata map[string]interface{}

	// TraceID is the unique identifier for this request.
	TraceID string

	// Attempts is how many times the request was executed (available in After hook).
	Attempts int

	// Result stores the request result (available in After hook).
	Result *Result

	// Error stores any error that occurred (available in After hook).
	Error error

	// Duration is the execution time (available in After hook).
	Duration time.Duration

	// Tags are the tables touched by a successful mutating request, as
	// computed by the configured TagResolver (available in After hook).
	Tags []string
}

// Hook is the interface that all hooks must implement.
// Hooks run without the Client's lock held, so they may call back into the
// Client. Before hooks run ahead of the lazy connect.
type Hook interface {
	// Name returns the unique name of this hook
	Name() string

	// Before is called before execution.
	// Returning an error aborts the request and returns the error.
	Before(ctx context.Context, hookCtx *HookContext) error

	// After is called after execution (even if it failed).
	// Returning an error is reported to the caller when the request itself
	// succeeded.
	After(ctx context.Context, hookCtx *HookContext) error
}

// hookEntry wraps a Hook with its registration order for stable iteration.
type hookEntry struct {
	hook  Hook
	order int
}

// RegisterHook adds a hook to the client's hook chain.
// Hooks are executed in FIFO order (first registered, first executed).
// If a hook with the same name already exists, it is replaced.
func (c *Client) RegisterHook(hook Hook) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()

	for i, entry := range c.hooks {
		if entry.hook.Name() == hook.Name() {
			c.hooks[i].hook = hook
			c.logger.Debug("hook replaced", String("hook", hook.Name()))
			return
		}
	}

	order := len(c.hooks)
	c.hooks = append(c.hooks, hookEntry{hook: hook, order: order})
	c.logger.Debug("hook registered", String("hook", hook.Name()), Int("order", order))
}

// UnregisterHook removes a hook by name.
// Returns true if the hook was found and removed, false otherwise.
func (c *Client) UnregisterHook(name string) bool {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()

	for i, entry := range c.hooks {
		if entry.hook.Name() == name {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			c.logger.Debug("hook unregistered", String("hook", name))
			return true
		}
	}

	return false
}

// GetHooks returns the names of all registered hooks in execution order.
func (c *Client) GetHooks() []string {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()

	names := make([]string, len(c.hooks))
	for i, entry := range c.hooks {
		names[i] = entry.hook.Name()
	}
	return names
}

func (c *Client) snapshotHooks() []Hook {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()

	hooks := make([]Hook, len(c.hooks))
	for i, entry := range c.hooks {
		hooks[i] = entry.hook
	}
	return hooks
}

func (c *Client) newHookContext(commandType string, statements []string, params [][]interface{}) *HookContext {
	stmts := make([]string, len(statements))
	copy(stmts, statements)

	return &HookContext{
		Statements:  stmts,
		Params:      params,
		CommandType: commandType,
		StartTime:   time.Now(),
		Metadata:    make(map[string]interface{}),
		TraceID:     uuid.New().String(),
	}
}

// executeBeforeHooks runs all Before hooks in order.
// If any hook returns an error, execution stops and the error is returned.
func (c *Client) executeBeforeHooks(ctx context.Context, hookCtx *HookContext) error {
	for _, hook := range c.snapshotHooks() {
		if err := hook.Before(ctx, hookCtx); err != nil {
			c.logger.Debug("hook aborted request",
				String("hook", hook.Name()),
				String("trace_id", hookCtx.TraceID),
				Error("error", err))
			return err
		}
	}
	return nil
}

// finishHooks records the outcome, computes invalidation tags and runs all
// After hooks. All hooks run even if one fails; the last error is returned.
// The Descriptor lock must not be held.
func (c *Client) finishHooks(ctx context.Context, hookCtx *HookContext, result *Result, attempts int, err error) error {
	hookCtx.Result = result
	hookCtx.Error = err
	hookCtx.Attempts = attempts
	hookCtx.Duration = time.Since(hookCtx.StartTime)

	if err == nil && c.opts.TagResolver != nil {
		hookCtx.Tags = collectTags(c.opts.TagResolver, hookCtx.Statements)
	}

	var lastErr error
	for _, hook := range c.snapshotHooks() {
		if hookErr := hook.After(ctx, hookCtx); hookErr != nil {
			c.logger.Debug("hook returned error in After",
				String("hook", hook.Name()),
				String("trace_id", hookCtx.TraceID),
				Error("error", hookErr))
			lastErr = hookErr
		}
	}
	return lastErr
}

// collectTags unions the mutating tables of every statement, keeping first
// occurrence order.
func collectTags(resolver TagResolver, statements []string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, stmt := range statements {
		for _, table := range resolver.MutatingTables(stmt) {
			if !seen[table] {
				seen[table] = true
				tags = append(tags, table)
			}
		}
	}
	return tags
}

// inferCommandType determines the request type from the statement's first keyword.
func inferCommandType(statement string) string {
	fields := strings.Fields(strings.TrimLeft(statement, "( \t\r\n"))
	if len(fields) == 0 {
		return "unknown"
	}

	switch strings.ToUpper(fields[0]) {
	case "SELECT", "SHOW", "WITH", "EXPLAIN", "DESCRIBE", "VALUES":
		return "query"
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT":
		return "mutation"
	case "BEGIN", "START", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE":
		return "transaction"
	case "CREATE", "ALTER", "DROP", "TRUNCATE":
		return "schema"
	default:
		return "unknown"
	}
}
