package client

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// ============================================================================
// LoggingHook - Logs request execution details
// ============================================================================

// LoggingHook logs request execution with configurable detail levels.
type LoggingHook struct {
	logger       Logger
	logCommands  bool // Log statement texts
	logResults   bool // Log result summaries
	logDurations bool // Log execution times
}

// NewLoggingHook creates a new logging hook with the given logger.
func NewLoggingHook(logger Logger, logCommands, logResults, logDurations bool) *LoggingHook {
	return &LoggingHook{
		logger:       logger,
		logCommands:  logCommands,
		logResults:   logResults,
		logDurations: logDurations,
	}
}

func (h *LoggingHook) Name() string {
	return "logging"
}

func (h *LoggingHook) Before(ctx context.Context, hookCtx *HookContext) error {
	if h.logCommands {
		h.logger.Debug("executing statement",
			String("statement", strings.Join(hookCtx.Statements, "; ")),
			String("type", hookCtx.CommandType),
			String("trace_id", hookCtx.TraceID))
	}
	return nil
}

func (h *LoggingHook) After(ctx context.Context, hookCtx *HookContext) error {
	fields := []Field{
		String("command_type", hookCtx.CommandType),
		String("trace_id", hookCtx.TraceID),
		Int("attempts", hookCtx.Attempts),
	}

	if h.logDurations {
		fields = append(fields, Duration("duration", hookCtx.Duration))
	}
	if len(hookCtx.Tags) > 0 {
		fields = append(fields, Strings("tags", hookCtx.Tags))
	}

	if hookCtx.Error != nil {
		fields = append(fields, Error("error", hookCtx.Error))
		h.logger.Error("statement failed", fields...)
		return nil
	}

	if h.logResults && hookCtx.Result != nil {
		fields = append(fields, String("result", summarizeResult(hookCtx.Result)))
	}
	h.logger.Debug("statement completed", fields...)
	return nil
}

func summarizeResult(r *Result) string {
	if r.HasRows() {
		return fmt.Sprintf("%d rows", len(r.Rows))
	}
	return fmt.Sprintf("%d affected", r.RowCount)
}

// ============================================================================
// MetricsHook - Collects performance metrics
// ============================================================================

// MetricsHook collects request execution metrics using atomic counters.
type MetricsHook struct {
	TotalCommands   atomic.Uint64
	TotalQueries    atomic.Uint64
	TotalMutations  atomic.Uint64
	TotalBatches    atomic.Uint64
	TotalErrors     atomic.Uint64
	TotalRetries    atomic.Uint64
	TotalDurationNs atomic.Uint64
}

// NewMetricsHook creates a new metrics collection hook.
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

func (h *MetricsHook) Name() string {
	return "metrics"
}

func (h *MetricsHook) Before(ctx context.Context, hookCtx *HookContext) error {
	return nil
}

func (h *MetricsHook) After(ctx context.Context, hookCtx *HookContext) error {
	h.TotalCommands.Add(1)
	h.TotalDurationNs.Add(uint64(hookCtx.Duration.Nanoseconds()))

	switch hookCtx.CommandType {
	case "query":
		h.TotalQueries.Add(1)
	case "mutation":
		h.TotalMutations.Add(1)
	case "batch":
		h.TotalBatches.Add(1)
	}

	if hookCtx.Attempts > 1 {
		h.TotalRetries.Add(uint64(hookCtx.Attempts - 1))
	}
	if hookCtx.Error != nil {
		h.TotalErrors.Add(1)
	}

	return nil
}

// GetStats returns current metrics as a map.
func (h *MetricsHook) GetStats() map[string]interface{} {
	totalCmds := h.TotalCommands.Load()
	totalDur := h.TotalDurationNs.Load()

	avgDuration := int64(0)
	if totalCmds > 0 {
		avgDuration = int64(totalDur / totalCmds)
	}

	return map[string]interface{}{
		"total_commands":    totalCmds,
		"total_queries":     h.TotalQueries.Load(),
		"total_mutations":   h.TotalMutations.Load(),
		"total_batches":     h.TotalBatches.Load(),
		"total_errors":      h.TotalErrors.Load(),
		"total_retries":     h.TotalRetries.Load(),
		"total_duration_ns": totalDur,
		"avg_duration_ns":   avgDuration,
		"avg_duration_ms":   float64(avgDuration) / 1_000_000,
	}
}

// Reset clears all metrics.
func (h *MetricsHook) Reset() {
	h.TotalCommands.Store(0)
	h.TotalQueries.Store(0)
	h.TotalMutations.Store(0)
	h.TotalBatches.Store(0)
	h.TotalErrors.Store(0)
	h.TotalRetries.Store(0)
	h.TotalDurationNs.Store(0)
}

// ============================================================================
// InvalidationHook - Forwards table tags of mutating requests
// ============================================================================

// InvalidationHook calls fn with the tags of every successful mutating
// request. Tags are computed by the Client's TagResolver.
type InvalidationHook struct {
	fn func(ctx context.Context, tags []string)
}

// NewInvalidationHook creates a hook that reports invalidation tags to fn.
func NewInvalidationHook(fn func(ctx context.Context, tags []string)) *InvalidationHook {
	return &InvalidationHook{fn: fn}
}

func (h *InvalidationHook) Name() string {
	return "invalidation"
}

func (h *InvalidationHook) Before(ctx context.Context, hookCtx *HookContext) error {
	return nil
}

func (h *InvalidationHook) After(ctx context.Context, hookCtx *HookContext) error {
	if hookCtx.Error != nil || len(hookCtx.Tags) == 0 || h.fn == nil {
		return nil
	}
	h.fn(ctx, hookCtx.Tags)
	return nil
}
