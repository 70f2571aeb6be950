package client

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMetricsHook(t *testing.T) {
	hook := NewMetricsHook()
	ctx := context.Background()

	hook.After(ctx, &HookContext{CommandType: "query", Attempts: 1, Duration: time.Millisecond})
	hook.After(ctx, &HookContext{CommandType: "mutation", Attempts: 3, Duration: time.Millisecond})
	hook.After(ctx, &HookContext{CommandType: "batch", Attempts: 1, Error: errors.New("x")})

	stats := hook.GetStats()
	expected := map[string]uint64{
		"total_commands":  3,
		"total_queries":   1,
		"total_mutations": 1,
		"total_batches":   1,
		"total_errors":    1,
		"total_retries":   2,
	}
	for key, want := range expected {
		if stats[key] != want {
			t.Errorf("%s = %v, want %d", key, stats[key], want)
		}
	}

	hook.Reset()
	if hook.GetStats()["total_commands"] != uint64(0) {
		t.Error("expected counters to reset")
	}
}

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	hook := NewLoggingHook(NewLogger("DEBUG", &buf), true, true, true)
	ctx := context.Background()

	hookCtx := &HookContext{
		Statements:  []string{"UPDATE orders SET x = 1"},
		CommandType: "mutation",
		TraceID:     "trace-1",
	}
	hook.Before(ctx, hookCtx)

	hookCtx.Result = &Result{RowCount: 4}
	hookCtx.Attempts = 1
	hookCtx.Tags = []string{"orders"}
	hook.After(ctx, hookCtx)

	out := buf.String()
	for _, want := range []string{"executing statement", "UPDATE orders", "statement completed", "4 affected", "trace-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}

	buf.Reset()
	hookCtx.Error = errors.New("deadlock")
	hook.After(ctx, hookCtx)
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("failed requests should log at ERROR: %s", buf.String())
	}
}

func TestInvalidationHook(t *testing.T) {
	var got [][]string
	hook := NewInvalidationHook(func(ctx context.Context, tags []string) {
		got = append(got, tags)
	})
	ctx := context.Background()

	hook.After(ctx, &HookContext{Tags: []string{"orders"}})
	hook.After(ctx, &HookContext{})
	hook.After(ctx, &HookContext{Tags: []string{"users"}, Error: errors.New("x")})

	if !reflect.DeepEqual(got, [][]string{{"orders"}}) {
		t.Errorf("unexpected invalidations: %v", got)
	}
}
