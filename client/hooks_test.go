package client

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// TestHook is a simple hook for testing.
type TestHook struct {
	name         string
	beforeCalled bool
	afterCalled  bool
	beforeError  error
	afterError   error
	rewrite      string
}

func (h *TestHook) Name() string {
	return h.name
}

func (h *TestHook) Before(ctx context.Context, hookCtx *HookContext) error {
	h.beforeCalled = true
	if h.rewrite != "" {
		hookCtx.Statements[0] = h.rewrite
	}
	return h.beforeError
}

func (h *TestHook) After(ctx context.Context, hookCtx *HookContext) error {
	h.afterCalled = true
	return h.afterError
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = NewNoopLogger()
	c, err := New("pgsql:host=localhost;dbname=test", &opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// TestHookRegistration verifies hooks can be registered and unregistered.
func TestHookRegistration(t *testing.T) {
	client := newTestClient(t)

	hook1 := &TestHook{name: "hook1"}
	hook2 := &TestHook{name: "hook2"}

	client.RegisterHook(hook1)
	client.RegisterHook(hook2)

	hooks := client.GetHooks()
	if len(hooks) != 2 {
		t.Errorf("expected 2 hooks, got %d", len(hooks))
	}

	if hooks[0] != "hook1" || hooks[1] != "hook2" {
		t.Errorf("unexpected hook order: %v", hooks)
	}

	// Same name replaces in place.
	client.RegisterHook(&TestHook{name: "hook1"})
	if got := client.GetHooks(); !reflect.DeepEqual(got, []string{"hook1", "hook2"}) {
		t.Errorf("unexpected hooks after replace: %v", got)
	}

	if !client.UnregisterHook("hook1") {
		t.Error("expected hook1 to be removed")
	}
	if client.UnregisterHook("hook1") {
		t.Error("expected second removal to report false")
	}
	if got := client.GetHooks(); !reflect.DeepEqual(got, []string{"hook2"}) {
		t.Errorf("unexpected hooks after unregister: %v", got)
	}
}

func TestBeforeHookAborts(t *testing.T) {
	client := newTestClient(t)

	first := &TestHook{name: "first", beforeError: errors.New("denied")}
	second := &TestHook{name: "second"}
	client.RegisterHook(first)
	client.RegisterHook(second)

	hookCtx := client.newHookContext("query", []string{"SELECT 1"}, nil)
	err := client.executeBeforeHooks(context.Background(), hookCtx)

	if err == nil || err.Error() != "denied" {
		t.Fatalf("expected denied, got %v", err)
	}
	if second.beforeCalled {
		t.Error("hooks after an aborting hook must not run")
	}
}

func TestAfterHooksAllRun(t *testing.T) {
	client := newTestClient(t)

	first := &TestHook{name: "first", afterError: errors.New("first failed")}
	second := &TestHook{name: "second", afterError: errors.New("second failed")}
	client.RegisterHook(first)
	client.RegisterHook(second)

	hookCtx := client.newHookContext("query", []string{"SELECT 1"}, nil)
	err := client.finishHooks(context.Background(), hookCtx, &Result{RowCount: 1}, 2, nil)

	if !first.afterCalled || !second.afterCalled {
		t.Error("all After hooks must run")
	}
	if err == nil || err.Error() != "second failed" {
		t.Errorf("expected last error, got %v", err)
	}
	if hookCtx.Attempts != 2 || hookCtx.Result.RowCount != 1 {
		t.Errorf("outcome not recorded: %+v", hookCtx)
	}
}

func TestHookContextTraceID(t *testing.T) {
	client := newTestClient(t)

	a := client.newHookContext("query", []string{"SELECT 1"}, nil)
	b := client.newHookContext("query", []string{"SELECT 1"}, nil)

	if a.TraceID == "" || a.TraceID == b.TraceID {
		t.Errorf("expected unique trace ids, got %q and %q", a.TraceID, b.TraceID)
	}
}

type staticTags map[string][]string

func (s staticTags) MutatingTables(stmt string) []string {
	for prefix, tables := range s {
		if strings.HasPrefix(stmt, prefix) {
			return tables
		}
	}
	return nil
}

func TestCollectTags(t *testing.T) {
	resolver := staticTags{
		"UPDATE orders": {"orders"},
		"INSERT INTO":   {"order_items", "orders"},
	}

	got := collectTags(resolver, []string{
		"UPDATE orders SET x = 1",
		"SELECT * FROM users",
		"INSERT INTO order_items VALUES (1)",
	})

	if !reflect.DeepEqual(got, []string{"orders", "order_items"}) {
		t.Errorf("collectTags = %v", got)
	}
}

func TestFinishHooksSkipsTagsOnError(t *testing.T) {
	opts := DefaultOptions()
	opts.Logger = NewNoopLogger()
	opts.TagResolver = staticTags{"UPDATE": {"orders"}}
	client, err := New("pgsql:host=localhost;dbname=test", &opts)
	if err != nil {
		t.Fatal(err)
	}

	hookCtx := client.newHookContext("mutation", []string{"UPDATE orders SET x = 1"}, nil)
	client.finishHooks(context.Background(), hookCtx, nil, 1, errors.New("failed"))
	if hookCtx.Tags != nil {
		t.Errorf("failed requests must not carry tags, got %v", hookCtx.Tags)
	}

	hookCtx = client.newHookContext("mutation", []string{"UPDATE orders SET x = 1"}, nil)
	client.finishHooks(context.Background(), hookCtx, &Result{}, 1, nil)
	if !reflect.DeepEqual(hookCtx.Tags, []string{"orders"}) {
		t.Errorf("expected tags, got %v", hookCtx.Tags)
	}
}

func TestInferCommandType(t *testing.T) {
	tests := []struct {
		statement string
		expected  string
	}{
		{"SELECT * FROM users", "query"},
		{"  with x as (select 1) select * from x", "query"},
		{"(SELECT 1)", "query"},
		{"INSERT INTO users VALUES (1)", "mutation"},
		{"update users set a = 1", "mutation"},
		{"BEGIN", "transaction"},
		{"START TRANSACTION", "transaction"},
		{"CREATE TABLE t (id int)", "schema"},
		{"NOTIFY jobs", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		if got := inferCommandType(tt.statement); got != tt.expected {
			t.Errorf("inferCommandType(%q) = %s, want %s", tt.statement, got, tt.expected)
		}
	}
}

func BenchmarkHookChain(b *testing.B) {
	opts := DefaultOptions()
	opts.Logger = NewNoopLogger()
	client, err := New("pgsql:host=localhost;dbname=test", &opts)
	if err != nil {
		b.Fatal(err)
	}
	client.RegisterHook(NewMetricsHook())
	client.RegisterHook(NewLoggingHook(NewNoopLogger(), true, true, true))

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hookCtx := client.newHookContext("query", []string{"SELECT 1"}, nil)
		if err := client.executeBeforeHooks(ctx, hookCtx); err != nil {
			b.Fatal(err)
		}
		client.finishHooks(ctx, hookCtx, &Result{}, 1, nil)
	}
}
