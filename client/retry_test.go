package client

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dan-strohschein/resilientdb/dialect"
)

func TestLoadRetryPolicyDefaults(t *testing.T) {
	t.Setenv("DB_LITE_RETRY_COUNT", "")
	t.Setenv("DB_MAIN_RETRY_COUNT", "")
	t.Setenv("DB_RETRY_TIMEOUT", "")

	p := LoadRetryPolicy("", nil)

	if p.LiteRetries != DefaultLiteRetryCount || p.MainRetries != DefaultMainRetryCount || p.Delay != DefaultRetryTimeout {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestLoadRetryPolicyEnv(t *testing.T) {
	tests := []struct {
		name    string
		lite    string
		main    string
		timeout string
		want    RetryPolicy
		warns   bool
	}{
		{"micros", "3", "5", "2500", RetryPolicy{3, 5, 2500 * time.Microsecond}, false},
		{"duration", "0", "1", "250ms", RetryPolicy{0, 1, 250 * time.Millisecond}, false},
		{"zero delay", "1", "2", "0", RetryPolicy{1, 2, 0}, false},
		{"invalid", "many", "-1", "soon", RetryPolicy{DefaultLiteRetryCount, DefaultMainRetryCount, DefaultRetryTimeout}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_LITE_RETRY_COUNT", tt.lite)
			t.Setenv("APP_MAIN_RETRY_COUNT", tt.main)
			t.Setenv("APP_RETRY_TIMEOUT", tt.timeout)

			var buf bytes.Buffer
			p := LoadRetryPolicy("APP", NewLogger("WARN", &buf))

			if p != tt.want {
				t.Errorf("LoadRetryPolicy = %+v, want %+v", p, tt.want)
			}
			if warned := strings.Contains(buf.String(), "using default"); warned != tt.warns {
				t.Errorf("warned = %v, want %v (log: %s)", warned, tt.warns, buf.String())
			}
		})
	}
}

func TestRetryPolicyBudget(t *testing.T) {
	p := RetryPolicy{LiteRetries: 1, MainRetries: 2}

	if p.Budget(dialect.Lite) != 1 || p.Budget(dialect.Main) != 2 || p.Budget(dialect.NoRetry) != 0 {
		t.Errorf("unexpected budgets for %+v", p)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep should stop on cancellation")
	}

	if err := sleepContext(ctx, 0); err != context.Canceled {
		t.Errorf("expected context.Canceled for zero delay, got %v", err)
	}
}
