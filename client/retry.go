package client

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// Retry defaults, overridable through <PREFIX>_LITE_RETRY_COUNT,
// <PREFIX>_MAIN_RETRY_COUNT and <PREFIX>_RETRY_TIMEOUT.
const (
	DefaultLiteRetryCount = 1
	DefaultMainRetryCount = 2
	DefaultRetryTimeout   = 100 * time.Millisecond
)

// RetryPolicy is the per-call retry budget.
type RetryPolicy struct {
	LiteRetries int
	MainRetries int
	Delay       time.Duration
}

// Budget returns the number of additional attempts allowed for class.
func (p RetryPolicy) Budget(class dialect.RetryClass) int {
	switch class {
	case dialect.Lite:
		return p.LiteRetries
	case dialect.Main:
		return p.MainRetries
	default:
		return 0
	}
}

// LoadRetryPolicy reads the retry environment for prefix. Invalid values
// fall back to defaults and are reported through logger.
func LoadRetryPolicy(prefix string, logger Logger) RetryPolicy {
	if prefix == "" {
		prefix = "DB"
	}
	if logger == nil {
		logger = NewNoopLogger()
	}

	return RetryPolicy{
		LiteRetries: envCount(prefix+"_LITE_RETRY_COUNT", DefaultLiteRetryCount, logger),
		MainRetries: envCount(prefix+"_MAIN_RETRY_COUNT", DefaultMainRetryCount, logger),
		Delay:       envDelay(prefix+"_RETRY_TIMEOUT", DefaultRetryTimeout, logger),
	}
}

func envCount(key string, def int, logger Logger) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		logger.Warn("invalid retry count, using default", String("variable", key), String("value", raw), Int("default", def))
		return def
	}
	return n
}

// envDelay accepts a Go duration ("250ms") or a bare integer in microseconds.
func envDelay(key string, def time.Duration, logger Logger) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if us, err := strconv.ParseInt(raw, 10, 64); err == nil && us >= 0 {
		return time.Duration(us) * time.Microsecond
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	logger.Warn("invalid retry timeout, using default", String("variable", key), String("value", raw), Duration("default", def))
	return def
}

// retry runs op until it succeeds, fails with a non-retryable error or the
// budget of its error class is spent. Lite and main budgets are counted
// independently. It returns the number of attempts made and the class of
// the last error. When ctx ends during the backoff the driver error is
// joined with the context error.
func (c *Client) retry(ctx context.Context, op func(context.Context) error) (int, dialect.RetryClass, error) {
	policy := LoadRetryPolicy(c.opts.RetryEnvPrefix, c.logger)
	used := map[dialect.RetryClass]int{}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempt, dialect.NoRetry, nil
		}

		class := c.dialect.Classify(err)
		if class == dialect.NoRetry || used[class] >= policy.Budget(class) {
			return attempt, class, err
		}
		used[class]++

		c.logger.Warn("retrying statement",
			String("class", class.String()),
			Int("attempt", attempt),
			Duration("delay", policy.Delay),
			Error("error", err))

		if sleepErr := sleepContext(ctx, policy.Delay); sleepErr != nil {
			return attempt, class, errors.Join(err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
