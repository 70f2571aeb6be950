package testutil_test

import (
	"context"
	"testing"
	"time"

	"github.com/dan-strohschein/resilientdb/testutil"
)

func TestWithTimeout(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t, 50*time.Millisecond)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline too far: %v", time.Until(deadline))
	}
}

func TestAssertStatements(t *testing.T) {
	c, mock := testutil.NewMockClient(t, nil)
	ctx := context.Background()

	_, err := c.Query(ctx, "SELECT 1")
	testutil.RequireNoError(t, err)

	testutil.AssertStatements(t, mock, "SELECT 1")
}

func TestNewTestClientSkipsWithoutEnv(t *testing.T) {
	t.Setenv(testutil.PostgresEnv, "")

	ran := t.Run("integration", func(t *testing.T) {
		testutil.NewTestClient(t, testutil.PostgresEnv)
		t.Error("expected skip")
	})
	if !ran {
		t.Error("skipped subtest should count as passed")
	}
}
