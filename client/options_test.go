package client

import (
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.ArrayResults {
		t.Error("expected ArrayResults=true")
	}

	if !opts.NullsToString {
		t.Error("expected NullsToString=true")
	}

	if len(opts.Schemas) != 1 || opts.Schemas[0] != "public" {
		t.Errorf("expected Schemas=[public], got %v", opts.Schemas)
	}

	if opts.SQLMode != DefaultSQLMode {
		t.Errorf("expected SQLMode=%s, got %s", DefaultSQLMode, opts.SQLMode)
	}

	if opts.MaxParallelConnects != 10 {
		t.Errorf("expected MaxParallelConnects=10, got %d", opts.MaxParallelConnects)
	}

	if opts.TransactionalMode || opts.EmulatePrepares || opts.DebugMode {
		t.Error("expected transactional mode, emulation and debug off")
	}
}

func TestWithDefaults(t *testing.T) {
	opts := ClientOptions{MaxParallelConnects: -1}.withDefaults()

	if opts.SessionVarPrefix != "app" {
		t.Errorf("expected SessionVarPrefix=app, got %s", opts.SessionVarPrefix)
	}

	if opts.RetryEnvPrefix != "DB" {
		t.Errorf("expected RetryEnvPrefix=DB, got %s", opts.RetryEnvPrefix)
	}

	if opts.MaxParallelConnects != 10 {
		t.Errorf("expected MaxParallelConnects=10, got %d", opts.MaxParallelConnects)
	}

	if opts.Dialer == nil {
		t.Error("expected default dialer")
	}

	// Zero-value flags stay as given.
	if opts.ArrayResults || opts.NullsToString {
		t.Error("withDefaults must not turn on boolean options")
	}
}
