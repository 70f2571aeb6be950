package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
)

func TestDetectConnectionDrop(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"message", errors.New("write: broken pipe"), true},
		{"pgx closed", errors.New("conn closed"), true},
		{"server error", errors.New("permission denied for table t"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectConnectionDrop(tt.err); got != tt.want {
				t.Errorf("detectConnectionDrop(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
