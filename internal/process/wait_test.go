package process

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func TestWaitReady_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     WaitReadyConfig
		wantErr string
	}{
		"empty name": {
			cfg:     WaitReadyConfig{Interval: time.Millisecond, Timeout: time.Second},
			wantErr: "name must not be empty",
		},
		"zero interval": {
			cfg:     WaitReadyConfig{Name: "hserver-0", Timeout: time.Second},
			wantErr: "interval must be positive",
		},
		"negative timeout": {
			cfg:     WaitReadyConfig{Name: "hserver-0", Interval: time.Millisecond, Timeout: -time.Second},
			wantErr: "timeout must be positive",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := WaitReady(context.Background(), tc.cfg, func(context.Context, int) (bool, error) {
				t.Error("check must not run for invalid config")
				return false, nil
			})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestWaitReady_SucceedsAfterAttempts(t *testing.T) {
	t.Parallel()

	var seen int
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "hserver-0",
	}, func(_ context.Context, attempt int) (bool, error) {
		seen = attempt
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if seen != 3 {
		t.Errorf("last attempt = %d, want 3", seen)
	}
}

func TestWaitReady_FatalCheckError(t *testing.T) {
	t.Parallel()

	want := errors.New("bad handshake")
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "hserver-0",
	}, func(context.Context, int) (bool, error) {
		return false, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestWaitReady_ProcessExited(t *testing.T) {
	t.Parallel()

	exited := make(chan struct{})
	close(exited)
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:      time.Millisecond,
		Timeout:       5 * time.Second,
		Name:          "hserver-0",
		ProcessExited: exited,
	}, func(context.Context, int) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrProcessExited) {
		t.Fatalf("error = %v, want ErrProcessExited", err)
	}
}

func TestDialCheck(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()

	ready, err := DialCheck(addr)(context.Background(), 1)
	if err != nil || !ready {
		t.Fatalf("DialCheck on listening port = (%v, %v), want (true, nil)", ready, err)
	}

	_ = l.Close()
	ready, err = DialCheck(addr)(context.Background(), 1)
	if err != nil || ready {
		t.Fatalf("DialCheck on closed port = (%v, %v), want (false, nil)", ready, err)
	}
}
