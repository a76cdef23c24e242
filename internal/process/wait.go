package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

var (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = errors.New("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = errors.New("timeout must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = errors.New("process exited before becoming ready")
)

// dialTimeout is the per-attempt TCP dial timeout used by DialCheck.
const dialTimeout = time.Second

// ReadinessCheck reports whether a process is ready. attempt starts at 1.
// A non-nil error aborts polling.
type ReadinessCheck func(ctx context.Context, attempt int) (ready bool, err error)

// WaitReadyConfig configures WaitReady.
type WaitReadyConfig struct {
	Interval      time.Duration
	Timeout       time.Duration
	Name          string          // for logging and errors, e.g. "hserver-0"
	Address       string          // for logging and errors
	Logger        *slog.Logger    // defaults to slog.Default()
	ProcessExited <-chan struct{} // abort as soon as this is closed
}

// WaitReady polls check until it reports ready, fails, or the timeout expires.
func WaitReady(ctx context.Context, cfg WaitReadyConfig, check ReadinessCheck) error {
	if cfg.Name == "" {
		return errors.New("wait ready: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	attempt := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, cfg.Timeout, true,
		func(pollCtx context.Context) (bool, error) {
			if cfg.ProcessExited != nil {
				select {
				case <-cfg.ProcessExited:
					return false, fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
				default:
				}
			}
			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if ready {
				log.Debug("ready", "name", cfg.Name, "address", cfg.Address, "attempt", attempt)
			}
			return ready, nil
		})
	if err != nil {
		return fmt.Errorf("wait for %s on %s: %w", cfg.Name, cfg.Address, err)
	}
	return nil
}

// DialCheck returns a ReadinessCheck that succeeds once addr accepts TCP
// connections.
func DialCheck(addr string) ReadinessCheck {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return func(ctx context.Context, _ int) (bool, error) {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	}
}
