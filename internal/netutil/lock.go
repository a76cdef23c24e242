package netutil

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is how often LockPortRange retries a held lock.
const lockRetryInterval = 50 * time.Millisecond

// PortRangeLock is an exclusive, host-wide claim on the port range starting
// at a base client port.
type PortRangeLock struct {
	fl  *flock.Flock
	log *slog.Logger
}

// LockPortRange blocks until it holds the lock file for basePort in dir or
// ctx is done. The lock file is left on disk after release; deleting it could
// invalidate a lock another process has just taken.
func LockPortRange(ctx context.Context, dir string, basePort int, logger *slog.Logger) (*PortRangeLock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path := filepath.Join(dir, "hstreamenv-ports-"+strconv.Itoa(basePort)+".lock")
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock port range %d: %w", basePort, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("lock port range %d: %w", basePort, ctx.Err())
		}
		return nil, fmt.Errorf("lock port range %d: lock not acquired", basePort)
	}
	logger.Debug("port range locked", "base_port", basePort, "path", path)
	return &PortRangeLock{fl: fl, log: logger}, nil
}

// Release gives the range back. Safe to call on a nil lock and more than once.
func (l *PortRangeLock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Close(); err != nil {
		l.log.Debug("release port range lock", "path", l.fl.Path(), "error", err)
	}
	l.fl = nil
}
