package process

import (
	"io"
	"time"
)

// Handle is the orchestrator's view of one started process.
//
// The handle owns the process exclusively: only the teardown path stops it.
// Logs must keep working after Stop so that output can be captured once the
// process has exited.
type Handle interface {
	// Name is unique within a session, e.g. "hserver-2".
	Name() string
	Role() Role
	// Index is the broker index, or 0 for the coordinator and storage node.
	Index() int
	// Stop terminates the process. Calling Stop on a process that is not
	// running returns nil.
	Stop(timeout time.Duration) error
	// Logs opens the combined stdout/stderr stream of the process.
	Logs() (io.ReadCloser, error)
	// Close releases the log file handle held for the running process.
	Close()
}

// LogRelocator is implemented by handles whose Logs can be pointed at a copy
// of the log file. Teardown relocates each handle to its captured artifact
// before the session data directory, and the original log with it, is
// removed.
type LogRelocator interface {
	RelocateLogs(path string)
}

// StopAndClose stops h and always closes it afterwards, returning the Stop
// error. A nil handle is a no-op.
func StopAndClose(h Handle, timeout time.Duration) error {
	if h == nil {
		return nil
	}
	defer h.Close()
	return h.Stop(timeout)
}
