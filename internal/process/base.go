package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

// ErrAlreadyStarted is returned when Start is called on a running process.
var ErrAlreadyStarted = errors.New("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
var ErrNilCmd = errors.New("cmd must not be nil")

// ErrEmptyLogDir is returned when SetupAndStart is called without a log directory.
var ErrEmptyLogDir = errors.New("log directory must not be empty")

// DefaultStopTimeout is used by Close when it has to stop a process that
// was never stopped explicitly.
const DefaultStopTimeout = 10 * time.Second

// BaseProcess implements the parts of Handle shared by every role: starting
// an exec.Cmd with its output redirected to a log file, the SIGTERM/SIGKILL
// stop sequence, and log access after exit.
//
// BaseProcess is not safe for concurrent use. The orchestrator drives each
// session from a single goroutine.
type BaseProcess struct {
	cmd      *exec.Cmd
	waitDone <-chan error    // result of the single cmd.Wait call
	exited   <-chan struct{} // closed once the process has exited
	logFile  LogFile

	name  string
	role  Role
	index int
	log   *slog.Logger
}

// NewBaseProcess returns a BaseProcess for the given role and index. The name
// is derived from both, e.g. "hserver-1"; coordinator and storage nodes are
// named after their role only. If logger is nil, slog.Default() is used.
// Panics if role is not a known Role.
func NewBaseProcess(role Role, index int, logger *slog.Logger) BaseProcess {
	if !role.IsValid() {
		panic(fmt.Sprintf("hstreamenv: unknown process role %d", int(role)))
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := role.String()
	if role == RoleBroker {
		name = fmt.Sprintf("%s-%d", name, index)
	}
	return BaseProcess{
		name:  name,
		role:  role,
		index: index,
		log:   logger.With("process", name),
	}
}

// Name returns the process name.
func (b *BaseProcess) Name() string { return b.name }

// Role returns the process role.
func (b *BaseProcess) Role() Role { return b.role }

// Index returns the broker index (0 for non-broker roles).
func (b *BaseProcess) Index() int { return b.index }

// Logger returns the process-scoped logger.
func (b *BaseProcess) Logger() *slog.Logger { return b.log }

// IsStarted reports whether the process has been started and not yet stopped.
func (b *BaseProcess) IsStarted() bool { return b.cmd != nil }

// Exited returns a channel closed when the process exits, or nil when the
// process is not running.
func (b *BaseProcess) Exited() <-chan struct{} { return b.exited }

// LogPath returns the path of the process log file.
func (b *BaseProcess) LogPath() string { return b.logFile.Path() }

// Logs opens the combined output of the process for reading.
func (b *BaseProcess) Logs() (io.ReadCloser, error) {
	return b.logFile.Open()
}

// RelocateLogs points Logs at path, a copy of the log file.
func (b *BaseProcess) RelocateLogs(path string) { b.logFile.Relocate(path) }

// SetupAndStart creates the log file in logDir, attaches it to cmd and
// starts cmd. A single goroutine waits on the process so Stop never calls
// cmd.Wait twice.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, logDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if logDir == "" {
		return ErrEmptyLogDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	lf, err := CreateLogFile(logDir, b.name)
	if err != nil {
		return err
	}
	cmd.Stdout = lf.Writer()
	cmd.Stderr = lf.Writer()
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		lf.Close()
		return fmt.Errorf("start %s: %w", b.name, err)
	}
	b.cmd = cmd
	b.logFile = lf

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	b.log.Debug("process started", "pid", cmd.Process.Pid, "log", lf.Path())
	return nil
}

// Stop terminates the process, escalating from SIGTERM to SIGKILL. After Stop
// returns the process is considered stopped whether or not the signal
// sequence succeeded. Stop on a process that is not running returns nil.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.reset()
		return nil
	}
	pid := b.cmd.Process.Pid
	err := terminate(b.cmd, b.waitDone, timeout, b.name)
	if err != nil {
		b.log.Warn("process stop failed; process may be orphaned", "pid", pid, "error", err)
	} else {
		b.log.Debug("process stopped", "pid", pid)
	}
	b.reset()
	return err
}

func (b *BaseProcess) reset() {
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
}

// Close closes the log write handle, stopping the process first if it is
// still running. The log file itself stays on disk for Logs.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process closed without Stop; stopping automatically")
		if err := b.Stop(DefaultStopTimeout); err != nil {
			b.log.Warn("auto-stop during close failed", "error", err)
		}
	}
	b.logFile.Close()
}
