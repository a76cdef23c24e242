package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// termGracePeriod bounds how long a process gets to exit after SIGTERM
// before it is killed. It is capped at the caller's timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait to report after SIGKILL.
const killDrainTimeout = 10 * time.Second

// waitFor receives from done within timeout. ok is false if the timeout won.
func waitFor(done <-chan error, timeout time.Duration) (ok bool, err error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// terminate sends SIGTERM, schedules SIGKILL after the grace period and
// waits up to timeout for the process to exit. done must carry the result of
// the one cmd.Wait call made for cmd.
//
// The worst case blocks for timeout plus killDrainTimeout.
func terminate(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone; collect the exit status.
		ok, waitErr := waitFor(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out collecting exit status after signal failure", name)
		}
		return signalExitErr(waitErr, name)
	}

	killTimer := time.AfterFunc(min(termGracePeriod, timeout), func() {
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()

	ok, waitErr := waitFor(done, timeout)
	if ok {
		return signalExitErr(waitErr, name)
	}

	_ = cmd.Process.Kill()
	ok, waitErr = waitFor(done, killDrainTimeout)
	if !ok {
		return fmt.Errorf("%s: timed out waiting for exit after SIGKILL", name)
	}
	if err := signalExitErr(waitErr, name); err != nil {
		return fmt.Errorf("%s stop timeout: %w", name, err)
	}
	return nil
}

// signalExitErr treats termination by SIGTERM or SIGKILL as a clean stop and
// wraps anything else with the process name.
func signalExitErr(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if sig := status.Signal(); sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
