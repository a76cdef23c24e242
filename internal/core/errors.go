package core

import (
	"errors"
	"fmt"
)

// Error is an error type backed by a string so sentinels can be constants.
type Error string

func (e Error) Error() string { return string(e) }

// Sentinels matched with errors.Is against the structured errors below.
const (
	ErrProvisioning Error = "cluster provisioning failed"
	ErrBinding      Error = "test context binding failed"
	ErrTeardown     Error = "cluster teardown failed"
)

// ErrSessionClosed is returned when an operation needs a session that has
// already been torn down.
const ErrSessionClosed Error = "session already torn down"

// Roles reported in ProvisioningError besides the three process roles.
const (
	RoleDataDir  = "data-dir"
	RolePortLock = "port-lock"
	RoleSecurity = "security"
	RoleClient   = "client"
	RoleProbe    = "readiness"
)

// ProvisioningError reports which part of a session failed to come up. By
// the time it is returned, every process that had been started is stopped.
type ProvisioningError struct {
	SessionID string
	Role      string // "zk", "hstore", "hserver", "client", ...
	Index     int    // broker index; 0 for other roles
	Err       error
}

func (e *ProvisioningError) Error() string {
	if e.Role == "hserver" {
		return fmt.Sprintf("provision %s-%d: %v", e.Role, e.Index, e.Err)
	}
	return fmt.Sprintf("provision %s: %v", e.Role, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProvisioning) hold.
func (e *ProvisioningError) Is(target error) bool { return target == ErrProvisioning }

// BindingError reports a capability setter that panicked or failed.
type BindingError struct {
	Artifact string // e.g. "endpoint-list", "client"
	Err      error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Artifact, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBinding) hold.
func (e *BindingError) Is(target error) bool { return target == ErrBinding }

// TeardownError reports one failed teardown step for one resource.
type TeardownError struct {
	Step string // "close-client", "capture", "stop", ...
	Node string // node name; empty for session-wide steps
	Err  error
}

func (e *TeardownError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("teardown %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("teardown %s %s: %v", e.Step, e.Node, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTeardown) hold.
func (e *TeardownError) Is(target error) bool { return target == ErrTeardown }

// joinErrors converts typed errors to a single joined error, nil if empty.
func joinErrors[E error](errs []E) error {
	if len(errs) == 0 {
		return nil
	}
	all := make([]error, len(errs))
	for i, e := range errs {
		all[i] = e
	}
	return errors.Join(all...)
}
