package hstreamenv

import "github.com/giantswarm/hstreamenv/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrProvisioning is matched by every error returned from BeforeEach.
	// The concrete error is a *ProvisioningError naming the failed role.
	ErrProvisioning = core.ErrProvisioning

	// ErrBinding is matched by the errors in BindReport.Errors.
	ErrBinding = core.ErrBinding

	// ErrTeardown is matched by the errors in TeardownReport.Errors.
	ErrTeardown = core.ErrTeardown

	// ErrSessionClosed is returned when a session is used after AfterEach.
	ErrSessionClosed = core.ErrSessionClosed
)

// Structured errors. Use errors.As to inspect them.
type (
	// ProvisioningError reports which node or step failed during
	// BeforeEach.
	ProvisioningError = core.ProvisioningError

	// BindingError reports an artifact whose setter panicked.
	BindingError = core.BindingError

	// TeardownError reports one failed teardown step.
	TeardownError = core.TeardownError
)

// Roles reported by ProvisioningError besides the node roles "zk", "hstore"
// and "hserver".
const (
	RoleDataDir  = core.RoleDataDir
	RolePortLock = core.RolePortLock
	RoleSecurity = core.RoleSecurity
	RoleClient   = core.RoleClient
	RoleProbe    = core.RoleProbe
)
