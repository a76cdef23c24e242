package core

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the configuration of an Orchestrator. All fields are immutable
// after NewOrchestrator.
type Config struct {
	// Host is the address every node binds to and advertises.
	Host string

	// ClusterSize is the number of brokers per session.
	ClusterSize int

	// BaseClientPort and BaseInternalPort are the ports of broker 0; broker i
	// uses base+i.
	BaseClientPort   int
	BaseInternalPort int

	// StoreAdminPort is the admin port of the storage node.
	StoreAdminPort int

	// BaseDataDir holds one data directory per session, named after the
	// correlation id.
	BaseDataDir string

	// ArtifactDir receives captured logs under <test name>/<correlation id>/.
	ArtifactDir string

	// FixtureDir holds TLS key material. It is populated on demand and mounted
	// into every node when a test asks for transport security.
	FixtureDir string

	// Runtime is the docker-compatible CLI used to launch nodes.
	Runtime string

	// CoordinatorImage runs ZooKeeper; NodeImage runs both the storage node
	// and the brokers.
	CoordinatorImage string
	NodeImage        string

	// SettleDelay is slept after the last broker starts. It is a tuning
	// parameter, not a readiness guarantee.
	SettleDelay time.Duration

	// ReadinessTimeout, when positive, additionally probes every broker
	// client port after the settle delay. 0 disables the probe.
	ReadinessTimeout time.Duration

	// TeardownGrace is slept before teardown starts so in-flight log output
	// reaches the log files.
	TeardownGrace time.Duration

	// StopTimeout bounds the SIGTERM/SIGKILL sequence of each process.
	StopTimeout time.Duration

	// PortLockDir, when set, holds cross-process lock files that serialize
	// sessions sharing the same port range.
	PortLockDir string

	// RunIndexPath, when set, is a SQLite file recording sessions and
	// artifacts.
	RunIndexPath string
}

// Validate checks all Config invariants and returns every violation found,
// joined with errors.Join.
func (c Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.ClusterSize < 1 {
		errs = append(errs, fmt.Errorf("cluster size must be at least 1, got %d", c.ClusterSize))
	}
	if c.BaseClientPort <= 0 {
		errs = append(errs, fmt.Errorf("base client port must be positive, got %d", c.BaseClientPort))
	}
	if c.BaseInternalPort <= 0 {
		errs = append(errs, fmt.Errorf("base internal port must be positive, got %d", c.BaseInternalPort))
	}
	if c.ClusterSize > 0 && c.BaseClientPort+c.ClusterSize-1 > 65535 {
		errs = append(errs, fmt.Errorf("base client port %d leaves no room for %d brokers", c.BaseClientPort, c.ClusterSize))
	}
	if c.ClusterSize > 0 && c.BaseInternalPort+c.ClusterSize-1 > 65535 {
		errs = append(errs, fmt.Errorf("base internal port %d leaves no room for %d brokers", c.BaseInternalPort, c.ClusterSize))
	}
	if c.StoreAdminPort <= 0 || c.StoreAdminPort > 65535 {
		errs = append(errs, fmt.Errorf("store admin port out of range: %d", c.StoreAdminPort))
	}
	if c.BaseDataDir == "" {
		errs = append(errs, errors.New("base data directory must not be empty"))
	}
	if c.ArtifactDir == "" {
		errs = append(errs, errors.New("artifact directory must not be empty"))
	}
	if c.Runtime == "" {
		errs = append(errs, errors.New("container runtime must not be empty"))
	}
	if c.CoordinatorImage == "" {
		errs = append(errs, errors.New("coordinator image must not be empty"))
	}
	if c.NodeImage == "" {
		errs = append(errs, errors.New("node image must not be empty"))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("settle delay must not be negative, got %s", c.SettleDelay))
	}
	if c.ReadinessTimeout < 0 {
		errs = append(errs, fmt.Errorf("readiness timeout must not be negative, got %s", c.ReadinessTimeout))
	}
	if c.TeardownGrace < 0 {
		errs = append(errs, fmt.Errorf("teardown grace must not be negative, got %s", c.TeardownGrace))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}

	return errors.Join(errs...)
}
