package hstreamenv

import "time"

// Default configuration values for NewExtension.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them (e.g.,
// DefaultBaseClientPort + 100).
const (
	// DefaultHost is the address every node binds to and advertises.
	DefaultHost = "127.0.0.1"

	// DefaultClusterSize is the number of brokers per session.
	DefaultClusterSize = 3

	// DefaultBaseClientPort is the client port of broker 0. Broker i uses
	// DefaultBaseClientPort + i.
	DefaultBaseClientPort = 6570

	// DefaultBaseInternalPort is the internal (gossip) port of broker 0.
	// Broker i uses DefaultBaseInternalPort + i.
	DefaultBaseInternalPort = 65000

	// DefaultStoreAdminPort is the admin port of the storage node.
	DefaultStoreAdminPort = 6440

	// DefaultRuntime is the container CLI used to launch nodes.
	DefaultRuntime = "docker"

	// DefaultCoordinatorImage runs the ZooKeeper node.
	DefaultCoordinatorImage = "zookeeper:3.8"

	// DefaultNodeImage runs both the storage node and the brokers.
	DefaultNodeImage = "hstreamdb/hstream:latest"

	// DefaultBaseDataDirName is the directory name under the system temp
	// directory where session data directories are created. The full path
	// is computed as filepath.Join(os.TempDir(), DefaultBaseDataDirName).
	DefaultBaseDataDirName = "hstreamenv"

	// DefaultArtifactDirName is the directory name under the system temp
	// directory where node logs are captured.
	DefaultArtifactDirName = "hstreamenv-logs"

	// DefaultFixtureDirName is the directory name under the system temp
	// directory where TLS key material is generated.
	DefaultFixtureDirName = "hstreamenv-security"

	// DefaultSettleDelay is slept after the last broker has been started,
	// giving the cluster time to form before the client connects. It is a
	// tuning parameter, not a readiness guarantee.
	DefaultSettleDelay = 3 * time.Second

	// DefaultTeardownGrace is slept before teardown so the nodes flush their
	// last log lines.
	DefaultTeardownGrace = 100 * time.Millisecond

	// DefaultStopTimeout is the maximum time a node gets to exit after
	// SIGTERM before it is killed.
	DefaultStopTimeout = 10 * time.Second
)
