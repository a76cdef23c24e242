package hstreamenv

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("hstreamenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonNegative panics if v < 0 with a descriptive message.
func requireNonNegative(name string, v time.Duration) {
	if v < 0 {
		panic(fmt.Sprintf("hstreamenv: %s must not be negative, got %v", name, v))
	}
}

// requirePort panics if v is not a valid TCP port.
func requirePort(name string, v int) {
	if v <= 0 || v > 65535 {
		panic(fmt.Sprintf("hstreamenv: %s must be between 1 and 65535, got %d", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("hstreamenv: %s must not be empty", name))
	}
}

// Option configures an Extension during construction via NewExtension.
//
// With* functions panic on invalid input. Option values are typically
// constants, so an invalid value is a programmer error and fails at
// construction time, the way [regexp.MustCompile] does.
type Option func(*extensionConfig)

// WithHost sets the address every node binds to and advertises.
//
// Default: "127.0.0.1".
//
// Panics if host is empty.
func WithHost(host string) Option {
	requireNonEmpty("host", host)
	return func(c *extensionConfig) {
		c.Host = host
	}
}

// WithClusterSize sets the number of brokers per session.
//
// Default: 3.
//
// Panics if n <= 0.
func WithClusterSize(n int) Option {
	requirePositive("cluster size", n)
	return func(c *extensionConfig) {
		c.ClusterSize = n
	}
}

// WithBaseClientPort sets the client port of broker 0. Broker i listens on
// port + i.
//
// Default: 6570.
//
// Panics if port is not a valid TCP port.
func WithBaseClientPort(port int) Option {
	requirePort("base client port", port)
	return func(c *extensionConfig) {
		c.BaseClientPort = port
	}
}

// WithBaseInternalPort sets the internal port of broker 0. Broker i uses
// port + i.
//
// Default: 65000.
//
// Panics if port is not a valid TCP port.
func WithBaseInternalPort(port int) Option {
	requirePort("base internal port", port)
	return func(c *extensionConfig) {
		c.BaseInternalPort = port
	}
}

// WithStoreAdminPort sets the admin port of the storage node.
//
// Default: 6440.
//
// Panics if port is not a valid TCP port.
func WithStoreAdminPort(port int) Option {
	requirePort("store admin port", port)
	return func(c *extensionConfig) {
		c.StoreAdminPort = port
	}
}

// WithBaseDataDir sets the directory session data directories are created
// in. Each session gets a subdirectory named after its correlation id, which
// is removed at teardown.
//
// Default: filepath.Join(os.TempDir(), "hstreamenv").
//
// Panics if dir is empty.
func WithBaseDataDir(dir string) Option {
	requireNonEmpty("base data directory", dir)
	return func(c *extensionConfig) {
		c.BaseDataDir = dir
	}
}

// WithArtifactDir sets the directory node logs are captured into, under
// <test name>/<correlation id>/<node>.log.
//
// Default: filepath.Join(os.TempDir(), "hstreamenv-logs").
//
// Panics if dir is empty.
func WithArtifactDir(dir string) Option {
	requireNonEmpty("artifact directory", dir)
	return func(c *extensionConfig) {
		c.ArtifactDir = dir
	}
}

// WithFixtureDir sets the directory TLS key material is generated into and
// mounted from. Existing material is reused if it is complete.
//
// Default: filepath.Join(os.TempDir(), "hstreamenv-security").
//
// Panics if dir is empty.
func WithFixtureDir(dir string) Option {
	requireNonEmpty("fixture directory", dir)
	return func(c *extensionConfig) {
		c.FixtureDir = dir
	}
}

// WithRuntime sets the docker-compatible CLI used to launch nodes, e.g.
// "podman".
//
// Default: "docker".
//
// Panics if bin is empty.
func WithRuntime(bin string) Option {
	requireNonEmpty("container runtime", bin)
	return func(c *extensionConfig) {
		c.Runtime = bin
	}
}

// WithCoordinatorImage sets the ZooKeeper image.
// Panics if image is empty.
func WithCoordinatorImage(image string) Option {
	requireNonEmpty("coordinator image", image)
	return func(c *extensionConfig) {
		c.CoordinatorImage = image
	}
}

// WithNodeImage sets the image running the storage node and the brokers.
// Panics if image is empty.
func WithNodeImage(image string) Option {
	requireNonEmpty("node image", image)
	return func(c *extensionConfig) {
		c.NodeImage = image
	}
}

// WithSettleDelay sets the delay slept after the last broker has started.
// Raise it on slow machines; 0 skips the delay, which is only safe together
// with WithReadinessTimeout.
//
// Default: 3 seconds.
//
// Panics if d < 0.
func WithSettleDelay(d time.Duration) Option {
	requireNonNegative("settle delay", d)
	return func(c *extensionConfig) {
		c.SettleDelay = d
	}
}

// WithReadinessTimeout enables a readiness probe after the settle delay: every
// broker client port must accept connections within d or provisioning fails.
//
// Default: disabled.
//
// Panics if d <= 0.
func WithReadinessTimeout(d time.Duration) Option {
	requirePositive("readiness timeout", d)
	return func(c *extensionConfig) {
		c.ReadinessTimeout = d
	}
}

// WithTeardownGrace sets the delay slept before teardown so nodes can flush
// their last log lines.
//
// Default: 100 milliseconds.
//
// Panics if d < 0.
func WithTeardownGrace(d time.Duration) Option {
	requireNonNegative("teardown grace", d)
	return func(c *extensionConfig) {
		c.TeardownGrace = d
	}
}

// WithStopTimeout sets how long a node gets to exit after SIGTERM before it
// is killed.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *extensionConfig) {
		c.StopTimeout = d
	}
}

// WithPortLockDir serializes sessions across processes: each session holds a
// file lock on its port range in dir from BeforeEach until AfterEach. Use it
// when several test binaries run concurrently on one host, as `go test ./...`
// does.
//
// Default: disabled.
//
// Panics if dir is empty.
func WithPortLockDir(dir string) Option {
	requireNonEmpty("port lock directory", dir)
	return func(c *extensionConfig) {
		c.PortLockDir = dir
	}
}

// WithRunIndex records every session and its captured logs in a SQLite
// database at path, so the logs of a failed test can be found by test name.
//
// Default: disabled.
//
// Panics if path is empty.
func WithRunIndex(path string) Option {
	requireNonEmpty("run index path", path)
	return func(c *extensionConfig) {
		c.RunIndexPath = path
	}
}

// WithMetricsRegisterer registers the extension's metrics on reg. A
// collector that is already registered is reused.
//
// Default: metrics are recorded but not registered.
//
// Panics if reg is nil.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	if reg == nil {
		panic("hstreamenv: metrics registerer must not be nil")
	}
	return func(c *extensionConfig) {
		c.registerer = reg
	}
}

// WithClientFactory replaces the gRPC client handed to test cases.
//
// Default: a gRPC connection balancing over every broker, checked with the
// standard health service.
//
// Panics if f is nil.
func WithClientFactory(f ClientFactory) Option {
	if f == nil {
		panic("hstreamenv: client factory must not be nil")
	}
	return func(c *extensionConfig) {
		c.clientFactory = f
	}
}
