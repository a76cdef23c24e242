package hstreamenv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ResetForTesting resets the singleton extension state so that the next
// call to NewExtension creates a fresh instance. This is exported only
// for use in test packages (package hstreamenv_test).
func ResetForTesting() { resetForTesting() }

// ConfigSnapshot holds a copy of extensionConfig fields for test assertions.
type ConfigSnapshot struct {
	Host             string
	ClusterSize      int
	BaseClientPort   int
	BaseInternalPort int
	StoreAdminPort   int
	BaseDataDir      string
	ArtifactDir      string
	FixtureDir       string
	Runtime          string
	CoordinatorImage string
	NodeImage        string
	SettleDelay      time.Duration
	ReadinessTimeout time.Duration
	TeardownGrace    time.Duration
	StopTimeout      time.Duration
	PortLockDir      string
	RunIndexPath     string

	HasClientFactory bool
	Registerer       prometheus.Registerer
}

// ApplyOptionsForTesting creates a default extensionConfig, applies the given
// options, and returns a ConfigSnapshot of the result. This tests the option
// closures directly without touching the singleton.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultExtensionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		Host:             cfg.Host,
		ClusterSize:      cfg.ClusterSize,
		BaseClientPort:   cfg.BaseClientPort,
		BaseInternalPort: cfg.BaseInternalPort,
		StoreAdminPort:   cfg.StoreAdminPort,
		BaseDataDir:      cfg.BaseDataDir,
		ArtifactDir:      cfg.ArtifactDir,
		FixtureDir:       cfg.FixtureDir,
		Runtime:          cfg.Runtime,
		CoordinatorImage: cfg.CoordinatorImage,
		NodeImage:        cfg.NodeImage,
		SettleDelay:      cfg.SettleDelay,
		ReadinessTimeout: cfg.ReadinessTimeout,
		TeardownGrace:    cfg.TeardownGrace,
		StopTimeout:      cfg.StopTimeout,
		PortLockDir:      cfg.PortLockDir,
		RunIndexPath:     cfg.RunIndexPath,
		HasClientFactory: cfg.clientFactory != nil,
		Registerer:       cfg.registerer,
	}
}

// ValidateDefaultsForTesting reports whether the default configuration
// passes core validation.
func ValidateDefaultsForTesting() error {
	return defaultExtensionConfig().Validate()
}
