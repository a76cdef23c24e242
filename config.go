package hstreamenv

import (
	"os"
	"path/filepath"

	"github.com/giantswarm/hstreamenv/internal/core"
	"github.com/prometheus/client_golang/prometheus"
)

// extensionConfig holds configuration for an Extension. This unexported type
// wraps core.Config via embedding, keeping internal/core types out of the
// public API signature while avoiding field-by-field duplication.
type extensionConfig struct {
	core.Config

	clientFactory core.ClientFactory
	registerer    prometheus.Registerer
}

// defaultExtensionConfig returns an extensionConfig populated with all default
// values. Both NewExtension and test helpers use this to avoid duplicating
// the default field assignments.
func defaultExtensionConfig() extensionConfig {
	tmp := os.TempDir()
	return extensionConfig{Config: core.Config{
		Host:             DefaultHost,
		ClusterSize:      DefaultClusterSize,
		BaseClientPort:   DefaultBaseClientPort,
		BaseInternalPort: DefaultBaseInternalPort,
		StoreAdminPort:   DefaultStoreAdminPort,
		BaseDataDir:      filepath.Join(tmp, DefaultBaseDataDirName),
		ArtifactDir:      filepath.Join(tmp, DefaultArtifactDirName),
		FixtureDir:       filepath.Join(tmp, DefaultFixtureDirName),
		Runtime:          DefaultRuntime,
		CoordinatorImage: DefaultCoordinatorImage,
		NodeImage:        DefaultNodeImage,
		SettleDelay:      DefaultSettleDelay,
		TeardownGrace:    DefaultTeardownGrace,
		StopTimeout:      DefaultStopTimeout,
	}}
}

// toParams returns the parameters for core.NewOrchestrator.
func (c extensionConfig) toParams() core.OrchestratorParams {
	return core.OrchestratorParams{
		Config:        c.Config,
		ClientFactory: c.clientFactory,
		Registerer:    c.registerer,
	}
}
