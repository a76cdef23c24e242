package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/hstreamenv"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration of the CLI. Zero values keep the
// library defaults.
type fileConfig struct {
	Host             string        `yaml:"host"`
	ClusterSize      int           `yaml:"clusterSize"`
	BaseClientPort   int           `yaml:"baseClientPort"`
	BaseInternalPort int           `yaml:"baseInternalPort"`
	StoreAdminPort   int           `yaml:"storeAdminPort"`
	DataDir          string        `yaml:"dataDir"`
	ArtifactDir      string        `yaml:"artifactDir"`
	FixtureDir       string        `yaml:"fixtureDir"`
	Runtime          string        `yaml:"runtime"`
	CoordinatorImage string        `yaml:"coordinatorImage"`
	NodeImage        string        `yaml:"nodeImage"`
	SettleDelay      time.Duration `yaml:"settleDelay"`
	ReadinessTimeout time.Duration `yaml:"readinessTimeout"`
	StopTimeout      time.Duration `yaml:"stopTimeout"`
	PortLockDir      string        `yaml:"portLockDir"`
	RunIndex         string        `yaml:"runIndex"`
	Tags             []string      `yaml:"tags"`
}

// loadConfig reads path, if set, and applies HSTREAMENV_* environment
// overrides on top.
func loadConfig(path string) (fileConfig, error) {
	var c fileConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := c.applyEnvOverrides(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *fileConfig) applyEnvOverrides() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HSTREAMENV_HOST", &c.Host)
	num("HSTREAMENV_CLUSTER_SIZE", &c.ClusterSize)
	num("HSTREAMENV_BASE_CLIENT_PORT", &c.BaseClientPort)
	num("HSTREAMENV_BASE_INTERNAL_PORT", &c.BaseInternalPort)
	num("HSTREAMENV_STORE_ADMIN_PORT", &c.StoreAdminPort)
	str("HSTREAMENV_DATA_DIR", &c.DataDir)
	str("HSTREAMENV_ARTIFACT_DIR", &c.ArtifactDir)
	str("HSTREAMENV_FIXTURE_DIR", &c.FixtureDir)
	str("HSTREAMENV_RUNTIME", &c.Runtime)
	str("HSTREAMENV_COORDINATOR_IMAGE", &c.CoordinatorImage)
	str("HSTREAMENV_NODE_IMAGE", &c.NodeImage)
	dur("HSTREAMENV_SETTLE_DELAY", &c.SettleDelay)
	dur("HSTREAMENV_READINESS_TIMEOUT", &c.ReadinessTimeout)
	dur("HSTREAMENV_STOP_TIMEOUT", &c.StopTimeout)
	str("HSTREAMENV_PORT_LOCK_DIR", &c.PortLockDir)
	str("HSTREAMENV_RUN_INDEX", &c.RunIndex)
	if v, ok := os.LookupEnv("HSTREAMENV_TAGS"); ok {
		c.Tags = splitCSV(v)
	}

	return errors.Join(errs...)
}

// options converts the set fields to extension options. The With* functions
// panic on invalid values, so those are checked here first.
func (c fileConfig) options() ([]hstreamenv.Option, error) {
	if c.ClusterSize < 0 {
		return nil, fmt.Errorf("cluster size must not be negative, got %d", c.ClusterSize)
	}
	for name, port := range map[string]int{
		"base client port":   c.BaseClientPort,
		"base internal port": c.BaseInternalPort,
		"store admin port":   c.StoreAdminPort,
	} {
		if port < 0 || port > 65535 {
			return nil, fmt.Errorf("%s out of range: %d", name, port)
		}
	}
	if c.SettleDelay < 0 || c.ReadinessTimeout < 0 || c.StopTimeout < 0 {
		return nil, errors.New("durations must not be negative")
	}

	var opts []hstreamenv.Option
	add := func(set bool, opt func() hstreamenv.Option) {
		if set {
			opts = append(opts, opt())
		}
	}
	add(c.Host != "", func() hstreamenv.Option { return hstreamenv.WithHost(c.Host) })
	add(c.ClusterSize > 0, func() hstreamenv.Option { return hstreamenv.WithClusterSize(c.ClusterSize) })
	add(c.BaseClientPort > 0, func() hstreamenv.Option { return hstreamenv.WithBaseClientPort(c.BaseClientPort) })
	add(c.BaseInternalPort > 0, func() hstreamenv.Option { return hstreamenv.WithBaseInternalPort(c.BaseInternalPort) })
	add(c.StoreAdminPort > 0, func() hstreamenv.Option { return hstreamenv.WithStoreAdminPort(c.StoreAdminPort) })
	add(c.DataDir != "", func() hstreamenv.Option { return hstreamenv.WithBaseDataDir(c.DataDir) })
	add(c.ArtifactDir != "", func() hstreamenv.Option { return hstreamenv.WithArtifactDir(c.ArtifactDir) })
	add(c.FixtureDir != "", func() hstreamenv.Option { return hstreamenv.WithFixtureDir(c.FixtureDir) })
	add(c.Runtime != "", func() hstreamenv.Option { return hstreamenv.WithRuntime(c.Runtime) })
	add(c.CoordinatorImage != "", func() hstreamenv.Option { return hstreamenv.WithCoordinatorImage(c.CoordinatorImage) })
	add(c.NodeImage != "", func() hstreamenv.Option { return hstreamenv.WithNodeImage(c.NodeImage) })
	add(c.SettleDelay > 0, func() hstreamenv.Option { return hstreamenv.WithSettleDelay(c.SettleDelay) })
	add(c.ReadinessTimeout > 0, func() hstreamenv.Option { return hstreamenv.WithReadinessTimeout(c.ReadinessTimeout) })
	add(c.StopTimeout > 0, func() hstreamenv.Option { return hstreamenv.WithStopTimeout(c.StopTimeout) })
	add(c.PortLockDir != "", func() hstreamenv.Option { return hstreamenv.WithPortLockDir(c.PortLockDir) })
	add(c.RunIndex != "", func() hstreamenv.Option { return hstreamenv.WithRunIndex(c.RunIndex) })
	return opts, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
