package hstreamenv_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giantswarm/hstreamenv"
	"github.com/prometheus/client_golang/prometheus"
)

// requirePanics calls fn and verifies it panics (or not) with the expected message.
func requirePanics(t *testing.T, wantMsg string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if wantMsg == "" {
			if r != nil {
				t.Fatalf("unexpected panic: %v", r)
			}
			return
		}
		if r == nil {
			t.Fatal("expected panic but didn't get one")
		}
		if msg := fmt.Sprint(r); msg != wantMsg {
			t.Fatalf("expected panic message %q, got %q", wantMsg, msg)
		}
	}()
	fn()
}

func TestOptionsPanicOnInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fn       func()
		panicMsg string
	}{
		"host empty":              {fn: func() { hstreamenv.WithHost("") }, panicMsg: "hstreamenv: host must not be empty"},
		"host valid":              {fn: func() { hstreamenv.WithHost("10.0.0.1") }},
		"cluster size zero":       {fn: func() { hstreamenv.WithClusterSize(0) }, panicMsg: "hstreamenv: cluster size must be greater than 0, got 0"},
		"cluster size negative":   {fn: func() { hstreamenv.WithClusterSize(-2) }, panicMsg: "hstreamenv: cluster size must be greater than 0, got -2"},
		"cluster size one":        {fn: func() { hstreamenv.WithClusterSize(1) }},
		"client port zero":        {fn: func() { hstreamenv.WithBaseClientPort(0) }, panicMsg: "hstreamenv: base client port must be between 1 and 65535, got 0"},
		"client port too high":    {fn: func() { hstreamenv.WithBaseClientPort(70000) }, panicMsg: "hstreamenv: base client port must be between 1 and 65535, got 70000"},
		"internal port negative":  {fn: func() { hstreamenv.WithBaseInternalPort(-1) }, panicMsg: "hstreamenv: base internal port must be between 1 and 65535, got -1"},
		"store admin port zero":   {fn: func() { hstreamenv.WithStoreAdminPort(0) }, panicMsg: "hstreamenv: store admin port must be between 1 and 65535, got 0"},
		"store admin port max":    {fn: func() { hstreamenv.WithStoreAdminPort(65535) }},
		"data dir empty":          {fn: func() { hstreamenv.WithBaseDataDir("") }, panicMsg: "hstreamenv: base data directory must not be empty"},
		"artifact dir empty":      {fn: func() { hstreamenv.WithArtifactDir("") }, panicMsg: "hstreamenv: artifact directory must not be empty"},
		"fixture dir empty":       {fn: func() { hstreamenv.WithFixtureDir("") }, panicMsg: "hstreamenv: fixture directory must not be empty"},
		"runtime empty":           {fn: func() { hstreamenv.WithRuntime("") }, panicMsg: "hstreamenv: container runtime must not be empty"},
		"coordinator image empty": {fn: func() { hstreamenv.WithCoordinatorImage("") }, panicMsg: "hstreamenv: coordinator image must not be empty"},
		"node image empty":        {fn: func() { hstreamenv.WithNodeImage("") }, panicMsg: "hstreamenv: node image must not be empty"},
		"settle delay negative":   {fn: func() { hstreamenv.WithSettleDelay(-time.Second) }, panicMsg: "hstreamenv: settle delay must not be negative, got -1s"},
		"settle delay zero":       {fn: func() { hstreamenv.WithSettleDelay(0) }},
		"readiness zero":          {fn: func() { hstreamenv.WithReadinessTimeout(0) }, panicMsg: "hstreamenv: readiness timeout must be greater than 0, got 0s"},
		"teardown grace negative": {fn: func() { hstreamenv.WithTeardownGrace(-time.Millisecond) }, panicMsg: "hstreamenv: teardown grace must not be negative, got -1ms"},
		"teardown grace zero":     {fn: func() { hstreamenv.WithTeardownGrace(0) }},
		"stop timeout zero":       {fn: func() { hstreamenv.WithStopTimeout(0) }, panicMsg: "hstreamenv: stop timeout must be greater than 0, got 0s"},
		"port lock dir empty":     {fn: func() { hstreamenv.WithPortLockDir("") }, panicMsg: "hstreamenv: port lock directory must not be empty"},
		"run index empty":         {fn: func() { hstreamenv.WithRunIndex("") }, panicMsg: "hstreamenv: run index path must not be empty"},
		"registerer nil":          {fn: func() { hstreamenv.WithMetricsRegisterer(nil) }, panicMsg: "hstreamenv: metrics registerer must not be nil"},
		"client factory nil":      {fn: func() { hstreamenv.WithClientFactory(nil) }, panicMsg: "hstreamenv: client factory must not be nil"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			requirePanics(t, tc.panicMsg, tc.fn)
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := hstreamenv.ApplyOptionsForTesting()
	tmp := os.TempDir()

	if cfg.Host != hstreamenv.DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, hstreamenv.DefaultHost)
	}
	if cfg.ClusterSize != hstreamenv.DefaultClusterSize {
		t.Errorf("ClusterSize = %d, want %d", cfg.ClusterSize, hstreamenv.DefaultClusterSize)
	}
	if cfg.BaseClientPort != 6570 || cfg.BaseInternalPort != 65000 || cfg.StoreAdminPort != 6440 {
		t.Errorf("ports = %d/%d/%d", cfg.BaseClientPort, cfg.BaseInternalPort, cfg.StoreAdminPort)
	}
	if want := filepath.Join(tmp, hstreamenv.DefaultBaseDataDirName); cfg.BaseDataDir != want {
		t.Errorf("BaseDataDir = %q, want %q", cfg.BaseDataDir, want)
	}
	if want := filepath.Join(tmp, hstreamenv.DefaultArtifactDirName); cfg.ArtifactDir != want {
		t.Errorf("ArtifactDir = %q, want %q", cfg.ArtifactDir, want)
	}
	if cfg.SettleDelay != 3*time.Second {
		t.Errorf("SettleDelay = %v, want 3s", cfg.SettleDelay)
	}
	if cfg.ReadinessTimeout != 0 || cfg.PortLockDir != "" || cfg.RunIndexPath != "" {
		t.Error("optional features must be disabled by default")
	}
	if cfg.HasClientFactory || cfg.Registerer != nil {
		t.Error("client factory and registerer must be unset by default")
	}
	if err := hstreamenv.ValidateDefaultsForTesting(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	cfg := hstreamenv.ApplyOptionsForTesting(
		hstreamenv.WithHost("10.1.2.3"),
		hstreamenv.WithClusterSize(5),
		hstreamenv.WithBaseClientPort(7000),
		hstreamenv.WithBaseInternalPort(7100),
		hstreamenv.WithStoreAdminPort(7200),
		hstreamenv.WithBaseDataDir("/data"),
		hstreamenv.WithArtifactDir("/logs"),
		hstreamenv.WithFixtureDir("/tls"),
		hstreamenv.WithRuntime("podman"),
		hstreamenv.WithCoordinatorImage("zookeeper:3.9"),
		hstreamenv.WithNodeImage("hstreamdb/hstream:v0.19"),
		hstreamenv.WithSettleDelay(0),
		hstreamenv.WithReadinessTimeout(time.Minute),
		hstreamenv.WithTeardownGrace(time.Second),
		hstreamenv.WithStopTimeout(2*time.Second),
		hstreamenv.WithPortLockDir("/locks"),
		hstreamenv.WithRunIndex("/runs.db"),
		hstreamenv.WithMetricsRegisterer(reg),
		hstreamenv.WithClientFactory(fakeFactory),
	)

	want := hstreamenv.ConfigSnapshot{
		Host:             "10.1.2.3",
		ClusterSize:      5,
		BaseClientPort:   7000,
		BaseInternalPort: 7100,
		StoreAdminPort:   7200,
		BaseDataDir:      "/data",
		ArtifactDir:      "/logs",
		FixtureDir:       "/tls",
		Runtime:          "podman",
		CoordinatorImage: "zookeeper:3.9",
		NodeImage:        "hstreamdb/hstream:v0.19",
		SettleDelay:      0,
		ReadinessTimeout: time.Minute,
		TeardownGrace:    time.Second,
		StopTimeout:      2 * time.Second,
		PortLockDir:      "/locks",
		RunIndexPath:     "/runs.db",
		HasClientFactory: true,
		Registerer:       reg,
	}
	if cfg != want {
		t.Errorf("ApplyOptionsForTesting() = %+v, want %+v", cfg, want)
	}
}

func TestOptionsLastWins(t *testing.T) {
	t.Parallel()

	cfg := hstreamenv.ApplyOptionsForTesting(
		hstreamenv.WithClusterSize(1),
		hstreamenv.WithClusterSize(4),
	)
	if cfg.ClusterSize != 4 {
		t.Errorf("ClusterSize = %d, want 4", cfg.ClusterSize)
	}
}
