package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/hstreamenv/internal/fileutil"
	"github.com/giantswarm/hstreamenv/internal/metrics"
	"github.com/giantswarm/hstreamenv/internal/netutil"
	"github.com/giantswarm/hstreamenv/internal/runindex"
	"github.com/giantswarm/hstreamenv/internal/security"
	"github.com/prometheus/client_golang/prometheus"
)

// bannerWidth is the number of '=' characters on each side of a banner.
const bannerWidth = 30

// OrchestratorParams configures NewOrchestrator. Only Config is required.
type OrchestratorParams struct {
	Config Config

	// Launcher defaults to a ContainerLauncher built from Config.
	Launcher Launcher

	// ClientFactory defaults to DialClient.
	ClientFactory ClientFactory

	// Registerer receives the metrics. nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Orchestrator runs the per-test lifecycle: BeforeEach provisions a session
// and binds it to the test case, AfterEach tears it down.
//
// Initialize, BeforeEach and AfterEach may be called from different
// goroutines, but each session must only be used by one goroutine at a time.
type Orchestrator struct {
	cfg           Config
	boot          *Bootstrapper
	teardown      *TeardownCoordinator
	clientFactory ClientFactory
	registerer    prometheus.Registerer

	// Set by Initialize.
	initMu      sync.Mutex
	initialized bool
	metrics     *metrics.Recorder
	index       *runindex.Index
}

// NewOrchestrator creates an Orchestrator. It performs no I/O; Initialize
// (called implicitly by BeforeEach) prepares directories, metrics and the
// run index.
//
// Panics if the configuration is invalid. Invalid configuration is a
// programmer error that should be caught at construction time.
func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	launcher := p.Launcher
	if launcher == nil {
		launcher = ContainerLauncher{
			Runtime:          p.Config.Runtime,
			CoordinatorImage: p.Config.CoordinatorImage,
			NodeImage:        p.Config.NodeImage,
			Host:             p.Config.Host,
			StoreAdminPort:   p.Config.StoreAdminPort,
		}
	}
	boot, err := NewBootstrapper(p.Config, launcher)
	if err != nil {
		panic(fmt.Sprintf("hstreamenv: %v", err))
	}
	factory := p.ClientFactory
	if factory == nil {
		factory = DialClient
	}
	return &Orchestrator{
		cfg:  p.Config,
		boot: boot,
		teardown: &TeardownCoordinator{
			ArtifactDir: p.Config.ArtifactDir,
			Grace:       p.Config.TeardownGrace,
			StopTimeout: p.Config.StopTimeout,
		},
		clientFactory: factory,
		registerer:    p.Registerer,
	}
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Initialize creates the base directories, registers metrics and opens the
// run index. After a successful call further calls return nil immediately;
// a failed call is retried on the next call.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.initMu.Lock()
	defer o.initMu.Unlock()

	if o.initialized {
		return nil
	}

	for _, dir := range []string{o.cfg.BaseDataDir, o.cfg.ArtifactDir, o.cfg.PortLockDir} {
		if dir == "" {
			continue
		}
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
	}

	rec, err := metrics.New(o.registerer)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	var index *runindex.Index
	if o.cfg.RunIndexPath != "" {
		if err := fileutil.EnsureDirForFile(o.cfg.RunIndexPath); err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		index, err = runindex.Open(ctx, o.cfg.RunIndexPath, Logger())
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
	}

	o.metrics = rec
	o.index = index
	o.teardown.Metrics = rec
	o.teardown.Index = index
	o.initialized = true
	Logger().Debug("orchestrator initialized",
		"cluster_size", o.cfg.ClusterSize,
		"data_dir", o.cfg.BaseDataDir,
		"artifact_dir", o.cfg.ArtifactDir,
	)
	return nil
}

// BeforeEach provisions a session for inv, connects a client and binds the
// session to inv.TestCase. Binding failures are reported in the BindReport
// and do not fail the call. On error no process of the session is left
// running and the error matches ErrProvisioning.
func (o *Orchestrator) BeforeEach(ctx context.Context, inv Invocation) (*Session, BindReport, error) {
	if err := o.Initialize(ctx); err != nil {
		return nil, BindReport{}, err
	}
	begin := time.Now()
	Logger().Info(banner("BEGIN", inv.TestName))

	var lock *netutil.PortRangeLock
	if o.cfg.PortLockDir != "" {
		var err error
		lock, err = netutil.LockPortRange(ctx, o.cfg.PortLockDir, o.cfg.BaseClientPort, Logger())
		if err != nil {
			return nil, BindReport{}, o.provisioningFailed(inv, begin, &ProvisioningError{Role: RolePortLock, Err: err})
		}
	}

	profile := security.Resolve(inv.Tags, o.cfg.FixtureDir)
	if profile.Enabled() {
		if err := security.EnsureFixtures(profile.FixtureDir); err != nil {
			lock.Release()
			return nil, BindReport{}, o.provisioningFailed(inv, begin, &ProvisioningError{Role: RoleSecurity, Err: err})
		}
	}

	s, err := o.boot.Bootstrap(ctx, inv, profile)
	if err != nil {
		lock.Release()
		return nil, BindReport{}, o.provisioningFailed(inv, begin, err)
	}
	s.portLock = lock

	c, err := o.connect(ctx, s)
	if err != nil {
		o.teardown.Teardown(s)
		return nil, BindReport{}, o.provisioningFailed(inv, begin,
			&ProvisioningError{SessionID: s.ID, Role: RoleClient, Err: err})
	}
	s.Client = c
	o.metrics.ObserveBootstrap(time.Since(begin))

	report := Bind(inv.TestCase, s)
	for range report.Errors {
		o.metrics.BindingFailed()
	}
	return s, report, nil
}

func (o *Orchestrator) connect(ctx context.Context, s *Session) (Client, error) {
	tlsCfg, err := security.ClientTLS(s.Profile)
	if err != nil {
		return nil, err
	}
	return o.clientFactory(ctx, s.EndpointList, ClientOptions{
		TLS:     tlsCfg,
		Profile: s.Profile,
		Logger:  s.Logger(),
	})
}

// provisioningFailed records a failed BeforeEach and returns err.
func (o *Orchestrator) provisioningFailed(inv Invocation, begin time.Time, err error) error {
	var perr *ProvisioningError
	role := "unknown"
	id := ""
	if errors.As(err, &perr) {
		role = perr.Role
		id = perr.SessionID
	}
	o.metrics.ProvisioningFailed(role)
	if o.index != nil && id != "" {
		if rerr := o.index.RecordSession(context.Background(), runindex.Session{
			ID:       id,
			TestName: inv.TestName,
			Tags:     inv.Tags,
			Started:  begin,
			Duration: time.Since(begin),
			Outcome:  runindex.OutcomeProvisioningFailed,
		}); rerr != nil {
			Logger().Warn("record failed session", "error", rerr)
		}
	}
	Logger().Error("provisioning failed", "test", inv.TestName, "role", role, "error", err)
	Logger().Info(banner("END", inv.TestName))
	return err
}

// AfterEach tears s down. A nil or already torn down session is a no-op
// apart from the end banner.
func (o *Orchestrator) AfterEach(s *Session) TeardownReport {
	if s == nil {
		return TeardownReport{}
	}
	report := o.teardown.Teardown(s)
	if err := report.Err(); err != nil {
		s.Logger().Warn("teardown finished with errors", "error", err)
	}
	Logger().Info(banner("END", s.Invocation.TestName), "duration", report.Duration)
	return report
}

// Close releases the run index.
func (o *Orchestrator) Close() error {
	o.initMu.Lock()
	defer o.initMu.Unlock()
	err := o.index.Close()
	o.index = nil
	o.teardown.Index = nil
	o.initialized = false
	return err
}

func banner(word, testName string) string {
	bar := strings.Repeat("=", bannerWidth)
	return fmt.Sprintf("%s %s: %s %s", bar, word, testName, bar)
}
