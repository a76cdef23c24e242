package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/hstreamenv/internal/fileutil"
	"github.com/giantswarm/hstreamenv/internal/netutil"
	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/security"
	"github.com/giantswarm/hstreamenv/internal/zookeeper"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// probeInterval is the pause between TCP dials of the optional readiness
// probe.
const probeInterval = 100 * time.Millisecond

// Bootstrapper provisions sessions: a coordinator, a storage node and
// ClusterSize brokers, started strictly in that order.
type Bootstrapper struct {
	cfg      Config
	launcher Launcher
	alloc    *netutil.Allocator

	// Replaced in tests.
	sleep func(time.Duration)
	newID func() string
	now   func() time.Time
}

// NewBootstrapper validates cfg and returns a Bootstrapper that starts nodes
// through launcher.
func NewBootstrapper(cfg Config, launcher Launcher) (*Bootstrapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if launcher == nil {
		return nil, errors.New("launcher must not be nil")
	}
	alloc, err := netutil.NewAllocator(cfg.Host, cfg.BaseClientPort, cfg.BaseInternalPort, cfg.ClusterSize)
	if err != nil {
		return nil, err
	}
	return &Bootstrapper{
		cfg:      cfg,
		launcher: launcher,
		alloc:    alloc,
		sleep:    time.Sleep,
		newID:    uuid.NewString,
		now:      time.Now,
	}, nil
}

// Allocator returns the broker address allocator.
func (b *Bootstrapper) Allocator() *netutil.Allocator { return b.alloc }

// Bootstrap starts a new session for inv. On failure every process started
// so far is stopped in reverse start order, the data directory is removed and
// a *ProvisioningError is returned.
//
// ctx is checked before each process start; processes themselves run under a
// separate context that ends at teardown.
func (b *Bootstrapper) Bootstrap(ctx context.Context, inv Invocation, profile security.Profile) (_ *Session, retErr error) {
	id := b.newID()
	log := Logger().With("session", id, "test", inv.TestName)
	s := &Session{
		ID:         id,
		Invocation: inv,
		Started:    b.now(),
		DataDir:    filepath.Join(b.cfg.BaseDataDir, id),
		Profile:    profile,
		log:        log,
	}

	defer func() {
		if retErr != nil {
			var perr *ProvisioningError
			if errors.As(retErr, &perr) {
				perr.SessionID = id
			}
			log.Warn("provisioning failed, unwinding", "error", retErr)
			b.unwind(s)
		}
	}()

	if err := fileutil.EnsureDir(s.DataDir); err != nil {
		return nil, &ProvisioningError{Role: RoleDataDir, Err: err}
	}

	// Background-derived so nodes outlive the BeforeEach call.
	procCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	base := NodeSpec{SessionID: id, DataDir: s.DataDir, Profile: profile, Logger: log}

	if err := ctx.Err(); err != nil {
		return nil, &ProvisioningError{Role: process.RoleCoordinator.String(), Err: err}
	}
	coord, err := b.launcher.StartCoordinator(procCtx, base)
	if err != nil {
		return nil, &ProvisioningError{Role: process.RoleCoordinator.String(), Err: err}
	}
	s.Coordinator = coord
	log.Debug("coordinator started", "host", b.cfg.Host)

	if err := ctx.Err(); err != nil {
		return nil, &ProvisioningError{Role: process.RoleStorage.String(), Err: err}
	}
	storage, err := b.launcher.StartStorage(procCtx, base)
	if err != nil {
		return nil, &ProvisioningError{Role: process.RoleStorage.String(), Err: err}
	}
	s.Storage = storage
	log.Debug("storage started", "host", b.cfg.Host, "admin_port", b.cfg.StoreAdminPort)

	all := b.alloc.All()
	seeds := make([]string, len(all))
	for i, a := range all {
		seeds[i] = a.InternalEndpoint()
	}
	for i := range b.alloc.Size() {
		if err := ctx.Err(); err != nil {
			return nil, &ProvisioningError{Role: process.RoleBroker.String(), Index: i, Err: err}
		}
		addr := b.alloc.Allocate(i)
		spec := base
		spec.Index = i
		spec.Address = addr
		spec.SeedNodes = seeds
		spec.MetastoreURI = zookeeper.URI(b.cfg.Host)
		spec.StoreAdmin = b.cfg.Host
		spec.StorePort = b.cfg.StoreAdminPort

		h, err := b.launcher.StartBroker(procCtx, spec)
		if err != nil {
			return nil, &ProvisioningError{Role: process.RoleBroker.String(), Index: i, Err: err}
		}
		s.Brokers = append(s.Brokers, h)
		s.Addresses = append(s.Addresses, addr)
		s.Endpoints = append(s.Endpoints, addr.ClientEndpoint())
		log.Debug("broker started", "index", i, "endpoint", addr.ClientEndpoint())
	}

	if b.cfg.SettleDelay > 0 {
		b.sleep(b.cfg.SettleDelay)
	}
	if b.cfg.ReadinessTimeout > 0 {
		if err := b.probe(ctx, s); err != nil {
			return nil, &ProvisioningError{Role: RoleProbe, Err: err}
		}
	}

	s.EndpointList = strings.Join(s.Endpoints, ",")
	log.Info("cluster started",
		"brokers", len(s.Brokers),
		"endpoints", s.EndpointList,
		"encryption", profile.Encryption,
		"mutual_auth", profile.MutualAuth,
		"elapsed", time.Since(s.Started),
	)
	return s, nil
}

// probe waits until every broker accepts TCP connections on its client port.
func (b *Bootstrapper) probe(ctx context.Context, s *Session) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range s.Brokers {
		ep := s.Endpoints[i]
		name := h.Name()
		g.Go(func() error {
			return process.WaitReady(gctx, process.WaitReadyConfig{
				Interval: probeInterval,
				Timeout:  b.cfg.ReadinessTimeout,
				Name:     name,
				Address:  ep,
				Logger:   s.Logger(),
			}, process.DialCheck(ep))
		})
	}
	return g.Wait()
}

// unwind stops everything a failed Bootstrap started, newest first.
func (b *Bootstrapper) unwind(s *Session) {
	log := s.Logger()
	for i := len(s.Brokers) - 1; i >= 0; i-- {
		b.stop(s.Brokers[i], log)
	}
	if s.Storage != nil {
		b.stop(s.Storage, log)
	}
	if s.Coordinator != nil {
		b.stop(s.Coordinator, log)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if err := os.RemoveAll(s.DataDir); err != nil {
		log.Warn("remove data dir after failed provisioning", "dir", s.DataDir, "error", err)
	}
	s.Brokers, s.Storage, s.Coordinator = nil, nil, nil
	s.closed = true
}

func (b *Bootstrapper) stop(h process.Handle, log *slog.Logger) {
	if err := process.StopAndClose(h, b.cfg.StopTimeout); err != nil {
		log.Warn("stop during unwind failed", "process", h.Name(), "error", err)
	}
}
