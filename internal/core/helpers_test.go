package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/hstreamenv/internal/process"
	"google.golang.org/grpc"
)

// events records the order of lifecycle calls across all fakes of a test.
type events struct{ list []string }

func (e *events) add(format string, args ...any) {
	e.list = append(e.list, fmt.Sprintf(format, args...))
}

type fakeHandle struct {
	name  string
	role  process.Role
	index int
	ev    *events

	logs     string
	logsErr  error
	logPanic bool
	stopErr  error

	stops     int
	closes    int
	relocated string
}

var (
	_ process.Handle       = (*fakeHandle)(nil)
	_ process.LogRelocator = (*fakeHandle)(nil)
)

func (h *fakeHandle) Name() string       { return h.name }
func (h *fakeHandle) Role() process.Role { return h.role }
func (h *fakeHandle) Index() int         { return h.index }
func (h *fakeHandle) Close()             { h.closes++ }

func (h *fakeHandle) RelocateLogs(path string) { h.relocated = path }

func (h *fakeHandle) Stop(time.Duration) error {
	h.stops++
	h.ev.add("stop %s", h.name)
	return h.stopErr
}

func (h *fakeHandle) Logs() (io.ReadCloser, error) {
	h.ev.add("capture %s", h.name)
	if h.logPanic {
		panic("log stream exploded")
	}
	if h.logsErr != nil {
		return nil, h.logsErr
	}
	return io.NopCloser(strings.NewReader(h.logs)), nil
}

// fakeLauncher hands out fakeHandles and can fail any start.
type fakeLauncher struct {
	ev *events

	coordinatorErr error
	storageErr     error
	brokerErrAt    map[int]error

	handles     map[string]*fakeHandle
	brokerSpecs []NodeSpec
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		ev:          &events{},
		brokerErrAt: map[int]error{},
		handles:     map[string]*fakeHandle{},
	}
}

func (l *fakeLauncher) start(role process.Role, index int, err error) (process.Handle, error) {
	name := role.String()
	if role == process.RoleBroker {
		name = fmt.Sprintf("%s-%d", name, index)
	}
	l.ev.add("start %s", name)
	if err != nil {
		return nil, err
	}
	h := &fakeHandle{name: name, role: role, index: index, ev: l.ev, logs: "log of " + name + "\n"}
	l.handles[name] = h
	return h, nil
}

func (l *fakeLauncher) StartCoordinator(_ context.Context, _ NodeSpec) (process.Handle, error) {
	return l.start(process.RoleCoordinator, 0, l.coordinatorErr)
}

func (l *fakeLauncher) StartStorage(_ context.Context, _ NodeSpec) (process.Handle, error) {
	return l.start(process.RoleStorage, 0, l.storageErr)
}

func (l *fakeLauncher) StartBroker(_ context.Context, spec NodeSpec) (process.Handle, error) {
	l.brokerSpecs = append(l.brokerSpecs, spec)
	return l.start(process.RoleBroker, spec.Index, l.brokerErrAt[spec.Index])
}

type fakeClient struct {
	closes   int
	closeErr error
}

func (c *fakeClient) Conn() grpc.ClientConnInterface { return nil }
func (c *fakeClient) Ping(context.Context) error     { return nil }

func (c *fakeClient) Close() error {
	c.closes++
	return c.closeErr
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Host:             "127.0.0.1",
		ClusterSize:      3,
		BaseClientPort:   6570,
		BaseInternalPort: 65000,
		StoreAdminPort:   6440,
		BaseDataDir:      filepath.Join(dir, "data"),
		ArtifactDir:      filepath.Join(dir, "artifacts"),
		FixtureDir:       filepath.Join(dir, "security"),
		Runtime:          "docker",
		CoordinatorImage: "zookeeper:3.8",
		NodeImage:        "hstreamdb/hstream:latest",
		SettleDelay:      3 * time.Second,
		TeardownGrace:    100 * time.Millisecond,
		StopTimeout:      time.Second,
	}
}

// newTestBootstrapper returns a bootstrapper with a fixed session id whose
// sleeps are recorded instead of taken.
func newTestBootstrapper(t *testing.T, cfg Config, l Launcher) (*Bootstrapper, *[]time.Duration) {
	t.Helper()
	b, err := NewBootstrapper(cfg, l)
	if err != nil {
		t.Fatalf("NewBootstrapper: %v", err)
	}
	var slept []time.Duration
	b.sleep = func(d time.Duration) { slept = append(slept, d) }
	b.newID = func() string { return "session-1" }
	return b, &slept
}

func asProvisioningError(t *testing.T, err error) *ProvisioningError {
	t.Helper()
	if !errors.Is(err, ErrProvisioning) {
		t.Fatalf("error %v does not match ErrProvisioning", err)
	}
	var perr *ProvisioningError
	if !errors.As(err, &perr) {
		t.Fatalf("error %v is not a *ProvisioningError", err)
	}
	return perr
}
