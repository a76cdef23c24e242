package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/hstreamenv/internal/runindex"
	"github.com/giantswarm/hstreamenv/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type orchestratorFixture struct {
	o        *Orchestrator
	launcher *fakeLauncher
	reg      *prometheus.Registry
	client   *fakeClient
	dialed   []ClientOptions
}

func newOrchestratorFixture(t *testing.T, cfg Config, dialErr error) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		launcher: newFakeLauncher(),
		reg:      prometheus.NewRegistry(),
		client:   &fakeClient{},
	}
	f.o = NewOrchestrator(OrchestratorParams{
		Config:   cfg,
		Launcher: f.launcher,
		ClientFactory: func(_ context.Context, endpoints string, opts ClientOptions) (Client, error) {
			f.dialed = append(f.dialed, opts)
			if endpoints == "" {
				return nil, errors.New("no endpoints")
			}
			if dialErr != nil {
				return nil, dialErr
			}
			return f.client, nil
		},
		Registerer: f.reg,
	})
	ids := 0
	f.o.boot.newID = func() string {
		ids++
		return fmt.Sprintf("session-%d", ids)
	}
	f.o.boot.sleep = func(time.Duration) {}
	f.o.teardown.sleep = func(time.Duration) {}
	t.Cleanup(func() { _ = f.o.Close() })
	return f
}

func TestOrchestrator_Lifecycle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.RunIndexPath = filepath.Join(t.TempDir(), "index", "runs.db")
	cfg.PortLockDir = filepath.Join(t.TempDir(), "locks")
	f := newOrchestratorFixture(t, cfg, nil)

	tc := &partialCase{}
	s, bind, err := f.o.BeforeEach(context.Background(), Invocation{
		TestName: "TestLifecycle",
		Tags:     []string{security.TagTransportEncryption},
		TestCase: tc,
	})
	if err != nil {
		t.Fatalf("BeforeEach: %v", err)
	}
	if s.Client != f.client || tc.endpoints != s.EndpointList {
		t.Error("session not connected and bound")
	}
	if len(bind.Bound) != 2 {
		t.Errorf("bound = %v", bind.Bound)
	}
	if len(f.dialed) != 1 || f.dialed[0].TLS == nil || !f.dialed[0].Profile.Encryption {
		t.Errorf("client should be dialed once with TLS, got %+v", f.dialed)
	}

	report := f.o.AfterEach(s)
	if report.Err() != nil {
		t.Fatalf("AfterEach: %v", report.Err())
	}
	if f.client.closes != 1 {
		t.Errorf("client closes = %d", f.client.closes)
	}

	if n, err := testutil.GatherAndCount(f.reg, "hstreamenv_bootstrap_duration_seconds", "hstreamenv_session_duration_seconds"); err != nil || n != 2 {
		t.Errorf("duration histograms = (%d, %v)", n, err)
	}

	sessions, err := f.o.index.Sessions(context.Background(), "TestLifecycle")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Outcome != runindex.OutcomeOK || sessions[0].ID != "session-1" {
		t.Errorf("sessions = %+v", sessions)
	}
	artifacts, err := f.o.index.Artifacts(context.Background(), "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 5 {
		t.Errorf("artifacts = %+v", artifacts)
	}

	// The port lock was released, so the next session can take it.
	s2, _, err := f.o.BeforeEach(context.Background(), Invocation{TestName: "TestNext"})
	if err != nil {
		t.Fatalf("second BeforeEach: %v", err)
	}
	f.o.AfterEach(s2)
}

func TestOrchestrator_ClientFailureTearsDown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	f := newOrchestratorFixture(t, cfg, errors.New("connection refused"))

	s, _, err := f.o.BeforeEach(context.Background(), Invocation{TestName: "TestClient"})
	if s != nil {
		t.Error("expected nil session")
	}
	perr := asProvisioningError(t, err)
	if perr.Role != RoleClient || perr.SessionID != "session-1" {
		t.Errorf("error = %+v", perr)
	}
	for name, h := range f.launcher.handles {
		if h.stops != 1 {
			t.Errorf("%s stopped %d times, want 1", name, h.stops)
		}
	}
	want := `
# HELP hstreamenv_provisioning_failures_total Sessions that failed to provision, by the role that failed.
# TYPE hstreamenv_provisioning_failures_total counter
hstreamenv_provisioning_failures_total{role="client"} 1
`
	if err := testutil.GatherAndCompare(f.reg, strings.NewReader(want), "hstreamenv_provisioning_failures_total"); err != nil {
		t.Error(err)
	}
}

func TestOrchestrator_ProvisioningFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.RunIndexPath = filepath.Join(t.TempDir(), "runs.db")
	f := newOrchestratorFixture(t, cfg, nil)
	f.launcher.storageErr = errors.New("image not found")

	_, _, err := f.o.BeforeEach(context.Background(), Invocation{TestName: "TestFail"})
	if perr := asProvisioningError(t, err); perr.Role != "hstore" {
		t.Errorf("role = %q", perr.Role)
	}
	if !strings.Contains(err.Error(), "image not found") {
		t.Errorf("error = %v", err)
	}
	if len(f.dialed) != 0 {
		t.Error("client must not be dialed after a failed bootstrap")
	}
	sessions, err := f.o.index.Sessions(context.Background(), "TestFail")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Outcome != runindex.OutcomeProvisioningFailed {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestOrchestrator_AfterEachNil(t *testing.T) {
	t.Parallel()

	f := newOrchestratorFixture(t, testConfig(t), nil)
	if report := f.o.AfterEach(nil); report.Err() != nil {
		t.Fatal(report.Err())
	}
}

func TestNewOrchestrator_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg, ok := r.(string); !ok || !strings.HasPrefix(msg, "hstreamenv: ") {
			t.Errorf("panic = %v", r)
		}
	}()
	NewOrchestrator(OrchestratorParams{Config: Config{}})
}

func TestBanner(t *testing.T) {
	t.Parallel()

	got := banner("BEGIN", "TestX")
	bar := strings.Repeat("=", bannerWidth)
	if want := bar + " BEGIN: TestX " + bar; got != want {
		t.Errorf("banner = %q, want %q", got, want)
	}
}
