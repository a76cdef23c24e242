package core

import (
	"errors"
	"testing"

	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/security"
	"github.com/google/go-cmp/cmp"
)

// partialCase implements only the endpoint list and log prefix capabilities.
type partialCase struct {
	endpoints string
	prefix    string
}

func (c *partialCase) SetEndpointList(list string) { c.endpoints = list }
func (c *partialCase) SetLogPrefix(prefix string)  { c.prefix = prefix }

// fullCase implements every capability.
type fullCase struct {
	partialCase
	client     Client
	handles    []process.Handle
	brokerEps  []string
	invocation Invocation
	panicOn    string
}

func (c *fullCase) SetClient(cl Client) {
	if c.panicOn == ArtifactClient {
		panic("client setter broke")
	}
	c.client = cl
}

func (c *fullCase) SetBrokerHandles(h []process.Handle) { c.handles = h }
func (c *fullCase) SetBrokerEndpoints(eps []string)     { c.brokerEps = eps }
func (c *fullCase) SetInvocation(inv Invocation)        { c.invocation = inv }

func boundSession(t *testing.T) *Session {
	t.Helper()
	l := newFakeLauncher()
	b, _ := newTestBootstrapper(t, testConfig(t), l)
	s, err := b.Bootstrap(t.Context(), Invocation{TestName: "TestBind", Tags: []string{"authentication"}}, security.Profile{})
	if err != nil {
		t.Fatal(err)
	}
	s.Client = &fakeClient{}
	return s
}

func TestBind_PartialTestCase(t *testing.T) {
	t.Parallel()

	s := boundSession(t)
	tc := &partialCase{}
	report := Bind(tc, s)

	if report.Err() != nil {
		t.Fatalf("unexpected error: %v", report.Err())
	}
	if diff := cmp.Diff([]string{ArtifactEndpointList, ArtifactLogPrefix}, report.Bound); diff != "" {
		t.Errorf("bound mismatch (-want +got):\n%s", diff)
	}
	wantSkipped := []string{ArtifactClient, ArtifactBrokerHandles, ArtifactBrokerEndpoints, ArtifactInvocation}
	if diff := cmp.Diff(wantSkipped, report.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
	if tc.endpoints != s.EndpointList || tc.prefix != "session-1" {
		t.Errorf("test case got endpoints=%q prefix=%q", tc.endpoints, tc.prefix)
	}
}

func TestBind_FullTestCase(t *testing.T) {
	t.Parallel()

	s := boundSession(t)
	tc := &fullCase{}
	report := Bind(tc, s)

	if len(report.Bound) != len(bindings) || len(report.Skipped) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if tc.client != s.Client {
		t.Error("client not bound")
	}
	if len(tc.handles) != 3 || tc.handles[2].Name() != "hserver-2" {
		t.Errorf("handles = %v", tc.handles)
	}
	if diff := cmp.Diff(s.Endpoints, tc.brokerEps); diff != "" {
		t.Errorf("broker endpoints mismatch (-want +got):\n%s", diff)
	}
	if tc.invocation.TestName != "TestBind" {
		t.Errorf("invocation = %+v", tc.invocation)
	}

	// The test case gets copies.
	tc.brokerEps[0] = "mutated"
	if s.Endpoints[0] == "mutated" {
		t.Error("session endpoints share storage with the test case")
	}
}

func TestBind_PanickingSetter(t *testing.T) {
	t.Parallel()

	s := boundSession(t)
	tc := &fullCase{panicOn: ArtifactClient}
	report := Bind(tc, s)

	if len(report.Errors) != 1 || report.Errors[0].Artifact != ArtifactClient {
		t.Fatalf("errors = %v", report.Errors)
	}
	if !errors.Is(report.Err(), ErrBinding) {
		t.Errorf("report error %v should match ErrBinding", report.Err())
	}
	if len(report.Bound) != len(bindings)-1 {
		t.Errorf("other bindings should still apply, bound = %v", report.Bound)
	}
	if tc.endpoints == "" || tc.invocation.TestName == "" {
		t.Error("bindings after the failing one were not applied")
	}
}

func TestBind_NilTestCase(t *testing.T) {
	t.Parallel()

	report := Bind(nil, boundSession(t))
	if len(report.Skipped) != len(bindings) {
		t.Errorf("report = %+v", report)
	}
}
