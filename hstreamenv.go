package hstreamenv

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/giantswarm/hstreamenv/internal/core"
)

// Singleton state for NewExtension. Broker ports are fixed per index, so two
// extensions in one process would provision clusters on the same ports. The
// first call creates the extension; subsequent calls return it and log a
// warning.
//
// singletonMu protects both singletonExt and singletonOnce so that
// resetForTesting is concurrency-safe with NewExtension.
var (
	singletonMu   sync.Mutex
	singletonExt  Extension
	singletonOnce sync.Once
)

// Compile-time interface satisfaction checks.
var (
	_ Extension = (*extensionWrapper)(nil)
	_ Session   = (*sessionWrapper)(nil)
)

// extensionWrapper adapts core.Orchestrator to the Extension interface.
type extensionWrapper struct {
	o *core.Orchestrator
}

func (w *extensionWrapper) Initialize(ctx context.Context) error {
	return w.o.Initialize(ctx)
}

//nolint:ireturn // Returns Session interface by design for testability (mockable).
func (w *extensionWrapper) BeforeEach(ctx context.Context, inv Invocation) (Session, BindReport, error) {
	s, report, err := w.o.BeforeEach(ctx, inv)
	if err != nil {
		return nil, report, err
	}
	return &sessionWrapper{s: s}, report, nil
}

// AfterEach tears down a session returned by BeforeEach. Sessions of any
// other implementation are ignored.
func (w *extensionWrapper) AfterEach(s Session) TeardownReport {
	sw, ok := s.(*sessionWrapper)
	if !ok || sw == nil {
		if s != nil {
			core.Logger().Warn("AfterEach called with a foreign session; ignoring", "type", fmt.Sprintf("%T", s))
		}
		return TeardownReport{}
	}
	return w.o.AfterEach(sw.s)
}

func (w *extensionWrapper) Close() error {
	return w.o.Close()
}

// sessionWrapper exposes a core.Session read-only. The session is stored as
// a named field so callers cannot reach the internal fields through a type
// assertion.
type sessionWrapper struct {
	s *core.Session
}

func (w *sessionWrapper) ID() string                { return w.s.ID }
func (w *sessionWrapper) Invocation() Invocation    { return w.s.Invocation }
func (w *sessionWrapper) EndpointList() string      { return w.s.EndpointList }
func (w *sessionWrapper) Endpoints() []string       { return slices.Clone(w.s.Endpoints) }
func (w *sessionWrapper) Brokers() []Handle         { return slices.Clone(w.s.Brokers) }
func (w *sessionWrapper) Security() SecurityProfile { return w.s.Profile }
func (w *sessionWrapper) DataDir() string           { return w.s.DataDir }
func (w *sessionWrapper) Closed() bool              { return w.s.Closed() }

//nolint:ireturn // Client is an interface by design.
func (w *sessionWrapper) Client() Client {
	return w.s.Client
}

// Ping checks that the client reaches a broker. It returns ErrSessionClosed
// after AfterEach.
func (w *sessionWrapper) Ping(ctx context.Context) error {
	return w.s.Ping(ctx)
}

// resetForTesting resets the singleton state so that the next call to
// NewExtension creates a fresh extension. It must only be called from tests.
func resetForTesting() {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	singletonExt = nil
	singletonOnce = sync.Once{}
}

// NewExtension returns the process-level singleton Extension.
//
// The first call creates the extension with the given options and stores it.
// Subsequent calls return the same instance; their options are ignored and a
// warning is logged. NewExtension performs no I/O.
//
// Panics if any option receives an invalid value, or if the combined
// configuration is invalid (e.g. a port range running past 65535). See the
// individual With* functions for constraints.
//
//nolint:ireturn // Returns Extension interface by design for testability (mockable).
func NewExtension(opts ...Option) Extension {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	created := false
	singletonOnce.Do(func() {
		cfg := defaultExtensionConfig()
		for _, opt := range opts {
			opt(&cfg)
		}
		singletonExt = &extensionWrapper{o: core.NewOrchestrator(cfg.toParams())}
		created = true
	})
	if !created {
		core.Logger().Warn("NewExtension called more than once; returning existing singleton (options ignored)")
	}
	return singletonExt
}

// Setup provisions a session for the running test and registers its teardown
// with tb.Cleanup. testCase receives the session artifacts through the
// receiver interfaces it implements and may be nil. tags select transport
// security.
//
// Setup fails the test immediately if provisioning fails. Binding and
// teardown failures are reported with tb.Errorf.
//
//nolint:ireturn // Returns Session interface by design.
func Setup(tb testing.TB, ext Extension, testCase any, tags ...string) Session {
	tb.Helper()

	s, report, err := ext.BeforeEach(tb.Context(), Invocation{
		TestName: tb.Name(),
		Tags:     tags,
		TestCase: testCase,
	})
	if err != nil {
		tb.Fatalf("hstreamenv: %v", err)
	}
	tb.Cleanup(func() {
		if err := ext.AfterEach(s).Err(); err != nil {
			tb.Errorf("hstreamenv: %v", err)
		}
	})
	if err := report.Err(); err != nil {
		tb.Errorf("hstreamenv: %v", err)
	}
	return s
}
