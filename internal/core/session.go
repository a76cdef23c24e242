package core

import (
	"context"
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/giantswarm/hstreamenv/internal/netutil"
	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/security"
	"google.golang.org/grpc"
)

// Invocation describes the test case a session is provisioned for.
type Invocation struct {
	// TestName is the full test name, e.g. "TestProduce/with_tls".
	TestName string
	// Tags are the test's metadata tags; they select the security profile.
	Tags []string
	// TestCase receives the session artifacts through the capability
	// interfaces it implements. May be nil.
	TestCase any
}

// Client is the connection handed to test cases.
type Client interface {
	// Conn is the gRPC connection for generated service stubs.
	Conn() grpc.ClientConnInterface
	// Ping waits until a broker answers or ctx is done.
	Ping(ctx context.Context) error
	Close() error
}

// ClientOptions is passed to a ClientFactory.
type ClientOptions struct {
	// TLS is nil for plaintext sessions.
	TLS *tls.Config
	// Profile is the session's security profile TLS was derived from.
	Profile security.Profile
	Logger  *slog.Logger
}

// ClientFactory connects to the brokers of a session. endpoints is the
// comma separated seed list.
type ClientFactory func(ctx context.Context, endpoints string, opts ClientOptions) (Client, error)

// Session is the live state of one provisioned cluster. It is populated by
// the Bootstrapper, completed with a client by the Orchestrator and drained by
// the TeardownCoordinator.
type Session struct {
	ID         string
	Invocation Invocation
	Started    time.Time
	DataDir    string
	Profile    security.Profile

	Coordinator process.Handle
	Storage     process.Handle
	Brokers     []process.Handle  // index order
	Addresses   []netutil.Address // index order
	Endpoints   []string          // client endpoints, index order
	Client      Client

	// EndpointList is Endpoints joined with ",".
	EndpointList string

	cancel   context.CancelFunc // ends the process context
	portLock *netutil.PortRangeLock
	log      *slog.Logger
	closed   bool
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool { return s.closed }

// Ping checks that the session's client reaches a broker. It returns
// ErrSessionClosed once the session has been torn down.
func (s *Session) Ping(ctx context.Context) error {
	if s.closed || s.Client == nil {
		return ErrSessionClosed
	}
	return s.Client.Ping(ctx)
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	if s.log == nil {
		return Logger()
	}
	return s.log
}

// ArtifactDir returns the directory the session's logs are captured into.
func (s *Session) ArtifactDir(base string) string {
	return artifactDir(base, s.Invocation.TestName, s.ID)
}

// handles returns every started process in teardown order: brokers by
// index, then storage, then the coordinator.
func (s *Session) handles() []process.Handle {
	out := make([]process.Handle, 0, len(s.Brokers)+2)
	out = append(out, s.Brokers...)
	if s.Storage != nil {
		out = append(out, s.Storage)
	}
	if s.Coordinator != nil {
		out = append(out, s.Coordinator)
	}
	return out
}
