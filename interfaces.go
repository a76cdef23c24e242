package hstreamenv

import (
	"context"

	"github.com/giantswarm/hstreamenv/internal/core"
	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/security"
)

// Extension provisions a cluster before each test case and tears it down
// afterwards.
//
// Callers must follow this lifecycle ordering:
//
//	NewExtension → BeforeEach/AfterEach (repeatable) → Close
//
// BeforeEach initializes the extension on first use; calling Initialize
// up front only moves that cost (and its errors) earlier.
type Extension interface {
	// Initialize creates the base directories, registers metrics and opens
	// the run index. Safe to call multiple times: after a successful
	// initialization, subsequent calls return nil immediately. A failed
	// initialization is retried on the next call.
	Initialize(ctx context.Context) error

	// BeforeEach provisions a cluster for inv, connects a client and binds
	// the session to inv.TestCase.
	//
	// The returned error matches ErrProvisioning. When it is non-nil every
	// process that was started has already been stopped and the session is
	// nil. Binding failures do not fail the call; they are reported in the
	// BindReport.
	BeforeEach(ctx context.Context, inv Invocation) (Session, BindReport, error)

	// AfterEach captures the logs of every node of s and tears the cluster
	// down. It never stops early: every failure is recorded in the report
	// and the remaining resources are still released. Calling AfterEach
	// again for the same session is a no-op.
	AfterEach(s Session) TeardownReport

	// Close releases the run index. Sessions still open are not affected.
	Close() error
}

// Session is one provisioned cluster. It is valid between BeforeEach and
// AfterEach and must only be used by one goroutine at a time.
type Session interface {
	// ID is the correlation id. It prefixes container names and names the
	// data and artifact directories.
	ID() string

	// Invocation is the test case the session was provisioned for.
	Invocation() Invocation

	// EndpointList is the comma separated "host:port" list of every broker,
	// in broker index order.
	EndpointList() string

	// Endpoints returns a copy of the broker endpoints in index order.
	Endpoints() []string

	// Brokers returns a copy of the broker handles in index order.
	Brokers() []Handle

	// Client is the connected client, nil after AfterEach.
	Client() Client

	// Ping checks that the client reaches a broker. It returns
	// ErrSessionClosed after AfterEach.
	Ping(ctx context.Context) error

	// Security is the transport security profile derived from the tags.
	Security() SecurityProfile

	// DataDir is the session's temporary data directory.
	DataDir() string

	// Closed reports whether AfterEach has run.
	Closed() bool
}

// Types shared with the internal packages.
type (
	// Invocation describes the test case a session is provisioned for.
	Invocation = core.Invocation

	// Client is the connection handed to test cases.
	Client = core.Client

	// ClientOptions is passed to a ClientFactory.
	ClientOptions = core.ClientOptions

	// ClientFactory connects to the brokers of a session. See
	// WithClientFactory.
	ClientFactory = core.ClientFactory

	// Handle is one running node process.
	Handle = process.Handle

	// SecurityProfile is the transport security of a session.
	SecurityProfile = security.Profile

	// BindReport lists the artifacts BeforeEach bound to the test case.
	BindReport = core.BindReport

	// TeardownReport describes what AfterEach captured and stopped.
	TeardownReport = core.TeardownReport
)

// Receiver interfaces a test case implements to be handed session artifacts.
type (
	// EndpointListReceiver receives the comma separated broker endpoints.
	EndpointListReceiver = core.EndpointListReceiver

	// ClientReceiver receives the connected client.
	ClientReceiver = core.ClientReceiver

	// BrokerHandlesReceiver receives the broker process handles.
	BrokerHandlesReceiver = core.BrokerHandlesReceiver

	// BrokerEndpointsReceiver receives the broker endpoints as a slice.
	BrokerEndpointsReceiver = core.BrokerEndpointsReceiver

	// LogPrefixReceiver receives the correlation id used to namespace logs.
	LogPrefixReceiver = core.LogPrefixReceiver

	// InvocationReceiver receives the invocation descriptor.
	InvocationReceiver = core.InvocationReceiver
)

// Tags selecting transport security.
const (
	// TagTransportEncryption turns on TLS between clients and brokers.
	TagTransportEncryption = security.TagTransportEncryption

	// TagAuthentication turns on mutual TLS. It implies
	// TagTransportEncryption.
	TagAuthentication = security.TagAuthentication
)
