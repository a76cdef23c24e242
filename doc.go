// Package hstreamenv provisions a throwaway HStream cluster for every test
// case: one ZooKeeper node, one HStore storage node and a fixed number of
// HServer brokers, each running in its own container on the host network.
//
// After the cluster is up, hstreamenv hands its endpoints and a connected
// client to the test case and, when the test finishes, captures every
// node's log and tears the cluster down.
//
// # Basic Usage
//
//	import "github.com/giantswarm/hstreamenv"
//
//	var env = hstreamenv.NewExtension(hstreamenv.WithClusterSize(3))
//
//	func TestProduce(t *testing.T) {
//	    s := hstreamenv.Setup(t, env, nil)
//	    conn := s.Client().Conn()
//	    // Use conn with generated service stubs...
//	}
//
// Setup registers the teardown with t.Cleanup. Callers driving the lifecycle
// themselves use BeforeEach and AfterEach directly.
//
// # Capabilities
//
// A test case receives artifacts by implementing any of the receiver
// interfaces (EndpointListReceiver, ClientReceiver, BrokerHandlesReceiver,
// BrokerEndpointsReceiver, LogPrefixReceiver, InvocationReceiver). Artifacts
// the test case does not ask for are skipped:
//
//	type produceSuite struct {
//	    endpoints string
//	}
//
//	func (s *produceSuite) SetEndpointList(list string) { s.endpoints = list }
//
//	suite := &produceSuite{}
//	hstreamenv.Setup(t, env, suite)
//
// # Transport Security
//
// The tags TagTransportEncryption and TagAuthentication switch brokers to TLS
// and mutual TLS. Key material is generated into the fixture directory on
// first use and mounted into every node:
//
//	s := hstreamenv.Setup(t, env, nil, hstreamenv.TagAuthentication)
//
// # Ports
//
// Broker ports are a deterministic function of the broker index, so sessions
// in concurrently running test binaries collide unless WithPortLockDir
// serializes them. Within one binary, run tests that use hstreamenv
// sequentially.
package hstreamenv
