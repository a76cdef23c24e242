// Package core provides the internal implementation of hstreamenv.
//
// A session moves through three stages, each owned by one type:
// the Bootstrapper starts the coordinator, the storage node and the brokers
// and unwinds them if any start fails; Bind hands the live endpoints, client
// and handles to whichever capability interfaces the test case implements;
// the TeardownCoordinator captures every node's log and stops it. The
// Orchestrator strings the stages together per test case and adds the
// ambient pieces: banners, metrics, the run index and the port range lock.
//
// A session is driven by one goroutine from BeforeEach to AfterEach and its
// state is not synchronized.
package core
