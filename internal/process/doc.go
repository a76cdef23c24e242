// Package process manages the lifecycle of the external server processes that
// make up a test cluster.
//
// BaseProcess wraps one exec.Cmd together with the log file its output is
// written to. Role-specific packages (zookeeper, hstore, hserver) embed it and
// expose the Handle interface to the orchestrator. ContainerSpec builds the
// container runtime invocation used to launch a node from an image, and
// WaitReady provides bounded readiness polling for callers that opt into it.
package process
