// Package hstore runs the log storage node of a session.
//
// The node is a single-process development cluster started with
// ld-dev-cluster. It writes its generated configuration into the session
// data directory, where brokers pick it up as ConfigPath.
package hstore
