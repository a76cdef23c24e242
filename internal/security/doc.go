// Package security derives the transport security settings of a test cluster
// from test metadata tags, builds the matching client TLS configuration and
// generates throwaway key material for encrypted runs.
package security
