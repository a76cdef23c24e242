// Package netutil derives the deterministic broker addresses of a test
// cluster and provides an optional cross-process lock on that address range.
//
// Addresses are a pure function of the broker index, so log files and
// reconnect logic can rely on the index-to-port mapping across runs. Two
// sessions using the same base ports on one host would collide; LockPortRange
// lets independent test binaries take turns instead.
package netutil
