// Package runindex keeps a SQLite index of test sessions and the log
// artifacts they produced, so a CI job can find the node logs of a failing
// test by its name instead of by correlation id.
//
// Several test binaries may share one index file; the database runs in WAL
// mode with a generous busy timeout.
package runindex
