package hstreamenv

import (
	"log/slog"

	"github.com/giantswarm/hstreamenv/internal/core"
)

// SetLogger replaces the logger used by hstreamenv. Session log lines carry
// additional "session" and "test" attributes on top of l.
//
// Passing nil restores the default, slog.Default() with a "component"
// attribute. The default is cached, so call SetLogger(nil) again after
// slog.SetDefault to pick up the change.
//
// SetLogger is safe for concurrent use, but sessions already running may log
// a few more lines to the previous logger. Call it in TestMain before m.Run
// to avoid that.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
