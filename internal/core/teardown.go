package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/giantswarm/hstreamenv/internal/fileutil"
	"github.com/giantswarm/hstreamenv/internal/metrics"
	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/runindex"
)

// Teardown steps reported in TeardownError.
const (
	StepCloseClient = "close-client"
	StepCapture     = "capture"
	StepStop        = "stop"
	StepRecord      = "record"
	StepPanic       = "panic"
)

// TeardownCoordinator drains sessions: it closes the client, captures every
// node's log into the artifact directory and stops the node.
type TeardownCoordinator struct {
	ArtifactDir string
	Grace       time.Duration
	StopTimeout time.Duration

	// Optional.
	Metrics *metrics.Recorder
	Index   *runindex.Index

	sleep func(time.Duration) // nil means time.Sleep
}

// TeardownReport lists what Teardown did. Captured holds artifact paths,
// Stopped holds node names, both in teardown order.
type TeardownReport struct {
	Captured []string
	Stopped  []string
	Errors   []*TeardownError
	Duration time.Duration
}

// Err joins all teardown errors, or returns nil.
func (r TeardownReport) Err() error { return joinErrors(r.Errors) }

func (r *TeardownReport) fail(step, node string, err error) {
	r.Errors = append(r.Errors, &TeardownError{Step: step, Node: node, Err: err})
}

// artifactDir returns <base>/<test name>/<correlation id>.
func artifactDir(base, testName, id string) string {
	return filepath.Join(base, fileutil.PathSegment(testName), id)
}

// Teardown releases everything s holds: brokers in index order, then the
// storage node, then the coordinator. Every node gets exactly one capture
// attempt followed by one stop attempt, and a failure of either is recorded
// without skipping anything that follows. Teardown never panics and a second
// call on the same session does nothing.
func (t *TeardownCoordinator) Teardown(s *Session) (report TeardownReport) {
	if s == nil || s.closed {
		return report
	}
	s.closed = true
	log := s.Logger()
	defer func() {
		if r := recover(); r != nil {
			report.fail(StepPanic, "", fmt.Errorf("teardown panicked: %v", r))
			log.Error("teardown panicked", "panic", r)
		}
	}()

	if t.Grace > 0 {
		t.sleepFn()(t.Grace)
	}

	if c := s.Client; c != nil {
		s.Client = nil
		if err := guard(c.Close); err != nil {
			report.fail(StepCloseClient, "", err)
			log.Warn("close client", "error", err)
		}
	}

	handles := s.handles()
	s.Brokers, s.Storage, s.Coordinator = nil, nil, nil
	dir := s.ArtifactDir(t.ArtifactDir)
	for _, h := range handles {
		t.captureAndStop(s, h, dir, &report)
	}

	if s.cancel != nil {
		s.cancel()
	}
	if err := os.RemoveAll(s.DataDir); err != nil {
		// Nodes may leave root-owned files behind; the OS temp cleaner
		// handles those.
		log.Warn("remove data dir", "dir", s.DataDir, "error", err)
	}
	s.portLock.Release()

	report.Duration = time.Since(s.Started)
	t.record(s, &report)
	log.Info("cluster torn down",
		"duration", report.Duration,
		"artifacts", dir,
		"errors", len(report.Errors),
	)
	return report
}

func (t *TeardownCoordinator) captureAndStop(s *Session, h process.Handle, dir string, report *TeardownReport) {
	log := s.Logger()
	name := h.Name()
	path := filepath.Join(dir, name+".log")

	var n int64
	err := guard(func() error {
		rc, err := h.Logs()
		if err != nil {
			return err
		}
		defer rc.Close()
		n, err = fileutil.WriteFrom(path, rc, &fileutil.WriteOptions{Atomic: true})
		return err
	})
	captured := err == nil
	if err != nil {
		report.fail(StepCapture, name, err)
		log.Warn("capture log", "process", name, "error", err)
	} else {
		report.Captured = append(report.Captured, path)
		if t.Index != nil {
			if err := t.Index.RecordArtifact(context.Background(), runindex.Artifact{
				SessionID: s.ID, Node: name, Path: path, Bytes: n,
			}); err != nil {
				report.fail(StepRecord, name, err)
			}
		}
	}

	if err := guard(func() error { return process.StopAndClose(h, t.StopTimeout) }); err != nil {
		report.fail(StepStop, name, err)
		log.Warn("stop process", "process", name, "error", err)
	} else {
		report.Stopped = append(report.Stopped, name)
	}

	// The original log goes away with the data dir.
	if r, ok := h.(process.LogRelocator); ok && captured {
		r.RelocateLogs(path)
	}
}

func (t *TeardownCoordinator) record(s *Session, report *TeardownReport) {
	t.Metrics.ObserveSession(report.Duration)
	for _, e := range report.Errors {
		t.Metrics.TeardownFailed(e.Step)
	}
	if t.Index == nil {
		return
	}
	outcome := runindex.OutcomeOK
	if len(report.Errors) > 0 {
		outcome = runindex.OutcomeTeardownErrors
	}
	if err := t.Index.RecordSession(context.Background(), runindex.Session{
		ID:       s.ID,
		TestName: s.Invocation.TestName,
		Tags:     s.Invocation.Tags,
		Started:  s.Started,
		Duration: report.Duration,
		Outcome:  outcome,
	}); err != nil {
		report.fail(StepRecord, "", err)
	}
}

func (t *TeardownCoordinator) sleepFn() func(time.Duration) {
	if t.sleep != nil {
		return t.sleep
	}
	return time.Sleep
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
