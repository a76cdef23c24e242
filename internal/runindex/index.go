package runindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// Session outcomes.
const (
	OutcomeOK                 = "ok"
	OutcomeProvisioningFailed = "provisioning-failed"
	OutcomeTeardownErrors     = "teardown-errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	test_name   TEXT NOT NULL,
	tags        TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	outcome     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_by_test ON sessions (test_name, started_at);
CREATE TABLE IF NOT EXISTS artifacts (
	session_id TEXT NOT NULL,
	node       TEXT NOT NULL,
	path       TEXT NOT NULL,
	bytes      INTEGER NOT NULL,
	PRIMARY KEY (session_id, node)
);
`

// Session is one row of the sessions table.
type Session struct {
	ID       string
	TestName string
	Tags     []string
	Started  time.Time
	Duration time.Duration
	Outcome  string
}

// Artifact is one captured node log.
type Artifact struct {
	SessionID string
	Node      string // e.g. "hserver-0"
	Path      string
	Bytes     int64
}

// Index is an open run index. It is safe for concurrent use.
type Index struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the index at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Index, error) {
	if path == "" {
		return nil, errors.New("run index path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run index %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create run index schema: %w", err)
	}
	return &Index{db: db, log: logger.With("run_index", path)}, nil
}

// RecordSession inserts or replaces the row for s.ID.
func (x *Index) RecordSession(ctx context.Context, s Session) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, test_name, tags, started_at, duration_ms, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.TestName, strings.Join(s.Tags, ","), s.Started.UnixMilli(), s.Duration.Milliseconds(), s.Outcome,
	)
	if err != nil {
		return fmt.Errorf("record session %s: %w", s.ID, err)
	}
	return nil
}

// RecordArtifact inserts or replaces the artifact row for (SessionID, Node).
func (x *Index) RecordArtifact(ctx context.Context, a Artifact) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (session_id, node, path, bytes) VALUES (?, ?, ?, ?)`,
		a.SessionID, a.Node, a.Path, a.Bytes,
	)
	if err != nil {
		return fmt.Errorf("record artifact %s/%s: %w", a.SessionID, a.Node, err)
	}
	return nil
}

// Sessions returns the sessions recorded for testName, most recent first.
func (x *Index) Sessions(ctx context.Context, testName string) ([]Session, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT id, test_name, tags, started_at, duration_ms, outcome
		 FROM sessions WHERE test_name = ? ORDER BY started_at DESC, id`,
		testName,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s          Session
			tags       string
			startedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&s.ID, &s.TestName, &tags, &startedMs, &durationMs, &s.Outcome); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if tags != "" {
			s.Tags = strings.Split(tags, ",")
		}
		s.Started = time.UnixMilli(startedMs)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// Artifacts returns the artifacts of a session ordered by node name.
func (x *Index) Artifacts(ctx context.Context, sessionID string) ([]Artifact, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT session_id, node, path, bytes FROM artifacts WHERE session_id = ? ORDER BY node`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.SessionID, &a.Node, &a.Path, &a.Bytes); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close closes the database. A nil Index is a no-op.
func (x *Index) Close() error {
	if x == nil {
		return nil
	}
	if err := x.db.Close(); err != nil {
		x.log.Warn("close run index", "error", err)
		return err
	}
	return nil
}
