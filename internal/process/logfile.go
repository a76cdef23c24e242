package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNoLogs is returned by Logs when the process was never started and so
// has no log file.
var ErrNoLogs = errors.New("process has no log file")

// LogFile is the single file that receives both stdout and stderr of a
// process. Interleaving both streams in one file matches what a container
// runtime's log command returns and keeps capture to one artifact per node.
type LogFile struct {
	file *os.File
	path string
}

// CreateLogFile creates (or truncates) <dir>/<name>.log.
func CreateLogFile(dir, name string) (LogFile, error) {
	path := filepath.Join(dir, name+".log")
	f, err := os.Create(path) //nolint:gosec // G304: path is built from the session data dir
	if err != nil {
		return LogFile{}, fmt.Errorf("create log file %s: %w", path, err)
	}
	return LogFile{file: f, path: path}, nil
}

// Path returns the absolute path of the log file, or "" if it was never created.
func (l *LogFile) Path() string {
	return l.path
}

// Writer returns the writer the process output is attached to.
func (l *LogFile) Writer() io.Writer {
	return l.file
}

// Open opens the log file for reading. It works regardless of whether the
// write handle is still open.
func (l *LogFile) Open() (io.ReadCloser, error) {
	if l.path == "" {
		return nil, ErrNoLogs
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Relocate makes Open read path instead. It does nothing on a log file that
// was never created.
func (l *LogFile) Relocate(path string) {
	if l.path != "" {
		l.path = path
	}
}

// Close closes the write handle. The path is kept so Open keeps working.
func (l *LogFile) Close() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
