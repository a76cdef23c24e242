package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrEmptyDst is returned when a destination path is empty.
var ErrEmptyDst = errors.New("destination path must not be empty")

// ErrNilSrc is returned when the source reader is nil.
var ErrNilSrc = errors.New("source reader must not be nil")

// WriteOptions configures WriteFrom.
type WriteOptions struct {
	Mode   *os.FileMode // permissions of dst; defaults to 0644
	Atomic bool         // write to a temp file in dst's directory, then rename
}

// WriteFrom copies r into dst, creating parent directories as needed, and
// returns the number of bytes written. If opts is nil, dst is truncated and
// written in place.
//
// With opts.Atomic a reader never observes a partially written dst: data is
// synced to a temp file that is renamed over dst once complete. On error the
// partial file is removed.
func WriteFrom(dst string, r io.Reader, opts *WriteOptions) (n int64, retErr error) {
	if dst == "" {
		return 0, ErrEmptyDst
	}
	if r == nil {
		return 0, ErrNilSrc
	}
	if err := EnsureDirForFile(dst); err != nil {
		return 0, fmt.Errorf("prepare destination: %w", err)
	}

	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	mode := os.FileMode(0o644)
	if o.Mode != nil {
		mode = *o.Mode
	}

	f, writePath, err := openDst(dst, mode, o.Atomic)
	if err != nil {
		return 0, err
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(writePath)
		}
	}()

	n, err = io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return n, fmt.Errorf("copy: %w", err)
	}
	if o.Atomic {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return n, fmt.Errorf("sync: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close destination: %w", err)
	}
	if writePath != dst {
		if err := os.Rename(writePath, dst); err != nil {
			return n, fmt.Errorf("rename temp file to destination: %w", err)
		}
	}
	return n, nil
}

func openDst(dst string, mode os.FileMode, atomic bool) (*os.File, string, error) {
	if atomic {
		f, err := os.CreateTemp(filepath.Dir(dst), ".tmp-write-*")
		if err != nil {
			return nil, "", fmt.Errorf("create temp file: %w", err)
		}
		if err := f.Chmod(mode); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return nil, "", fmt.Errorf("chmod temp file: %w", err)
		}
		return f, f.Name(), nil
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) //nolint:gosec // G304: artifact paths are built by the orchestrator
	if err != nil {
		return nil, "", fmt.Errorf("create destination: %w", err)
	}
	return f, dst, nil
}
