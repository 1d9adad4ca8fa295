// Package incremental copies files that changed since the last run.
//
// A file is processed only when it was modified after the task's last
// successful run in this process and its output is missing or older. The
// output takes the source modification time, so a later run in a fresh
// process finds nothing to do.
package incremental

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/pipeline/report"
	"go.trai.ch/zerr"
)

// History remembers the start time of each task's last successful run.
type History struct {
	mu   sync.Mutex
	runs map[string]time.Time
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{runs: make(map[string]time.Time)}
}

// LastRun returns the start of the last successful run of task, or the
// zero time when it never succeeded.
func (h *History) LastRun(task string) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs[task]
}

// Record stores start as the last successful run of task.
func (h *History) Record(task string, start time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs[task] = start
}

// Reset forgets every recorded run. Outputs removed by clean must be
// regenerated even when their sources are older than the last run.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.runs)
}

// Transform rewrites the content of one file. A nil Transform copies.
type Transform func(path string, data []byte) ([]byte, error)

// Job describes one incremental task.
type Job struct {
	Task      string
	Src       []string
	Dest      string
	Transform Transform
}

// Run processes the changed files of job. Transformation errors are added
// to failures and leave the output untouched; I/O errors end the run.
func Run(
	ctx context.Context,
	cfg *domain.Config,
	history *History,
	job Job,
	failures *report.Failures,
	out io.Writer,
) error {
	start := time.Now()
	since := history.LastRun(job.Task)

	files, err := fs.Expand(cfg.Root, job.Src)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintf(out, "no files matched %s\n", strings.Join(job.Src, ", "))
	}

	dest := cfg.Abs(job.Dest)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := os.Stat(file.Path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", file.Path)
		}
		if !info.ModTime().After(since) {
			continue
		}

		target := filepath.Join(dest, file.Rel)
		if !Newer(info, target) {
			continue
		}

		if err := process(file.Path, target, info.ModTime(), job.Transform); err != nil {
			if isFileError(err) {
				return err
			}
			failures.Add(report.Rel(cfg.Root, file.Path), err)
			continue
		}
		_, _ = fmt.Fprintf(out, "wrote %s\n", report.Rel(cfg.Root, target))
	}

	if failures.Count() == 0 {
		history.Record(job.Task, start)
	}
	return nil
}

// Newer reports whether the source is newer than target, or target is missing.
func Newer(src os.FileInfo, target string) bool {
	info, err := os.Stat(target)
	if err != nil {
		return true
	}
	return src.ModTime().After(info.ModTime())
}

// fileError marks I/O failures, which fail the task instead of degrading it.
type fileError struct{ error }

func (e fileError) Unwrap() error { return e.error }

func isFileError(err error) bool {
	var fe fileError
	return errors.As(err, &fe)
}

func process(src, target string, mtime time.Time, transform Transform) error {
	data, err := os.ReadFile(src) //nolint:gosec // path comes from a source glob
	if err != nil {
		return fileError{zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", src)}
	}

	if transform != nil {
		if data, err = transform(src, data); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return fileError{zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", target)}
	}
	if err := os.WriteFile(target, data, domain.FilePerm); err != nil {
		return fileError{zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", target)}
	}
	if err := os.Chtimes(target, mtime, mtime); err != nil {
		return fileError{zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", target)}
	}
	return nil
}
