// Package report collects recoverable per-file failures of a task.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Failures forwards per-file errors to the notifier and remembers that the
// task degraded. It is safe for concurrent use.
type Failures struct {
	notifier ports.Notifier
	title    string
	out      io.Writer

	mu    sync.Mutex
	count int
}

// NewFailures creates a collector whose notifications carry title.
// Each failure is also written as a line to out.
func NewFailures(notifier ports.Notifier, title string, out io.Writer) *Failures {
	return &Failures{notifier: notifier, title: title, out: out}
}

// Add reports that the file at path failed with err.
func (f *Failures) Add(path string, err error) {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()

	_, _ = fmt.Fprintf(f.out, "failed %s: %v\n", path, err)
	f.notifier.Notify(ports.Notification{
		Title:   f.title,
		Message: fmt.Sprintf("%s: %v", path, err),
	})
}

// Count returns the number of reported failures.
func (f *Failures) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Err returns domain.ErrTaskDegraded when at least one file failed.
func (f *Failures) Err() error {
	if f.Count() == 0 {
		return nil
	}
	return domain.ErrTaskDegraded
}

// Rel returns path relative to root for display, or path itself when it
// cannot be made relative.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
