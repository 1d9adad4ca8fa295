// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
)

// Executor defines the interface for executing tasks.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the given task against the configuration.
	//
	// Progress lines are written to out, which is typically the task's span.
	// It returns domain.ErrTaskDegraded when some files failed but were reported.
	Execute(ctx context.Context, task *domain.Task, cfg *domain.Config, out io.Writer) error
}
