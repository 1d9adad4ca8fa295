package pipeline

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/notify" //nolint:depguard // Wired in pipeline wiring
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the pipeline executor Graft node.
const NodeID graft.ID = "pipeline.executor"

func init() {
	graft.Register(graft.Node[ports.Executor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{notify.NodeID},
		Run: func(ctx context.Context) (ports.Executor, error) {
			notifier, err := graft.Dep[ports.Notifier](ctx)
			if err != nil {
				return nil, err
			}
			return NewExecutor(notifier), nil
		},
	})
}
