package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestGraph_AddTask(t *testing.T) {
	g := domain.NewGraph()
	task := domain.Task{Name: "html"}

	require.NoError(t, g.AddTask(&task))

	err := g.AddTask(&task)
	require.Error(t, err)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)
	assert.Equal(t, "html", zErr.Metadata()["task_name"])
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name        string
		tasks       []domain.Task
		errContains string
	}{
		{
			name: "self cycle",
			tasks: []domain.Task{
				{Name: "style", Dependencies: []string{"style"}},
			},
			errContains: "cycle detected",
		},
		{
			name: "two node cycle",
			tasks: []domain.Task{
				{Name: "style", Dependencies: []string{"svg"}},
				{Name: "svg", Dependencies: []string{"style"}},
			},
			errContains: "cycle detected",
		},
		{
			name: "missing dependency",
			tasks: []domain.Task{
				{Name: "style", Dependencies: []string{"svg"}},
			},
			errContains: "missing dependency",
		},
		{
			name: "diamond",
			tasks: []domain.Task{
				{Name: "clean"},
				{Name: "html", Dependencies: []string{"clean"}},
				{Name: "svg", Dependencies: []string{"clean"}},
				{Name: "style", Dependencies: []string{"clean", "html", "svg"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := domain.NewGraph()
			for i := range tt.tasks {
				require.NoError(t, g.AddTask(&tt.tasks[i]))
			}

			err := g.Validate()
			if tt.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestGraph_Validate_CycleMetadata(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(&domain.Task{Name: "a", Dependencies: []string{"b"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "b", Dependencies: []string{"a"}}))

	err := g.Validate()
	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)
	assert.Equal(t, "a -> b -> a", zErr.Metadata()["cycle"])
}

func TestGraph_Walk(t *testing.T) {
	g := domain.NewGraph()
	// style -> html -> clean
	require.NoError(t, g.AddTask(&domain.Task{Name: "style", Dependencies: []string{"html"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "html", Dependencies: []string{"clean"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "clean"}))
	require.NoError(t, g.Validate())

	var executed []string
	for task := range g.Walk() {
		executed = append(executed, task.Name)
	}

	assert.Equal(t, []string{"clean", "html", "style"}, executed)
}

func TestGraph_Dependents(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(&domain.Task{Name: "clean"}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "html", Dependencies: []string{"clean"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "fonts", Dependencies: []string{"clean"}}))

	assert.ElementsMatch(t, []string{"html", "fonts"}, g.Dependents("clean"))
	assert.Empty(t, g.Dependents("fonts"))
	assert.Equal(t, 3, g.TaskCount())

	task, ok := g.GetTask("html")
	require.True(t, ok)
	assert.Equal(t, []string{"clean"}, task.Dependencies)
}
