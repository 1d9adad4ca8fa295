package clean_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/pipeline/clean"
)

func TestRun_RemovesOutputRoot(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "app", "css", "main.css")
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0o750))
	require.NoError(t, os.WriteFile(out, []byte("a{}"), 0o600))
	src := filepath.Join(root, "dev", "scss", "main.scss")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o750))
	require.NoError(t, os.WriteFile(src, []byte("a{}"), 0o600))

	cfg := domain.DefaultConfig()
	cfg.Root = root

	var buf bytes.Buffer
	require.NoError(t, clean.Run(context.Background(), &cfg, &buf))
	assert.NoDirExists(t, filepath.Join(root, "app"))
	assert.FileExists(t, src)
	assert.Equal(t, "removed app\n", buf.String())
}

func TestRun_MissingOutputIsFine(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Root = t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, clean.Run(context.Background(), &cfg, &buf))
	assert.Empty(t, buf.String())
}

func TestRun_RefusesPathsOutsideRoot(t *testing.T) {
	for _, app := range []string{".", "..", "../sibling", "/"} {
		cfg := domain.DefaultConfig()
		cfg.Root = t.TempDir()
		cfg.Paths.App = app

		err := clean.Run(context.Background(), &cfg, &bytes.Buffer{})
		require.Error(t, err, app)
		assert.Contains(t, err.Error(), domain.ErrPathOutsideRoot.Error(), app)
	}
}
