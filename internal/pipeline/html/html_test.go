package html_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/pipeline/html"
	"go.uber.org/mock/gomock"
)

func setup(t *testing.T, files map[string]string) *domain.Config {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	cfg := domain.DefaultConfig()
	cfg.Root = root
	return &cfg
}

func TestAssembler_InlinesHeaderPartial(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, map[string]string{
		"dev/html/pages/index.html":       "<!doctype html>\n<body>\n//= ../partials/_header.html\n</body>\n",
		"dev/html/partials/_header.html":  "<header>kiln</header>\n",
		"dev/html/pages/_draft.html":      "<p>draft</p>\n",
		"dev/html/pages/about.html":       "<p>about</p>\n",
		"dev/html/partials/_unused.html":  "<p>unused</p>\n",
		"dev/html/pages/nested/skip.html": "<p>not matched by pages/*.html</p>\n",
	})

	var out bytes.Buffer
	err := html.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(cfg.Root, "app", "html", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<!doctype html>\n<body>\n<header>kiln</header>\n</body>\n", string(got))

	assert.FileExists(t, filepath.Join(cfg.Root, "app", "html", "about.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Root, "app", "html", "_draft.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Root, "app", "html", "nested", "skip.html"))
	assert.Contains(t, out.String(), "wrote app/html/index.html")
}

func TestAssembler_PreservesRelativePaths(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, map[string]string{
		"dev/html/pages/blog/post.html": "<p>post</p>\n",
	})
	cfg.Paths.HTML.Src = []string{"dev/html/pages/**/*.html"}

	err := html.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Root, "app", "html", "blog", "post.html"))
}

func TestAssembler_BrokenIncludeDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any()).Times(1)

	cfg := setup(t, map[string]string{
		"dev/html/pages/broken.html": "//= ../partials/_missing.html\n",
		"dev/html/pages/ok.html":     "<p>ok</p>\n",
	})

	err := html.New(notifier).Run(context.Background(), cfg, &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrTaskDegraded)

	assert.FileExists(t, filepath.Join(cfg.Root, "app", "html", "ok.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Root, "app", "html", "broken.html"))
}

func TestAssembler_NoPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, nil)

	var out bytes.Buffer
	err := html.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no files matched dev/html/pages/*.html")
}

func TestAssembler_SecondRunWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, map[string]string{"dev/html/pages/index.html": "<p>hi</p>\n"})
	a := html.New(mocks.NewMockNotifier(ctrl))

	require.NoError(t, a.Run(context.Background(), cfg, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), cfg, &out))
	assert.Empty(t, out.String())
}

func TestIsPartial(t *testing.T) {
	assert.True(t, html.IsPartial("dev/html/_header.html"))
	assert.False(t, html.IsPartial("dev/html/_dir/index.html"))
	assert.False(t, html.IsPartial("dev/html/index.html"))
}
