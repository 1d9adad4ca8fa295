package style_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/pipeline/style"
	"go.uber.org/mock/gomock"
)

const (
	mainSCSS = `@import "vars";

.lead {
  color: $accent;

  .icon {
    user-select: none;
  }
}

.unused-banner {
  display: block;
}
`
	varsSCSS = "$accent: #ff6600;\n"
	pageHTML = `<html><body><p class="lead"><span class="icon"></span></p></body></html>`
)

func setup(t *testing.T, mode domain.Mode, files map[string]string) *domain.Config {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	cfg := domain.DefaultConfig()
	cfg.Root = root
	cfg.Mode = mode
	cfg.Browsers = []string{"safari14", "chrome120"}
	return &cfg
}

func readCSS(t *testing.T, cfg *domain.Config) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Root, "app", "css", "main.css"))
	require.NoError(t, err)
	return string(data)
}

func TestCompiler_Development(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, domain.ModeDevelopment, map[string]string{
		"dev/scss/main.scss":  mainSCSS,
		"dev/scss/_vars.scss": varsSCSS,
	})

	err := style.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	got := readCSS(t, cfg)
	assert.Contains(t, got, ".lead .icon")
	assert.Contains(t, got, "#ff6600")
	assert.Contains(t, got, "-webkit-user-select: none")
	assert.Contains(t, got, ".unused-banner")
	assert.Contains(t, got, "sourceMappingURL=data:application/json;base64,")
	assert.Contains(t, got, "\n  ", "development output is not minified")
	assert.NoFileExists(t, filepath.Join(cfg.Root, "app", "css", "_vars.css"))
}

func TestCompiler_ProductionRemovesUnusedAndMinifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, domain.ModeProduction, map[string]string{
		"dev/scss/main.scss":  mainSCSS,
		"dev/scss/_vars.scss": varsSCSS,
		"app/html/index.html": pageHTML,
	})

	err := style.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	got := readCSS(t, cfg)
	assert.Contains(t, got, ".lead .icon{")
	assert.Contains(t, got, "-webkit-user-select:none")
	assert.NotContains(t, got, "unused-banner")
	assert.NotContains(t, got, "sourceMappingURL")
	assert.NotContains(t, got, "\n  ")
}

func TestCompiler_ProductionFallsBackToHTMLSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, domain.ModeProduction, map[string]string{
		"dev/scss/main.scss":             mainSCSS,
		"dev/scss/_vars.scss":            varsSCSS,
		"dev/html/partials/_header.html": pageHTML,
	})

	var out bytes.Buffer
	err := style.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	got := readCSS(t, cfg)
	assert.Contains(t, got, ".lead")
	assert.NotContains(t, got, "unused-banner")
	assert.Contains(t, out.String(), "scanning html sources")
}

func TestCompiler_CompileErrorNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)

	var got ports.Notification
	notifier.EXPECT().Notify(gomock.Any()).Do(func(n ports.Notification) { got = n })

	cfg := setup(t, domain.ModeDevelopment, map[string]string{
		"dev/scss/main.scss": ".broken { color: $undefined-variable; }\n",
	})

	err := style.New(notifier).Run(context.Background(), cfg, &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrTaskDegraded)

	assert.Equal(t, style.NotificationTitle, got.Title)
	assert.Contains(t, got.Message, "dev/scss/main.scss")
	assert.NoFileExists(t, filepath.Join(cfg.Root, "app", "css", "main.css"))
}

func TestCompiler_NoEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := setup(t, domain.ModeDevelopment, nil)

	var out bytes.Buffer
	require.NoError(t, style.New(mocks.NewMockNotifier(ctrl)).Run(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "no files matched")
}
