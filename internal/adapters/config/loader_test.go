package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T, env map[string]string) (*config.Loader, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	loader := config.NewLoader(mockLogger)
	loader.Getenv = func(key string) string { return env[key] }
	return loader, mockLogger
}

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	loader, _ := newLoader(t, nil)
	dir := t.TempDir()

	cfg, err := loader.Load(filepath.Join(dir, domain.ConfigFileName))
	require.NoError(t, err)

	want := domain.DefaultConfig()
	want.Root = dir
	assert.Equal(t, &want, cfg)
}

func TestLoader_ModeFromEnvironment(t *testing.T) {
	tests := []struct {
		env  string
		want domain.Mode
	}{
		{"", domain.ModeDevelopment},
		{"development", domain.ModeDevelopment},
		{"production", domain.ModeProduction},
		{"staging", domain.ModeProduction},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			loader, _ := newLoader(t, map[string]string{domain.ModeEnvVar: tt.env})
			cfg, err := loader.Load(filepath.Join(t.TempDir(), domain.ConfigFileName))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Mode)
		})
	}
}

func TestLoader_MergesOverDefaults(t *testing.T) {
	loader, _ := newLoader(t, nil)
	dir := t.TempDir()
	path := createFile(t, dir, domain.ConfigFileName, `
app: public
src:
  style: assets/scss/site.scss
  js: [assets/js/a.js, assets/js/b.js]
build:
  style: public/styles
watch:
  style: assets/scss/**/*.scss
browsers: [chrome100, safari16.4]
sprite:
  enabled: false
  prefix: ""
server:
  port: 8080
  open: true
`)

	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, "public", cfg.Paths.App)
	assert.Equal(t, []string{"assets/scss/site.scss"}, cfg.Paths.Style.Src)
	assert.Equal(t, []string{"assets/js/a.js", "assets/js/b.js"}, cfg.Paths.JS.Src)
	assert.Equal(t, "public/styles", cfg.Paths.Style.Dest)
	assert.Equal(t, []string{"assets/scss/**/*.scss"}, cfg.Paths.Style.Watch)
	assert.Equal(t, []string{"chrome100", "safari16.4"}, cfg.Browsers)
	assert.False(t, cfg.Sprite.Enabled)
	assert.Empty(t, cfg.Sprite.Prefix)
	assert.Equal(t, "sprite.svg", cfg.Sprite.Name, "unset keys keep defaults")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.Open)
	assert.Equal(t, "/html", cfg.Server.StartPath)

	def := domain.DefaultConfig()
	assert.Equal(t, def.Paths.HTML, cfg.Paths.HTML)
}

func TestLoader_FileModeOverridesEnvironment(t *testing.T) {
	loader, mockLogger := newLoader(t, map[string]string{domain.ModeEnvVar: "development"})
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	path := createFile(t, t.TempDir(), domain.ConfigFileName, "mode: production\n")
	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeProduction, cfg.Mode)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "src: [unclosed", domain.ErrConfigParseFailed.Error()},
		{"unknown key", "bogus: true\n", domain.ErrConfigParseFailed.Error()},
		{"invalid browser", "browsers: [netscape4]\n", "invalid browser target"},
		{"invalid port", "server: {port: 70000}\n", domain.ErrInvalidPort.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := newLoader(t, nil)
			path := createFile(t, t.TempDir(), domain.ConfigFileName, tt.content)

			_, err := loader.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_UnreadableFile(t *testing.T) {
	loader, _ := newLoader(t, nil)
	dir := t.TempDir()
	// A directory in place of the file cannot be read.
	path := filepath.Join(dir, domain.ConfigFileName)
	require.NoError(t, os.Mkdir(path, domain.DirPerm))

	_, err := loader.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigReadFailed.Error())
}

func TestLoader_EmptyFile(t *testing.T) {
	loader, _ := newLoader(t, nil)
	path := createFile(t, t.TempDir(), domain.ConfigFileName, "")

	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig().Paths, cfg.Paths)
}
