package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/core/domain"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		value string
		want  domain.Mode
	}{
		{value: "", want: domain.ModeDevelopment},
		{value: "development", want: domain.ModeDevelopment},
		{value: "production", want: domain.ModeProduction},
		{value: "staging", want: domain.ModeProduction},
		{value: "Development", want: domain.ModeProduction},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParseMode(tt.value))
		})
	}
}

func TestConfig_Abs(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Root = "/project"

	assert.Equal(t, filepath.Join("/project", "app"), cfg.Abs("app"))
	assert.Equal(t, "/elsewhere/app", cfg.Abs("/elsewhere/app"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := domain.DefaultConfig()

	assert.True(t, cfg.Mode.IsDevelopment())
	assert.Equal(t, "app", cfg.Paths.App)
	assert.Equal(t, filepath.Join("app", "img", "sprite.svg"), cfg.SpritePath())
	assert.Equal(t, []string{"dev/html/pages/*.html"}, cfg.Paths.HTML.Src)
	assert.Equal(t, "/html", cfg.Server.StartPath)
}
