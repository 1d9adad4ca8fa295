// Package config provides the kiln.yaml configuration loader.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// browserPattern matches entries such as "chrome120" or "safari16.4".
var browserPattern = regexp.MustCompile(`^(chrome|edge|firefox|safari|ios|opera)[0-9]+(\.[0-9]+){0,2}$`)

// Loader implements ports.ConfigLoader on top of an optional YAML file.
type Loader struct {
	Logger ports.Logger
	// Getenv reads the environment; tests replace it.
	Getenv func(string) string
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, Getenv: os.Getenv}
}

// Load reads the configuration file at path and merges it over the
// defaults. A missing file yields the defaults. The project root is the
// directory holding the file.
func (l *Loader) Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	cfg.Root = filepath.Clean(filepath.Dir(path))
	cfg.Mode = domain.ParseMode(l.Getenv(domain.ModeEnvVar))

	var file Kilnfile
	found, err := readAndUnmarshalYAML(path, &file)
	if err != nil {
		return nil, err
	}
	if found {
		l.merge(&cfg, &file)
	}

	if err := validate(&cfg); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return &cfg, nil
}

func (l *Loader) merge(cfg *domain.Config, file *Kilnfile) {
	if file.Mode != "" {
		mode := domain.ParseMode(file.Mode)
		if env := l.Getenv(domain.ModeEnvVar); env != "" && domain.ParseMode(env) != mode {
			l.Logger.Warn("mode " + mode.String() + " from " + domain.ConfigFileName + " overrides " + domain.ModeEnvVar + "=" + env)
		}
		cfg.Mode = mode
	}

	p := &cfg.Paths
	setString(&p.App, file.App)

	setGlobs(&p.HTML.Src, file.Src.HTML)
	setGlobs(&p.HTMLAll, file.Src.HTMLAll)
	setGlobs(&p.Style.Src, file.Src.Style)
	setGlobs(&p.JS.Src, file.Src.JS)
	setGlobs(&p.Img.Src, file.Src.Img)
	setGlobs(&p.SVG.Src, file.Src.SVG)
	setGlobs(&p.Fonts.Src, file.Src.Fonts)

	setString(&p.HTML.Dest, file.Build.HTML)
	setString(&p.Style.Dest, file.Build.Style)
	setString(&p.JS.Dest, file.Build.JS)
	setString(&p.Img.Dest, file.Build.Img)
	setString(&p.Fonts.Dest, file.Build.Fonts)

	setGlobs(&p.HTML.Watch, file.Watch.HTML)
	setGlobs(&p.Style.Watch, file.Watch.Style)
	setGlobs(&p.JS.Watch, file.Watch.JS)
	setGlobs(&p.Img.Watch, file.Watch.Img)
	setGlobs(&p.SVG.Watch, file.Watch.SVG)
	setGlobs(&p.Fonts.Watch, file.Watch.Fonts)

	if len(file.Browsers) > 0 {
		cfg.Browsers = slices.Clone(file.Browsers)
	}

	if s := file.Sprite; s != nil {
		if s.Enabled != nil {
			cfg.Sprite.Enabled = *s.Enabled
		}
		if s.Prefix != nil {
			cfg.Sprite.Prefix = *s.Prefix
		}
		setString(&p.SVG.Dest, s.Dest)
		setString(&cfg.Sprite.Name, s.Name)
		setString(&cfg.Sprite.Stylesheet, s.Stylesheet)
		setString(&cfg.Sprite.Template, s.Template)
	}

	if s := file.Server; s != nil {
		if s.Port != 0 {
			cfg.Server.Port = s.Port
		}
		if s.Open != nil {
			cfg.Server.Open = *s.Open
		}
		setString(&cfg.Server.StartPath, s.StartPath)
	}
}

func validate(cfg *domain.Config) error {
	for _, b := range cfg.Browsers {
		if !browserPattern.MatchString(b) {
			return zerr.With(domain.ErrInvalidBrowserTarget, "browser", b)
		}
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return zerr.With(domain.ErrInvalidPort, "port", cfg.Server.Port)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setGlobs(dst *[]string, v GlobList) {
	if len(v) > 0 {
		*dst = slices.Clone([]string(v))
	}
}

// readAndUnmarshalYAML reads a YAML file and strictly decodes it into target.
// It reports false when the file does not exist.
func readAndUnmarshalYAML[T any](configPath string, target *T) (bool, error) {
	// #nosec G304 -- configPath is chosen by the user
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", configPath)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return false, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", configPath)
	}
	return true, nil
}
