package domain

import "path/filepath"

// Mode selects development or production behavior for every task.
type Mode uint8

const (
	// ModeDevelopment enables source maps and disables minification.
	ModeDevelopment Mode = iota
	// ModeProduction enables minification and unused-CSS removal.
	ModeProduction
)

// ParseMode maps the value of the mode environment variable to a Mode.
// An empty value or "development" selects development, anything else production.
func ParseMode(value string) Mode {
	if value == "" || value == "development" {
		return ModeDevelopment
	}
	return ModeProduction
}

// IsDevelopment reports whether the mode is development.
func (m Mode) IsDevelopment() bool {
	return m == ModeDevelopment
}

func (m Mode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "production"
}

// Category is the path configuration of one source category.
type Category struct {
	// Src selects the files the task processes.
	Src []string
	// Dest is the single output directory of the category.
	Dest string
	// Watch selects the files whose changes re-run the task.
	Watch []string
}

// PathConfig maps every source category to its globs and output directory.
type PathConfig struct {
	HTML  Category
	Style Category
	JS    Category
	Img   Category
	SVG   Category
	Fonts Category
	// HTMLAll is the full set of HTML sources, partials included.
	HTMLAll []string
	// App is the output root served by the development server and removed by clean.
	App string
}

// SpriteConfig configures the SVG sprite task.
type SpriteConfig struct {
	Enabled bool
	// Name is the file name of the sprite inside the svg category's Dest.
	Name string
	// Stylesheet is the generated partial, written back into the source tree.
	Stylesheet string
	// Prefix is prepended to every symbol id and selector.
	Prefix string
	// Template optionally names a text/template file for the partial.
	Template string
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Port      int
	StartPath string
	Open      bool
}

// Config is the complete, immutable configuration of a run.
type Config struct {
	Root     string
	Mode     Mode
	Paths    PathConfig
	Browsers []string
	Sprite   SpriteConfig
	Server   ServerConfig
}

// Abs resolves a project-relative path against the config root.
func (c *Config) Abs(path string) string {
	if filepath.IsAbs(path) || c.Root == "" {
		return path
	}
	return filepath.Join(c.Root, path)
}

// SpritePath returns the path of the generated sprite file.
func (c *Config) SpritePath() string {
	return filepath.Join(c.Paths.SVG.Dest, c.Sprite.Name)
}

// DefaultConfig returns the stock layout: sources under dev/, output under app/.
func DefaultConfig() Config {
	return Config{
		Root: ".",
		Mode: ModeDevelopment,
		Paths: PathConfig{
			HTML: Category{
				Src:   []string{"dev/html/pages/*.html"},
				Dest:  "app/html",
				Watch: []string{"dev/html/**/*.html"},
			},
			Style: Category{
				Src:   []string{"dev/scss/main.scss"},
				Dest:  "app/css",
				Watch: []string{"dev/scss/**/*.scss"},
			},
			JS: Category{
				Src:   []string{"dev/js/main.js"},
				Dest:  "app/js",
				Watch: []string{"dev/js/**/*.js"},
			},
			Img: Category{
				Src:   []string{"dev/img/**/*.*"},
				Dest:  "app/img",
				Watch: []string{"dev/img/**/*.*"},
			},
			SVG: Category{
				Src:   []string{"dev/svg/*.svg"},
				Dest:  "app/img",
				Watch: []string{"dev/svg/*.svg"},
			},
			Fonts: Category{
				Src:   []string{"dev/fonts/**/*.*"},
				Dest:  "app/fonts",
				Watch: []string{"dev/fonts/**/*.*"},
			},
			HTMLAll: []string{"dev/html/**/*.html"},
			App:     "app",
		},
		Browsers: []string{"chrome120", "edge120", "firefox121", "safari17", "ios17"},
		Sprite: SpriteConfig{
			Enabled:    true,
			Name:       "sprite.svg",
			Stylesheet: "dev/scss/_sprite.scss",
			Prefix:     "icon-",
		},
		Server: ServerConfig{
			Port:      3000,
			StartPath: "/html",
		},
	}
}
