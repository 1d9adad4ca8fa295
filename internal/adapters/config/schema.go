package config

import "gopkg.in/yaml.v3"

// Kilnfile represents the structure of the kiln.yaml configuration file.
// Every key is optional; absent keys keep their defaults.
type Kilnfile struct {
	Mode     string     `yaml:"mode"`
	App      string     `yaml:"app"`
	Src      SourceDTO  `yaml:"src"`
	Build    BuildDTO   `yaml:"build"`
	Watch    WatchDTO   `yaml:"watch"`
	Browsers []string   `yaml:"browsers"`
	Sprite   *SpriteDTO `yaml:"sprite"`
	Server   *ServerDTO `yaml:"server"`
}

// SourceDTO holds the source globs per category.
type SourceDTO struct {
	HTML    GlobList `yaml:"html"`
	HTMLAll GlobList `yaml:"htmlAll"`
	Style   GlobList `yaml:"style"`
	JS      GlobList `yaml:"js"`
	Img     GlobList `yaml:"img"`
	SVG     GlobList `yaml:"svg"`
	Fonts   GlobList `yaml:"fonts"`
}

// BuildDTO holds the output directory per category.
type BuildDTO struct {
	HTML  string `yaml:"html"`
	Style string `yaml:"style"`
	JS    string `yaml:"js"`
	Img   string `yaml:"img"`
	Fonts string `yaml:"fonts"`
}

// WatchDTO holds the watch globs per category.
type WatchDTO struct {
	HTML  GlobList `yaml:"html"`
	Style GlobList `yaml:"style"`
	JS    GlobList `yaml:"js"`
	Img   GlobList `yaml:"img"`
	SVG   GlobList `yaml:"svg"`
	Fonts GlobList `yaml:"fonts"`
}

// SpriteDTO configures the SVG sprite.
type SpriteDTO struct {
	Enabled    *bool   `yaml:"enabled"`
	Dest       string  `yaml:"dest"`
	Name       string  `yaml:"name"`
	Stylesheet string  `yaml:"stylesheet"`
	Prefix     *string `yaml:"prefix"`
	Template   string  `yaml:"template"`
}

// ServerDTO configures the development server.
type ServerDTO struct {
	Port      int    `yaml:"port"`
	StartPath string `yaml:"startPath"`
	Open      *bool  `yaml:"open"`
}

// GlobList accepts either a single glob or a sequence of globs.
type GlobList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (g *GlobList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*g = GlobList{single}
		return nil
	}

	var many []string
	if err := node.Decode(&many); err != nil {
		return err
	}
	*g = many
	return nil
}
