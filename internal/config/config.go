package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"graffiti/internal/graph"
)

type Config struct {
	Output struct {
		Dir      string `yaml:"dir"`
		DotDir   string `yaml:"dot_dir"`   // relative to Dir unless absolute
		ImageDir string `yaml:"image_dir"` // png and cmapx files
		CSSDir   string `yaml:"css_dir"`
		JSDir    string `yaml:"js_dir"`
	} `yaml:"output"`
	Graphviz struct {
		Executable string `yaml:"executable"`
		Label      string `yaml:"label"`
		Workers    int    `yaml:"workers"` // concurrent dot processes
	} `yaml:"graphviz"`
	Archive struct {
		Include []string `yaml:"include"` // doublestar patterns over entry paths
		Exclude []string `yaml:"exclude"`
	} `yaml:"archive"`
	Store struct {
		Path string `yaml:"path"` // sqlite file; empty disables snapshots
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
	Metrics struct {
		TextFile string `yaml:"textfile"` // Prometheus textfile collector output
	} `yaml:"metrics"`
	Site struct {
		Markdown bool `yaml:"markdown"`
	} `yaml:"site"`
}

// Default returns the stock layout: everything under ./graffiti-out, images
// rendered by the dot executable on PATH.
func Default() *Config {
	var cfg Config
	cfg.Output.Dir = "graffiti-out"
	cfg.Output.DotDir = "dot"
	cfg.Output.ImageDir = "images"
	cfg.Output.CSSDir = "css"
	cfg.Output.JSDir = "js"
	cfg.Graphviz.Executable = "dot"
	cfg.Graphviz.Label = graph.DefaultLabel
	cfg.Graphviz.Workers = 4
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config over the defaults; a missing file keeps them
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		"GRAFFITI_OUTPUT_DIR":       &c.Output.Dir,
		"GRAFFITI_DOT_EXECUTABLE":   &c.Graphviz.Executable,
		"GRAFFITI_LABEL":            &c.Graphviz.Label,
		"GRAFFITI_STORE_PATH":       &c.Store.Path,
		"GRAFFITI_LOG_LEVEL":        &c.Log.Level,
		"GRAFFITI_LOG_FORMAT":       &c.Log.Format,
		"GRAFFITI_METRICS_TEXTFILE": &c.Metrics.TextFile,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("GRAFFITI_SITE_MARKDOWN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAFFITI_SITE_MARKDOWN: %w", err)
		}
		c.Site.Markdown = b
	}
	return nil
}

// Validate reports settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return errors.New("output.dir must be set")
	}
	if c.Graphviz.Executable == "" {
		return errors.New("graphviz.executable must be set")
	}
	if c.Graphviz.Workers < 0 {
		return fmt.Errorf("graphviz.workers %d: must not be negative", c.Graphviz.Workers)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	return nil
}

// Layout is the resolved set of output directories.
type Layout struct {
	Root   string
	Dot    string
	Images string
	CSS    string
	JS     string
}

// Layout resolves the output sub directories against Output.Dir.
func (c *Config) Layout() Layout {
	sub := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(c.Output.Dir, dir)
	}
	return Layout{
		Root:   c.Output.Dir,
		Dot:    sub(c.Output.DotDir, "dot"),
		Images: sub(c.Output.ImageDir, "images"),
		CSS:    sub(c.Output.CSSDir, "css"),
		JS:     sub(c.Output.JSDir, "js"),
	}
}
