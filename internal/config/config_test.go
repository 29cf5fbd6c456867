package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graffiti/internal/graph"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "graffiti-out", cfg.Output.Dir)
	assert.Equal(t, "dot", cfg.Graphviz.Executable)
	assert.Equal(t, graph.DefaultLabel, cfg.Graphviz.Label)
	assert.Equal(t, 4, cfg.Graphviz.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graffiti.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  dir: /tmp/site
  image_dir: png
graphviz:
  executable: /usr/local/bin/dot
archive:
  include: ["com/x/**"]
  exclude: ["**/internal/**"]
store:
  path: graffiti.db
site:
  markdown: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/site", cfg.Output.Dir)
	assert.Equal(t, "/usr/local/bin/dot", cfg.Graphviz.Executable)
	assert.Equal(t, []string{"com/x/**"}, cfg.Archive.Include)
	assert.Equal(t, []string{"**/internal/**"}, cfg.Archive.Exclude)
	assert.Equal(t, "graffiti.db", cfg.Store.Path)
	assert.True(t, cfg.Site.Markdown)
	// untouched keys keep their defaults
	assert.Equal(t, "text", cfg.Log.Format)

	l := cfg.Layout()
	assert.Equal(t, filepath.Join("/tmp/site", "png"), l.Images)
	assert.Equal(t, filepath.Join("/tmp/site", "dot"), l.Dot)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GRAFFITI_OUTPUT_DIR", "env-out")
	t.Setenv("GRAFFITI_DOT_EXECUTABLE", "/opt/graphviz/dot")
	t.Setenv("GRAFFITI_LOG_LEVEL", "debug")
	t.Setenv("GRAFFITI_SITE_MARKDOWN", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "env-out", cfg.Output.Dir)
	assert.Equal(t, "/opt/graphviz/dot", cfg.Graphviz.Executable)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Site.Markdown)
}

func TestLoadConfig_BadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: [unclosed"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("GRAFFITI_SITE_MARKDOWN", "maybe")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "GRAFFITI_SITE_MARKDOWN")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Graphviz.Executable = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Graphviz.Workers = -1
	assert.ErrorContains(t, cfg.Validate(), "graphviz.workers")
}

func TestLayout_AbsoluteSubDir(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "out"
	cfg.Output.CSSDir = "/srv/static/css"
	cfg.Output.JSDir = ""

	l := cfg.Layout()
	assert.Equal(t, "/srv/static/css", l.CSS)
	assert.Equal(t, filepath.Join("out", "js"), l.JS)
	assert.Equal(t, "out", l.Root)
}
