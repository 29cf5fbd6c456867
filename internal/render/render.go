// Package render turns DOT files into PNG images plus client side image
// maps by running the Graphviz dot executable.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrRenderFailed is returned when dot exits unsuccessfully.
var ErrRenderFailed = errors.New("graphviz render failed")

const (
	ImageExtension = ".png"
	MapExtension   = ".map"
)

// Renderer invokes dot once per DOT file.
type Renderer struct {
	executable string
	imageDir   string
	logger     *slog.Logger
}

// NewRenderer creates a renderer writing images and maps to imageDir.
func NewRenderer(executable, imageDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{executable: executable, imageDir: imageDir, logger: logger}
}

// Result locates the rendered artifacts of one DOT file.
type Result struct {
	ImagePath string
	MapPath   string
	Map       *ImageMap
}

// Render runs `dot -Tpng <dotPath> -o<image>.png -Tcmapx`, saving the
// image map printed on stdout next to the image. A failed run leaves no
// image behind.
func (r *Renderer) Render(ctx context.Context, dotPath string) (*Result, error) {
	base := strings.TrimSuffix(filepath.Base(dotPath), filepath.Ext(dotPath))
	imagePath := filepath.Join(r.imageDir, base+ImageExtension)
	mapPath := filepath.Join(r.imageDir, base+MapExtension)

	cmd := exec.CommandContext(ctx, r.executable, "-Tpng", dotPath, "-o"+imagePath, "-Tcmapx")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if rmErr := os.Remove(imagePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warn("could not remove partial image", "path", imagePath, "error", rmErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrRenderFailed, filepath.Base(dotPath), msg)
	}

	if err := os.WriteFile(mapPath, stdout.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write image map %s: %w", mapPath, err)
	}

	im, err := ParseImageMap(stdout.Bytes())
	if err != nil {
		r.logger.Warn("image map unreadable", "path", mapPath, "error", err)
	}

	r.logger.Debug("rendered", "dot", dotPath, "image", imagePath)
	return &Result{ImagePath: imagePath, MapPath: mapPath, Map: im}, nil
}

// Available reports whether the executable can be found.
func (r *Renderer) Available() error {
	if _, err := exec.LookPath(r.executable); err != nil {
		return fmt.Errorf("graphviz executable %q: %w", r.executable, err)
	}
	return nil
}
