// Package source describes types from Java source files, for archives that
// ship sources instead of compiled classes.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"graffiti/internal/graph"
)

// ErrUnknownType is returned by Describe for names no source file declares.
var ErrUnknownType = errors.New("type not declared in sources")

// EntryReader returns the content of an archive entry.
type EntryReader interface {
	ReadEntry(name string) ([]byte, error)
}

// Provider holds descriptors for every type declared in a set of Java
// source files. Nested types are named like their compiled form,
// "com.x.Outer$Inner".
type Provider struct {
	types   map[string]*graph.TypeDescriptor
	skipped []string
	logger  *slog.Logger
}

// NewProvider parses paths read through entries. Files that cannot be read
// are skipped and reported by Skipped; files with syntax errors contribute
// whatever declarations parse cleanly.
func NewProvider(ctx context.Context, entries EntryReader, paths []string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		types:  make(map[string]*graph.TypeDescriptor),
		logger: logger,
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	// Pass 1: parse every file and collect declarations, so that
	// same-package references resolve regardless of file order.
	var files []*javaFile
	declared := make(map[string]bool)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := entries.ReadEntry(path)
		if err != nil {
			p.logger.Warn("skipping source file", "path", path, "error", err)
			p.skipped = append(p.skipped, path)
			continue
		}
		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
		}
		root := tree.RootNode()
		if root.HasError() {
			p.logger.Warn("source file has syntax errors", "path", path)
		}

		f := newJavaFile(path, src, root)
		f.collect(root, nil)
		for _, d := range f.decls {
			declared[d.fqn] = true
		}
		files = append(files, f)
	}

	// Pass 2: describe.
	for _, f := range files {
		for _, d := range f.decls {
			s := &scope{file: f, decl: d, declared: declared}
			p.types[d.fqn] = s.describe()
		}
	}
	return p, nil
}

// Types returns the declared type names, sorted.
func (p *Provider) Types() []string {
	out := make([]string, 0, len(p.types))
	for fqn := range p.types {
		out = append(out, fqn)
	}
	sort.Strings(out)
	return out
}

// Skipped returns the source paths that could not be read.
func (p *Provider) Skipped() []string {
	return p.skipped
}

// Populate adds a Resolved node for every declared type.
func (p *Provider) Populate(r *graph.Registry) int {
	types := p.Types()
	for _, fqn := range types {
		r.GetOrCreate(fqn)
	}
	return len(types)
}

// Describe implements graph.DescriptorProvider.
func (p *Provider) Describe(ctx context.Context, fqn string) (*graph.TypeDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc, ok := p.types[fqn]
	if !ok {
		return nil, fmt.Errorf("%s: %w", fqn, ErrUnknownType)
	}
	return desc, nil
}
