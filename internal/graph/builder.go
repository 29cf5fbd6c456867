package graph

import (
	"fmt"
	"log/slog"
)

// Table is one node declaration of a type graph.
type Table struct {
	ID       string
	Rows     []string
	PageName string
	Tooltip  string
}

// Edge runs from a row (port) of the owner table to a related table.
type Edge struct {
	From string
	Port string
	To   string
}

// TypeGraph is the one-hop relationship graph of a single Resolved type.
type TypeGraph struct {
	Name    string
	Owner   Table
	Related []Table
	Edges   []Edge
}

// Builder composes type graphs.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a graph builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build composes the graph for node: an owner table with one row per
// attribute, one related table and one edge per attribute target. Related
// tables list their own attributes but never originate edges.
func (b *Builder) Build(node *TypeNode) (*TypeGraph, error) {
	if node == nil {
		return nil, fmt.Errorf("nil node: %w", ErrNotResolved)
	}
	if node.Kind() != KindResolved {
		return nil, fmt.Errorf("%s (%s): %w", node.FullyQualifiedName, node.Kind(), ErrNotResolved)
	}

	names := node.SortedAttributeNames()
	g := &TypeGraph{
		Name:  node.FullyQualifiedName,
		Owner: tableFor(node),
	}
	g.Owner.Rows = names

	for _, field := range names {
		target := node.Attributes[field]
		if target == nil {
			b.logger.Warn("attribute has no target", "type", node.FullyQualifiedName, "field", field)
			continue
		}
		g.Edges = append(g.Edges, Edge{
			From: node.FullyQualifiedName,
			Port: field,
			To:   target.FullyQualifiedName,
		})
		g.Related = append(g.Related, relatedTable(target))
	}

	return g, nil
}

// BuildTypeGraph composes the graph for node with the default logger.
func BuildTypeGraph(node *TypeNode) (*TypeGraph, error) {
	return NewBuilder(nil).Build(node)
}

func tableFor(n *TypeNode) Table {
	return Table{
		ID:       n.FullyQualifiedName,
		PageName: n.PageName(),
		Tooltip:  n.FullyQualifiedName,
	}
}

func relatedTable(n *TypeNode) Table {
	t := tableFor(n)
	if n.Kind() == KindResolved {
		t.Rows = n.SortedAttributeNames()
	}
	return t
}
