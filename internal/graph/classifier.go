package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrUnclassifiable is returned for a field descriptor that carries no
	// declared type at all.
	ErrUnclassifiable = errors.New("field type cannot be classified")
	// ErrNotResolved is returned when a graph is requested for a
	// placeholder node.
	ErrNotResolved = errors.New("node is not a resolved archive type")
)

// typePrefixes are the markers some signature encoders put in front of a
// raw type name.
var typePrefixes = []string{"class ", "interface "}

// DescriptorProvider supplies the static structure of an archive type.
type DescriptorProvider interface {
	Describe(ctx context.Context, fqn string) (*TypeDescriptor, error)
}

// Classifier resolves field descriptors against a registry.
type Classifier struct {
	registry *Registry
	logger   *slog.Logger
}

// NewClassifier creates a classifier bound to r.
func NewClassifier(r *Registry, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{registry: r, logger: logger}
}

// Classify returns the node a field points to. Resolved targets are the
// shared registry node; every other kind is a fresh placeholder.
func (c *Classifier) Classify(f FieldDescriptor) (*TypeNode, error) {
	if strings.TrimSpace(f.DeclaredTypeName) == "" {
		return nil, fmt.Errorf("field %q: %w", f.Name, ErrUnclassifiable)
	}

	if f.IsPrimitive {
		return newPlaceholder(KindPrimitive, f.DeclaredTypeName, f.DeclaredTypeName), nil
	}

	if n, ok := c.registry.Lookup(f.DeclaredTypeName); ok {
		return n, nil
	}

	if f.IsArray {
		simple := f.SimpleTypeName
		if simple == "" {
			simple = f.DeclaredTypeName
		}
		return newPlaceholder(KindArray, simple, simple), nil
	}

	if f.GenericSignature != "" {
		return newPlaceholder(KindGeneric, f.DeclaredTypeName, EscapeSignature(f.GenericSignature)), nil
	}

	// Declared outside the archive: the short name for display, the full
	// name as identity so same-named external types stay distinct tables.
	simple := f.SimpleTypeName
	if simple == "" {
		simple = ShortName(f.DeclaredTypeName)
	}
	return newPlaceholder(KindUnresolved, simple, f.DeclaredTypeName), nil
}

// Populate fills node's attributes and methods from desc. Fields that cannot
// be classified are left out with a warning.
func (c *Classifier) Populate(node *TypeNode, desc *TypeDescriptor) {
	attrs := make(map[string]*TypeNode, len(desc.Fields))
	for _, f := range desc.Fields {
		target, err := c.Classify(f)
		if err != nil {
			c.logger.Warn("skipping field", "type", node.FullyQualifiedName, "field", f.Name, "error", err)
			continue
		}
		attrs[f.Name] = target
	}
	node.Attributes = attrs

	methods := make([]Method, len(desc.Methods))
	copy(methods, desc.Methods)
	node.Methods = methods
}

// EscapeSignature strips type prefix markers and escapes angle brackets so
// the signature can sit inside markup.
func EscapeSignature(sig string) string {
	for _, p := range typePrefixes {
		sig = strings.ReplaceAll(sig, p, "")
	}
	sig = strings.ReplaceAll(sig, "<", "&lt;")
	return strings.ReplaceAll(sig, ">", "&gt;")
}

// UnescapeSignature reverses the markup escaping done by EscapeSignature.
func UnescapeSignature(s string) string {
	r := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`)
	return r.Replace(s)
}
