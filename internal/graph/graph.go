package graph

import (
	"sort"
	"strings"
)

// Registry maps fully-qualified names to the Resolved nodes discovered in
// one archive. It holds only Resolved nodes and is scoped to a single run.
type Registry struct {
	nodes map[string]*TypeNode
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*TypeNode)}
}

// GetOrCreate returns the node registered under fqn, inserting an empty
// Resolved node first if there is none.
func (r *Registry) GetOrCreate(fqn string) *TypeNode {
	if n, ok := r.nodes[fqn]; ok {
		return n
	}
	n := &TypeNode{
		Name:               ShortName(fqn),
		FullyQualifiedName: fqn,
		kind:               KindResolved,
	}
	r.nodes[fqn] = n
	return n
}

// Lookup returns the node registered under fqn.
func (r *Registry) Lookup(fqn string) (*TypeNode, bool) {
	n, ok := r.nodes[fqn]
	return n, ok
}

// Remove drops fqn from the registry. Removing an absent key is a no-op.
func (r *Registry) Remove(fqn string) {
	delete(r.nodes, fqn)
}

// Reset empties the registry so it can serve another run.
func (r *Registry) Reset() {
	r.nodes = make(map[string]*TypeNode)
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Nodes returns a snapshot of the registered nodes ordered by FQN.
func (r *Registry) Nodes() []*TypeNode {
	out := make([]*TypeNode, 0, len(r.nodes))
	for _, fqn := range sortedKeys(r.nodes) {
		out = append(out, r.nodes[fqn])
	}
	return out
}

// ShortName returns the part of a dotted name after the last dot.
func ShortName(fqn string) string {
	return fqn[strings.LastIndex(fqn, ".")+1:]
}

func sortedKeys(m map[string]*TypeNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
