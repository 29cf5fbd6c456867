package storage

import (
	"context"
	"errors"
	"time"

	"graffiti/internal/graph"
)

// ErrNotFound is returned when a type is absent from the stored snapshot.
var ErrNotFound = errors.New("type not found in snapshot")

// Store persists the outcome of an analysis run.
type Store interface {
	// SaveSnapshot replaces the stored snapshot with s.
	SaveSnapshot(ctx context.Context, s *Snapshot) error

	// LoadType returns one Resolved type of the stored snapshot.
	LoadType(ctx context.Context, fqn string) (*TypeRecord, error)

	// ListTypes returns the FQNs of the stored snapshot in lexical order.
	ListTypes(ctx context.Context) ([]string, error)

	// Dependents returns the stored types with an attribute of type fqn.
	Dependents(ctx context.Context, fqn string) ([]string, error)

	// LastRun describes the run that produced the stored snapshot.
	LastRun(ctx context.Context) (*RunRecord, error)

	Close() error
}

// Snapshot is everything one run knows about an archive.
type Snapshot struct {
	RunID     string
	Archive   string
	CreatedAt time.Time
	Counts    graph.Counts
	Types     []*graph.TypeNode
	Failures  []graph.EntryFailure
}

// RunRecord is the stored header of a snapshot.
type RunRecord struct {
	RunID     string
	Archive   string
	CreatedAt time.Time
	Counts    graph.Counts
	Failures  []FailureRecord
}

// FailureRecord is a stored graph.EntryFailure.
type FailureRecord struct {
	FullyQualifiedName string
	Reason             graph.FailureReason
	Message            string
}

// TypeRecord is a stored Resolved type with its outgoing attributes.
type TypeRecord struct {
	FullyQualifiedName string
	Name               string
	Package            string
	Attributes         []AttributeRecord
	Methods            []graph.Method
}

// AttributeRecord is one field of a stored type and the node it points to.
type AttributeRecord struct {
	Name   string
	Kind   graph.Kind
	Target string
	Page   string
}
