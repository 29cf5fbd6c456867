package graph

import (
	"context"
	"fmt"
	"log/slog"
)

// FailureReason names why a single entry dropped out of the run.
type FailureReason string

const (
	ReasonDescribeFailed FailureReason = "describe_failed"
	ReasonGraphFailed    FailureReason = "graph_failed"
	ReasonWriteFailed    FailureReason = "write_failed"
	ReasonRenderFailed   FailureReason = "render_failed"
)

// EntryFailure records one type that could not be processed. The run
// continues past it.
type EntryFailure struct {
	FullyQualifiedName string
	Reason             FailureReason
	Err                error
}

func (f EntryFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.FullyQualifiedName, f.Reason, f.Err)
}

func (f EntryFailure) Unwrap() error {
	return f.Err
}

// Counts tallies the declaration forms seen during analysis.
type Counts struct {
	Classes         int `json:"classes"`
	Interfaces      int `json:"interfaces"`
	AbstractClasses int `json:"abstract_classes"`
}

func (c *Counts) add(cat Category) {
	switch cat {
	case CategoryInterface:
		c.Interfaces++
	case CategoryAbstract:
		c.AbstractClasses++
	default:
		c.Classes++
	}
}

// AnalysisResult is the outcome of classifying a whole registry.
type AnalysisResult struct {
	Counts   Counts
	Failures []EntryFailure
}

// Analyze describes and classifies every registered node. A node whose
// descriptor cannot be obtained is removed from the registry and reported
// as a failure; it never stops the others. All removals happen before any
// field is classified, so no attribute points at a removed node.
func Analyze(ctx context.Context, r *Registry, p DescriptorProvider, logger *slog.Logger) (*AnalysisResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &AnalysisResult{}

	// 1. Describe
	described := make(map[string]*TypeDescriptor, r.Len())
	for _, node := range r.Nodes() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		logger.Debug("loading type", "type", node.FullyQualifiedName)
		desc, err := p.Describe(ctx, node.FullyQualifiedName)
		if err == nil && desc == nil {
			err = fmt.Errorf("no descriptor returned")
		}
		if err != nil {
			logger.Error("analysis failed", "type", node.FullyQualifiedName, "error", err)
			r.Remove(node.FullyQualifiedName)
			res.Failures = append(res.Failures, EntryFailure{
				FullyQualifiedName: node.FullyQualifiedName,
				Reason:             ReasonDescribeFailed,
				Err:                err,
			})
			continue
		}
		described[node.FullyQualifiedName] = desc
		res.Counts.add(desc.Category)
	}

	// 2. Classify against the settled registry
	c := NewClassifier(r, logger)
	for _, node := range r.Nodes() {
		c.Populate(node, described[node.FullyQualifiedName])
		logger.Debug("type analysed",
			"type", node.FullyQualifiedName,
			"fields", len(node.Attributes),
			"methods", len(node.Methods))
	}

	return res, nil
}
