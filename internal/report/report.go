// Package report records what a run did: its stages, the per-type
// failures it absorbed and the resulting counts.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"graffiti/internal/graph"
)

const (
	Version = "v1"

	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

//go:embed report.schema.json
var schemaJSON []byte

const schemaURL = "mem://graffiti/report.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Failure is a graph.EntryFailure in report form.
type Failure struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type Summary struct {
	StageCount       int            `json:"stage_count"`
	FailedStages     int            `json:"failed_stages"`
	FailureCount     int            `json:"failure_count"`
	FailuresByReason map[string]int `json:"failures_by_reason,omitempty"`
}

// Report is written as report.json at the end of every run.
type Report struct {
	Version     string        `json:"version"`
	RunID       string        `json:"run_id"`
	Archive     string        `json:"archive"`
	OutputDir   string        `json:"output_dir"`
	GeneratedAt string        `json:"generated_at"`
	Counts      graph.Counts  `json:"counts"`
	Types       int           `json:"types"`
	Pages       int           `json:"pages"`
	Images      int           `json:"images"`
	Stages      []StageMetric `json:"stages"`
	Failures    []Failure     `json:"failures"`
	Summary     Summary       `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

// New starts a report for archive with a fresh run id.
func New(archive, outputDir string) *Report {
	return &Report{
		Version:     Version,
		RunID:       uuid.NewString(),
		Archive:     archive,
		OutputDir:   outputDir,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Failures:    []Failure{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

// EndStage records a finished stage. A non-nil err turns an "ok" status
// into "error".
func (r *Report) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || h.name == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = StatusOK
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == StatusOK {
			m.Status = StatusError
		}
	}
	r.Stages = append(r.Stages, m)
}

// AddFailures appends per-type failures.
func (r *Report) AddFailures(fs ...graph.EntryFailure) {
	if r == nil {
		return
	}
	for _, f := range fs {
		out := Failure{Type: f.FullyQualifiedName, Reason: string(f.Reason)}
		if f.Err != nil {
			out.Error = f.Err.Error()
		}
		r.Failures = append(r.Failures, out)
	}
}

// Failed reports whether any stage ended in error.
func (r *Report) Failed() bool {
	for _, st := range r.Stages {
		if st.Status == StatusError {
			return true
		}
	}
	return false
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	sort.SliceStable(r.Failures, func(i, j int) bool {
		if r.Failures[i].Type == r.Failures[j].Type {
			return r.Failures[i].Reason < r.Failures[j].Reason
		}
		return r.Failures[i].Type < r.Failures[j].Type
	})

	failed := 0
	for _, st := range r.Stages {
		if st.Status != StatusOK && st.Status != StatusSkipped {
			failed++
		}
	}
	byReason := make(map[string]int)
	for _, f := range r.Failures {
		byReason[f.Reason]++
	}
	if len(byReason) == 0 {
		byReason = nil
	}

	r.Summary = Summary{
		StageCount:       len(r.Stages),
		FailedStages:     failed,
		FailureCount:     len(r.Failures),
		FailuresByReason: byReason,
	}
}

// Validate checks the report against the embedded JSON schema.
func (r *Report) Validate() error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile report schema: %w", err)
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report for schema validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize report for schema validation: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("report schema validation failed: %w", err)
	}
	return nil
}

// Save finalizes, validates and writes the report as indented JSON.
func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := r.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Load reads a report written by Save.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &r, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
