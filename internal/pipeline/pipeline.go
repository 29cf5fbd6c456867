// Package pipeline runs a whole archive through analysis, graph rendering
// and site generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"graffiti/internal/archive"
	"graffiti/internal/config"
	"graffiti/internal/graph"
	"graffiti/internal/render"
	"graffiti/internal/report"
	"graffiti/internal/site"
	"graffiti/internal/storage"
)

// ErrNoTypes is returned for an archive with neither class nor source
// entries.
var ErrNoTypes = errors.New("archive contains no classes or sources")

// ReportFile is written into the output root after every run.
const ReportFile = "report.json"

// Runner executes runs with a fixed configuration. A Runner may serve
// several runs one after the other; each run gets a fresh registry.
type Runner struct {
	cfg    *config.Config
	layout config.Layout
	store  storage.Store
	logger *slog.Logger
}

// NewRunner creates a runner. store may be nil to skip snapshots.
func NewRunner(cfg *config.Config, store storage.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, layout: cfg.Layout(), store: store, logger: logger}
}

// run carries the state of one Run call between stages.
type run struct {
	cfg     *config.Config
	layout  config.Layout
	store   storage.Store
	logger  *slog.Logger
	jarPath string

	rep      *report.Report
	arc      *archive.Archive
	registry *graph.Registry
	result   *graph.AnalysisResult
	failures []graph.EntryFailure
	dots     map[string]string
	maps     map[string]*render.ImageMap
	site     *site.Writer
}

type stage struct {
	name string
	fn   func(context.Context) (string, map[string]float64, error)
}

// Run processes jarPath. Per-type problems are absorbed into the report;
// the returned error is set only when the run as a whole could not
// complete. The report is saved and returned in both cases.
func (r *Runner) Run(ctx context.Context, jarPath string) (rep *report.Report, err error) {
	rn := &run{
		cfg:      r.cfg,
		layout:   r.layout,
		store:    r.store,
		jarPath:  jarPath,
		rep:      report.New(filepath.Base(jarPath), r.layout.Root),
		registry: graph.NewRegistry(),
		dots:     make(map[string]string),
		maps:     make(map[string]*render.ImageMap),
	}
	rn.logger = r.logger.With("run_id", rn.rep.RunID, "archive", rn.rep.Archive)

	started := time.Now()
	rn.logger.Info("run started", "output", r.layout.Root)

	defer func() {
		if rn.arc != nil {
			if cerr := rn.arc.Close(); cerr != nil {
				rn.logger.Warn("close archive", "error", cerr)
			}
		}
		if serr := rn.finish(); serr != nil {
			if err == nil {
				err = serr
			} else {
				rn.logger.Error("report not saved", "error", serr)
			}
		}
		rep = rn.rep
		if err != nil {
			rn.logger.Error("run failed", "error", err, "duration", time.Since(started))
			return
		}
		rn.logger.Info("run finished",
			"types", rn.rep.Types,
			"pages", rn.rep.Pages,
			"images", rn.rep.Images,
			"failures", len(rn.failures),
			"duration", time.Since(started))
	}()

	stages := []stage{
		{"scan", rn.scan},
		{"analyze", rn.analyze},
		{"dot", rn.writeDOT},
		{"assets", rn.copyAssets},
		{"render", rn.render},
		{"pages", rn.writePages},
		{"index", rn.writeIndex},
		{"store", rn.saveSnapshot},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := rn.rep.BeginStage(st.name)
		status, counters, err := st.fn(ctx)
		rn.rep.EndStage(h, status, counters, nil, err)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return rn.rep, nil
}

// fail records a per-type failure. The run continues.
func (rn *run) fail(fqn string, reason graph.FailureReason, err error) {
	rn.logger.Warn("type skipped", "type", fqn, "reason", reason, "error", err)
	rn.failures = append(rn.failures, graph.EntryFailure{
		FullyQualifiedName: fqn,
		Reason:             reason,
		Err:                err,
	})
}

// finish saves report.json and, when configured, the metrics textfile.
func (rn *run) finish() error {
	rn.rep.AddFailures(rn.failures...)
	if err := rn.rep.Save(filepath.Join(rn.layout.Root, ReportFile)); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if path := rn.cfg.Metrics.TextFile; path != "" {
		if err := rn.rep.WriteMetrics(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// partial is the stage status for a stage that lost some types.
func partial(before, after int) string {
	if after > before {
		return report.StatusPartial
	}
	return report.StatusOK
}
