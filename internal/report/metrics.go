package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "graffiti"

// WriteMetrics exports the report in the Prometheus text format to path,
// for pickup by the node exporter textfile collector.
func (r *Report) WriteMetrics(path string) error {
	reg := prometheus.NewRegistry()

	types := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "types",
		Help:      "Archive types by declaration form.",
	}, []string{"archive", "category"})
	failures := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "type_failures",
		Help:      "Types dropped from the run, by reason.",
	}, []string{"archive", "reason"})
	stageSeconds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of each pipeline stage.",
	}, []string{"archive", "stage", "status"})
	artifacts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "artifacts",
		Help:      "Files produced by the run.",
	}, []string{"archive", "artifact"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "last_run_failed",
		Help:        "1 when a stage of the last run ended in error.",
		ConstLabels: prometheus.Labels{"archive": r.Archive},
	})

	for _, c := range []prometheus.Collector{types, failures, stageSeconds, artifacts, lastRun} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}

	types.WithLabelValues(r.Archive, "class").Set(float64(r.Counts.Classes))
	types.WithLabelValues(r.Archive, "interface").Set(float64(r.Counts.Interfaces))
	types.WithLabelValues(r.Archive, "abstract").Set(float64(r.Counts.AbstractClasses))

	for _, f := range r.Failures {
		failures.WithLabelValues(r.Archive, f.Reason).Inc()
	}
	for _, st := range r.Stages {
		stageSeconds.WithLabelValues(r.Archive, st.Name, st.Status).Set(float64(st.DurationMS) / 1000)
	}
	artifacts.WithLabelValues(r.Archive, "page").Set(float64(r.Pages))
	artifacts.WithLabelValues(r.Archive, "image").Set(float64(r.Images))
	if r.Failed() {
		lastRun.Set(1)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
