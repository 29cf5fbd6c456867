package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"

	"graffiti/internal/archive"
	"graffiti/internal/classfile"
	"graffiti/internal/graph"
	"graffiti/internal/render"
	"graffiti/internal/report"
	"graffiti/internal/site"
	"graffiti/internal/source"
	"graffiti/internal/storage"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                3,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func (rn *run) scan(_ context.Context) (string, map[string]float64, error) {
	scanner, err := archive.NewScanner(rn.cfg.Archive.Include, rn.cfg.Archive.Exclude)
	if err != nil {
		return "", nil, err
	}
	arc, err := scanner.Open(rn.jarPath)
	if err != nil {
		return "", nil, err
	}
	rn.arc = arc
	if len(arc.Classes) == 0 && len(arc.Sources) == 0 {
		return "", nil, ErrNoTypes
	}
	rn.logger.Info("archive scanned", "classes", len(arc.Classes), "sources", len(arc.Sources))
	return report.StatusOK, map[string]float64{
		"classes": float64(len(arc.Classes)),
		"sources": float64(len(arc.Sources)),
	}, nil
}

func (rn *run) analyze(ctx context.Context) (string, map[string]float64, error) {
	var provider graph.DescriptorProvider
	counters := map[string]float64{}

	if rn.arc.IsSourceOnly() {
		sp, err := source.NewProvider(ctx, rn.arc, rn.arc.Sources, rn.logger)
		if err != nil {
			return "", nil, fmt.Errorf("parse sources: %w", err)
		}
		sp.Populate(rn.registry)
		counters["skipped_sources"] = float64(len(sp.Skipped()))
		provider = sp
		rn.logger.Info("describing types from sources", "types", rn.registry.Len())
	} else {
		cp, err := classfile.NewProvider(rn.arc, 0)
		if err != nil {
			return "", nil, err
		}
		rn.arc.Populate(rn.registry)
		provider = cp
	}

	res, err := graph.Analyze(ctx, rn.registry, provider, rn.logger)
	if err != nil {
		return "", nil, err
	}
	rn.result = res
	rn.failures = append(rn.failures, res.Failures...)
	rn.rep.Counts = res.Counts
	rn.rep.Types = rn.registry.Len()

	if rn.logger.Enabled(ctx, slog.LevelDebug) {
		for _, n := range rn.registry.Nodes() {
			rn.logger.Debug("class structure", "type", n.FullyQualifiedName, "dump", dumper.Sdump(n))
		}
	}

	counters["types"] = float64(rn.registry.Len())
	counters["failed"] = float64(len(res.Failures))
	status := report.StatusOK
	if len(res.Failures) > 0 {
		status = report.StatusPartial
	}
	return status, counters, nil
}

func (rn *run) writeDOT(_ context.Context) (string, map[string]float64, error) {
	if err := os.MkdirAll(rn.layout.Dot, 0o755); err != nil {
		return "", nil, fmt.Errorf("create %s: %w", rn.layout.Dot, err)
	}
	before := len(rn.failures)
	builder := graph.NewBuilder(rn.logger)
	writer := graph.NewDotWriter(rn.cfg.Graphviz.Label)

	for _, n := range rn.registry.Nodes() {
		g, err := builder.Build(n)
		if err != nil {
			rn.fail(n.FullyQualifiedName, graph.ReasonGraphFailed, err)
			continue
		}
		path := filepath.Join(rn.layout.Dot, n.FullyQualifiedName+graph.DotFileExtension)
		if err := writeFile(path, writer, g); err != nil {
			rn.fail(n.FullyQualifiedName, graph.ReasonWriteFailed, err)
			continue
		}
		rn.dots[n.FullyQualifiedName] = path
	}
	return partial(before, len(rn.failures)), map[string]float64{"files": float64(len(rn.dots))}, nil
}

func writeFile(path string, w *graph.DotWriter, g *graph.TypeGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.Write(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (rn *run) copyAssets(_ context.Context) (string, map[string]float64, error) {
	w, err := site.New(site.Options{
		Root:     rn.layout.Root,
		ImageDir: rn.layout.Images,
		CSSDir:   rn.layout.CSS,
		JSDir:    rn.layout.JS,
		Label:    rn.cfg.Graphviz.Label,
		Markdown: rn.cfg.Site.Markdown,
	}, rn.logger)
	if err != nil {
		return "", nil, err
	}
	rn.site = w
	if err := w.CopyAssets(); err != nil {
		return "", nil, err
	}
	return report.StatusOK, nil, nil
}

// render runs dot for every DOT file, at most Graphviz.Workers at a time. A
// missing executable skips the stage: pages are still written, without
// images.
func (rn *run) render(ctx context.Context) (string, map[string]float64, error) {
	if err := os.MkdirAll(rn.layout.Images, 0o755); err != nil {
		return "", nil, fmt.Errorf("create %s: %w", rn.layout.Images, err)
	}
	renderer := render.NewRenderer(rn.cfg.Graphviz.Executable, rn.layout.Images, rn.logger)
	if err := renderer.Available(); err != nil {
		rn.logger.Warn("graphviz unavailable, pages will have no diagrams", "error", err)
		return report.StatusSkipped, nil, nil
	}

	before := len(rn.failures)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if w := rn.cfg.Graphviz.Workers; w > 0 {
		g.SetLimit(w)
	}

	for fqn, path := range rn.dots {
		fqn, path := fqn, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := renderer.Render(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rn.fail(fqn, graph.ReasonRenderFailed, err)
				return nil
			}
			rn.logger.Debug("image rendered", "type", fqn, "duration", time.Since(start))
			rn.maps[fqn] = res.Map
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	rn.rep.Images = len(rn.maps)
	return partial(before, len(rn.failures)), map[string]float64{"images": float64(len(rn.maps))}, nil
}

func (rn *run) writePages(_ context.Context) (string, map[string]float64, error) {
	before := len(rn.failures)
	pages := 0
	for _, n := range rn.registry.Nodes() {
		if err := rn.site.WriteClass(n, rn.maps[n.FullyQualifiedName]); err != nil {
			rn.fail(n.FullyQualifiedName, graph.ReasonWriteFailed, err)
			continue
		}
		pages++
	}
	rn.rep.Pages += pages
	return partial(before, len(rn.failures)), map[string]float64{"pages": float64(pages)}, nil
}

func (rn *run) writeIndex(_ context.Context) (string, map[string]float64, error) {
	err := rn.site.WriteIndex(site.IndexData{
		JarName:  rn.rep.Archive,
		Counts:   rn.result.Counts,
		Maven:    rn.arc.Maven,
		Types:    rn.registry.Nodes(),
		Failures: rn.failures,
	})
	if err != nil {
		return "", nil, err
	}
	rn.rep.Pages++
	return report.StatusOK, nil, nil
}

func (rn *run) saveSnapshot(ctx context.Context) (string, map[string]float64, error) {
	if rn.store == nil {
		return report.StatusSkipped, nil, nil
	}
	err := rn.store.SaveSnapshot(ctx, &storage.Snapshot{
		RunID:     rn.rep.RunID,
		Archive:   rn.rep.Archive,
		CreatedAt: time.Now().UTC(),
		Counts:    rn.result.Counts,
		Types:     rn.registry.Nodes(),
		Failures:  rn.failures,
	})
	if err != nil {
		return "", nil, err
	}
	return report.StatusOK, map[string]float64{"types": float64(rn.registry.Len())}, nil
}
