package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"graffiti/internal/crawler"
	"graffiti/internal/graph"
	"graffiti/internal/pipeline"
	"graffiti/internal/report"
	"graffiti/internal/storage"
	"graffiti/internal/watch"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <archive.jar|dir>",
	Short: "Analyse a JAR and write its HTML site with one graph per class",
	Long: `Analyse a JAR and write its HTML site with one graph per class.

Given a directory, every JAR below it is rendered into its own sub
directory of the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if !info.IsDir() {
			fmt.Printf("📦 Rendering %s\n", args[0])
			rep, err := pipeline.NewRunner(cfg, store, logger).Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSummary(rep, cfg.Output.Dir)
			return nil
		}

		jars, err := crawler.NewCrawler().FindArchives(args[0])
		if err != nil {
			return err
		}
		if len(jars) == 0 {
			return fmt.Errorf("no %s files under %s", crawler.ArchiveExtension, args[0])
		}
		fmt.Printf("📂 Found %d archives in %s\n", len(jars), args[0])

		var failed int
		for _, jar := range jars {
			sub := *cfg
			sub.Output.Dir = filepath.Join(cfg.Output.Dir, crawler.OutputName(jar))

			fmt.Printf("📦 Rendering %s\n", jar)
			// The snapshot database holds one archive; keep the last one.
			rep, err := pipeline.NewRunner(&sub, store, logger).Run(cmd.Context(), jar)
			if err != nil {
				if cmd.Context().Err() != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "⚠️  %s: %v\n", jar, err)
				failed++
				continue
			}
			printSummary(rep, sub.Output.Dir)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d archives failed", failed, len(jars))
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [fqn]",
	Short: "Show a type from the last stored snapshot, or list all stored types",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Path == "" {
			return errors.New("no snapshot database: set store.path or --db")
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if len(args) == 0 {
			return listTypes(ctx, store)
		}
		rec, err := store.LoadType(ctx, args[0])
		if err != nil {
			return err
		}
		impact, err := storage.AnalyzeImpact(ctx, store, rec.FullyQualifiedName)
		if err != nil {
			return err
		}
		printType(rec, impact)
		return nil
	},
}

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <archive.jar>",
	Short: "Render a JAR, then render it again every time it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		runner := pipeline.NewRunner(cfg, store, logger)
		jar := args[0]
		once := func(ctx context.Context) error {
			rep, err := runner.Run(ctx, jar)
			if err != nil {
				return err
			}
			printSummary(rep, cfg.Output.Dir)
			return nil
		}

		// A broken first run still starts the watch, so fixing the build
		// fixes the site.
		if err := once(cmd.Context()); err != nil {
			logger.Error("initial run failed", "error", err)
		}

		w, err := watch.New(jar, watchDebounce, once, logger)
		if err != nil {
			return err
		}
		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", jar)
		return w.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a change triggers a run")
}

func printSummary(rep *report.Report, outDir string) {
	fmt.Printf("✅ %d classes, %d interfaces, %d abstract classes\n",
		rep.Counts.Classes, rep.Counts.Interfaces, rep.Counts.AbstractClasses)
	fmt.Printf("   %d pages, %d images\n", rep.Pages, rep.Images)
	if n := len(rep.Failures); n > 0 {
		fmt.Printf("⚠️  %d types skipped, see %s\n", n, filepath.Join(outDir, pipeline.ReportFile))
	}
	fmt.Printf("🎉 Open %s\n", filepath.Join(outDir, "index.html"))
}

func listTypes(ctx context.Context, store storage.Store) error {
	run, err := store.LastRun(ctx)
	if err != nil {
		return err
	}
	types, err := store.ListTypes(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (run %s, %s)\n", run.Archive, run.RunID, run.CreatedAt.Format(time.RFC3339))
	for _, fqn := range types {
		fmt.Println("  " + fqn)
	}
	for _, f := range run.Failures {
		fmt.Printf("  ✗ %s: %s: %s\n", f.FullyQualifiedName, f.Reason, f.Message)
	}
	return nil
}

func printType(rec *storage.TypeRecord, impact *storage.ImpactReport) {
	fmt.Println(rec.FullyQualifiedName)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nATTRIBUTE\tTYPE\tKIND")
	for _, a := range rec.Attributes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, graph.UnescapeSignature(a.Target), a.Kind)
	}
	tw.Flush()

	fmt.Println("\nMETHODS")
	for _, m := range rec.Methods {
		fmt.Printf("  [%s] %s\n", m.Visibility, m.Signature)
	}

	fmt.Println("\nREFERENCED BY")
	for _, fqn := range impact.DirectlyAffected {
		fmt.Println("  " + fqn)
	}
	for _, fqn := range impact.IndirectlyAffected {
		fmt.Println("  " + fqn + " (indirect)")
	}
}
