package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/pipeline"
	"github.com/sells-group/capstruct/internal/render"
)

var (
	batchConcurrency int
	batchOutDir      string
)

// batchEntry is one line of the batch manifest.
type batchEntry struct {
	Name         string   `yaml:"name"`
	BalanceSheet string   `yaml:"balance_sheet"`
	Metadata     string   `yaml:"metadata"`
	DebtNote     string   `yaml:"debt_note"`
	LeaseNote    string   `yaml:"lease_note"`
	MarketCapMM  *float64 `yaml:"market_cap_mm"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Build capital structures for a manifest of filings",
	Long:  "Reads a YAML manifest listing one document set per entry and runs the pipeline over them concurrently.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		entries, err := loadManifest(args[0])
		if err != nil {
			return err
		}
		return processBatch(ctx, entries, batchConcurrency, batchOutDir,
			pipeline.Options{ThousandsThreshold: cfg.Extract.ThousandsThreshold})
	},
}

func loadManifest(path string) ([]batchEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read manifest")
	}
	var entries []batchEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrap(err, "parse manifest")
	}
	for i, e := range entries {
		if e.Name == "" {
			return nil, eris.Errorf("manifest entry %d: name is required", i)
		}
		if e.MarketCapMM == nil {
			return nil, eris.Errorf("manifest entry %q: market_cap_mm is required", e.Name)
		}
	}
	return entries, nil
}

// processBatch runs the pipeline over each entry concurrently and writes
// per-entry artifacts under outDir. Individual failures do not abort the
// batch.
func processBatch(ctx context.Context, entries []batchEntry, concurrency int, outDir string, opts pipeline.Options) error {
	if len(entries) == 0 {
		zap.L().Info("manifest is empty")
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("entries", len(entries)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			log := zap.L().With(zap.String("entry", entry.Name))

			res, err := pipeline.Run(gctx, pipeline.Inputs{
				BalanceSheetPath: entry.BalanceSheet,
				MetadataPath:     entry.Metadata,
				DebtNotePath:     entry.DebtNote,
				LeaseNotePath:    entry.LeaseNote,
				MarketCapMM:      entry.MarketCapMM,
			}, opts)
			if err != nil {
				failed.Add(1)
				log.Error("build failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			dir := filepath.Join(outDir, entry.Name)
			if err := docio.WriteJSON(filepath.Join(dir, "built.json"), res.Built); err != nil {
				failed.Add(1)
				log.Error("write artifacts failed", zap.Error(err))
				return nil
			}
			if err := docio.WriteJSON(filepath.Join(dir, "assessment.json"), res.Assessment); err != nil {
				failed.Add(1)
				log.Error("write artifacts failed", zap.Error(err))
				return nil
			}
			html := render.Render(res.Built)
			if err := os.WriteFile(filepath.Join(dir, "capital_structure.html"), []byte(html), 0o644); err != nil {
				failed.Add(1)
				log.Error("write artifacts failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			log.Info("build complete", zap.Int("score", res.Assessment.Score))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max concurrent builds")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "out", "directory for per-entry artifacts")
	rootCmd.AddCommand(batchCmd)
}
