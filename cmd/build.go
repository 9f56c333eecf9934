package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/pipeline"
	"github.com/sells-group/capstruct/internal/render"
)

var (
	buildBalanceSheet string
	buildMetadata     string
	buildDebtNote     string
	buildLeaseNote    string
	buildMarketCapMM  float64
	buildTicker       string
	buildOutDir       string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a capital structure document from one set of filings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("build"); err != nil {
			return err
		}

		mc, err := resolveMarketCapFlag(ctx)
		if err != nil {
			return err
		}

		res, err := pipeline.Run(ctx, pipeline.Inputs{
			BalanceSheetPath: buildBalanceSheet,
			MetadataPath:     buildMetadata,
			DebtNotePath:     buildDebtNote,
			LeaseNotePath:    buildLeaseNote,
			MarketCapMM:      mc,
		}, pipeline.Options{ThousandsThreshold: cfg.Extract.ThousandsThreshold})
		if err != nil {
			return eris.Wrap(err, "build")
		}

		zap.L().Info("build complete",
			zap.String("company", res.Built.CompanyNameDisplay),
			zap.Int("score", res.Assessment.Score),
		)

		if buildOutDir != "" {
			if err := docio.WriteJSON(filepath.Join(buildOutDir, "built.json"), res.Built); err != nil {
				return err
			}
			if err := docio.WriteJSON(filepath.Join(buildOutDir, "assessment.json"), res.Assessment); err != nil {
				return err
			}
			html := render.Render(res.Built)
			if err := os.WriteFile(filepath.Join(buildOutDir, "capital_structure.html"), []byte(html), 0o644); err != nil {
				return eris.Wrap(err, "write html")
			}
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// resolveMarketCapFlag applies the override-wins rule for the CLI: an
// explicit --market-cap-mm beats --ticker; --ticker needs an FMP key.
func resolveMarketCapFlag(ctx context.Context) (*float64, error) {
	if buildMarketCapMM > 0 {
		mc := buildMarketCapMM
		return &mc, nil
	}
	if buildTicker == "" {
		return nil, eris.New("provide --market-cap-mm or --ticker")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "migrate store")
	}

	svc := initMarketCap(st)
	if svc == nil {
		return nil, eris.New("--ticker needs marketcap.fmp_api_key configured")
	}
	res, err := svc.Lookup(ctx, buildTicker)
	if err != nil {
		return nil, eris.Wrapf(err, "market cap lookup for %s", buildTicker)
	}
	zap.L().Info("market cap resolved",
		zap.String("ticker", buildTicker),
		zap.Float64("market_cap_mm", res.MarketCapMM),
		zap.String("source", res.Source),
	)
	mc := res.MarketCapMM
	return &mc, nil
}

func init() {
	buildCmd.Flags().StringVar(&buildBalanceSheet, "balance-sheet", "", "balance sheet JSON path (required)")
	buildCmd.Flags().StringVar(&buildMetadata, "metadata", "", "filing metadata JSON path (required)")
	buildCmd.Flags().StringVar(&buildDebtNote, "debt-note", "", "debt note HTML path (required)")
	buildCmd.Flags().StringVar(&buildLeaseNote, "lease-note", "", "lease note HTML path (required)")
	buildCmd.Flags().Float64Var(&buildMarketCapMM, "market-cap-mm", 0, "market cap in $mm (overrides --ticker lookup)")
	buildCmd.Flags().StringVar(&buildTicker, "ticker", "", "ticker to resolve market cap for")
	buildCmd.Flags().StringVar(&buildOutDir, "out", "", "write built.json, assessment.json and capital_structure.html here instead of stdout")
	_ = buildCmd.MarkFlagRequired("balance-sheet")
	_ = buildCmd.MarkFlagRequired("metadata")
	_ = buildCmd.MarkFlagRequired("debt-note")
	_ = buildCmd.MarkFlagRequired("lease-note")
	rootCmd.AddCommand(buildCmd)
}
