// Package pipeline orchestrates the extraction stages: balance sheet
// first (it anchors the period label the note parsers need), then the
// debt and lease notes, then the builder and the self-assessment.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/capstruct/internal/assess"
	"github.com/sells-group/capstruct/internal/balance"
	"github.com/sells-group/capstruct/internal/build"
	"github.com/sells-group/capstruct/internal/debtnote"
	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/leasenote"
	"github.com/sells-group/capstruct/internal/model"
)

// Inputs are the four source document paths plus the market cap figure
// (already resolved by the caller; the pipeline itself does no lookups).
type Inputs struct {
	BalanceSheetPath string
	MetadataPath     string
	DebtNotePath     string
	LeaseNotePath    string
	MarketCapMM      *float64
}

// Options tune the extraction heuristics.
type Options struct {
	// ThousandsThreshold is passed to both note parsers; zero keeps the
	// parser defaults.
	ThousandsThreshold float64
}

// Result is the pipeline output: the built document and its assessment.
type Result struct {
	Built      *model.CapitalStructure `json:"built"`
	Assessment *model.Assessment       `json:"assessment"`
}

// Run executes the full pipeline over one set of input documents. Each
// run is a pure function of its inputs; the only fatal conditions are
// the structural ones (missing annual_period, unresolvable period end).
func Run(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("balance_sheet", in.BalanceSheetPath))
	start := time.Now()
	log.Info("pipeline: starting build")

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: context cancelled")
	}

	sheet, err := docio.ReadJSON[model.BalanceSheet](in.BalanceSheetPath)
	if err != nil {
		return nil, err
	}
	meta, err := docio.ReadJSON[model.Metadata](in.MetadataPath)
	if err != nil {
		return nil, err
	}

	bsx, err := balance.ExtractFrom(sheet, meta)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: balance sheet extracted",
		zap.String("period_key", bsx.SelectedPeriodKey),
		zap.String("period_end", bsx.SelectedPeriodEndDate),
	)

	debt, err := parseDebtNote(in.DebtNotePath, bsx, opts)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: debt note parsed", zap.Int("instruments", len(debt.Instruments)))

	lease, err := parseLeaseNote(in.LeaseNotePath, bsx, opts)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: lease note parsed", zap.Int("instruments", len(lease.Instruments)))

	built, err := build.Build(bsx, debt, lease, in.MarketCapMM)
	if err != nil {
		return nil, err
	}

	assessment := assess.Evaluate(built)
	log.Info("pipeline: build complete",
		zap.Int("score", assessment.Score),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Built: built, Assessment: assessment}, nil
}

func parseDebtNote(path string, bsx *balance.Extract, opts Options) (*debtnote.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open debt note %s", path)
	}
	defer f.Close()

	return debtnote.Parse(f, debtnote.Options{
		PeriodEndDateText:  bsx.PeriodEndDateText,
		ParentCompanyName:  bsx.CompanyName,
		ThousandsThreshold: opts.ThousandsThreshold,
	})
}

func parseLeaseNote(path string, bsx *balance.Extract, opts Options) (*leasenote.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open lease note %s", path)
	}
	defer f.Close()

	return leasenote.Parse(f, leasenote.Options{
		PeriodEndDateText:  bsx.PeriodEndDateText,
		ThousandsThreshold: opts.ThousandsThreshold,
	})
}
