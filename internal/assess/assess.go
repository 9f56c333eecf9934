// Package assess audits an assembled capital structure document. It
// recomputes the arithmetic identities independently of the builder and
// reports findings as data; nothing here ever blocks a build.
package assess

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sells-group/capstruct/internal/model"
)

// Tolerance bands for the arithmetic identity checks, in $mm.
const (
	passTolerance = 0.05
	warnTolerance = 0.5
)

// Maturity years outside this window are treated as extraction noise.
const (
	minSaneMaturityYear = 1990
	maxSaneMaturityYear = 2100
)

// Evaluate runs the full check suite over a built document and returns
// the ordered findings plus the derived score. The document may come
// from any assembler whose output matches the same shape.
func Evaluate(doc *model.CapitalStructure) *model.Assessment {
	var checks []model.Check

	instruments := doc.AllInstruments()
	sumInst := 0.0
	for _, ins := range instruments {
		if ins.AmountOutstandingMM != nil {
			sumInst += *ins.AmountOutstandingMM
		}
	}

	checks = append(checks, identityCheck(
		"arith_total_debt",
		"Total Debt", "sum of instruments",
		doc.TotalDebtMM, &sumInst,
	))
	var expectedNet *float64
	if doc.TotalDebtMM != nil && doc.CashMM != nil {
		v := *doc.TotalDebtMM - *doc.CashMM
		expectedNet = &v
	}
	checks = append(checks, identityCheck(
		"arith_net_debt",
		"Net Debt", "Total Debt - Cash",
		doc.NetDebtMM, expectedNet,
	))
	var expectedEV *float64
	if doc.NetDebtMM != nil && doc.NoncontrollingInterestsMM != nil && doc.MarketCapMM != nil {
		v := *doc.NetDebtMM + *doc.NoncontrollingInterestsMM + *doc.MarketCapMM
		expectedEV = &v
	}
	checks = append(checks, identityCheck(
		"arith_enterprise_value",
		"Enterprise Value", "Net Debt + NCI + Market Cap",
		doc.EnterpriseValueMM, expectedEV,
	))

	checks = append(checks, sanityChecks(instruments)...)

	return &model.Assessment{
		Score:  model.ComputeScore(checks),
		Checks: checks,
	}
}

// identityCheck compares a stated figure against its recomputed value
// using the three-tier tolerance. A missing operand on either side makes
// the check a skip-warn, never a fail.
func identityCheck(id, statedName, formula string, stated, expected *float64) model.Check {
	if stated == nil || expected == nil {
		return model.Check{
			ID:      id,
			Status:  model.CheckWarn,
			Message: fmt.Sprintf("%s check skipped (missing operand).", statedName),
		}
	}

	delta := round3(math.Abs(*stated - *expected))
	status := model.CheckFail
	verdict := "differs from"
	switch {
	case delta <= passTolerance:
		status = model.CheckPass
		verdict = "matches"
	case delta <= warnTolerance:
		status = model.CheckWarn
		verdict = "slightly differs from"
	}
	return model.Check{
		ID:      id,
		Status:  status,
		Message: fmt.Sprintf("%s %s %s (Δ=%.3f).", statedName, verdict, formula, delta),
		Delta:   &delta,
	}
}

func sanityChecks(instruments []model.Instrument) []model.Check {
	var checks []model.Check

	missingFields := 0
	negAmounts := 0
	maturityFlagged := false
	for _, ins := range instruments {
		if ins.InstrumentName == "" && ins.Priority == "" {
			missingFields++
		}
		if ins.AmountOutstandingMM != nil && *ins.AmountOutstandingMM < -1e-6 {
			negAmounts++
		}
		if !maturityFlagged {
			if y, ok := maturityYear(ins); ok && (y < minSaneMaturityYear || y > maxSaneMaturityYear) {
				checks = append(checks, model.Check{
					ID:      "sanity_maturity",
					Status:  model.CheckWarn,
					Message: fmt.Sprintf("Suspicious maturity year: %d for %s.", y, ins.InstrumentName),
				})
				// First offender only; the rest would just repeat the
				// same extraction problem.
				maturityFlagged = true
			}
		}
	}

	if missingFields == 0 {
		checks = append(checks, model.Check{
			ID:      "completeness",
			Status:  model.CheckPass,
			Message: "All instruments have basic required fields (name/priority).",
		})
	} else {
		checks = append(checks, model.Check{
			ID:      "completeness",
			Status:  model.CheckWarn,
			Message: fmt.Sprintf("%d instrument(s) missing name/priority.", missingFields),
		})
	}

	if negAmounts == 0 {
		checks = append(checks, model.Check{
			ID:      "sanity_negative_amounts",
			Status:  model.CheckPass,
			Message: "No negative outstanding amounts detected.",
		})
	} else {
		checks = append(checks, model.Check{
			ID:      "sanity_negative_amounts",
			Status:  model.CheckFail,
			Message: fmt.Sprintf("%d instrument(s) have negative outstanding amounts.", negAmounts),
		})
	}

	return checks
}

func maturityYear(ins model.Instrument) (int, bool) {
	if y, ok := ins.MaturityYearInt(); ok {
		return y, true
	}
	if s, ok := ins.MaturityYear.(string); ok {
		if y, err := strconv.Atoi(s); err == nil {
			return y, true
		}
	}
	return 0, false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
