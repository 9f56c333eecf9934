package balance

import (
	"sort"
	"strings"

	"github.com/sells-group/capstruct/internal/model"
)

// UnknownPeriod is the placeholder key used when no column metadata and no
// row value keys are available to anchor the reporting period.
const UnknownPeriod = "UNKNOWN"

// ResolvePeriod picks the reporting-period column for the requested fiscal
// year.
//
// Candidate columns for the year are ranked: fiscal_quarter == 4 first,
// then period_type == "instant", breaking remaining ties by the latest
// end_date. When no column matches the year the first column is used;
// when there are no columns at all the first value key found on any row
// is used; failing that the key is UnknownPeriod.
func ResolvePeriod(sheet *model.BalanceSheet, fiscalYear int) (key string, end string) {
	var candidates []model.Period
	for _, p := range sheet.Columns {
		if p.FiscalYear != nil && *p.FiscalYear == fiscalYear {
			candidates = append(candidates, p)
		}
	}

	if len(candidates) > 0 {
		best := candidates[0]
		bestScore := periodScore(best)
		for _, p := range candidates[1:] {
			if s := periodScore(p); s > bestScore || (s == bestScore && p.EndDate > best.EndDate) {
				best, bestScore = p, s
			}
		}
		return best.Key, best.EndDate
	}

	if len(sheet.Columns) > 0 {
		p := sheet.Columns[0]
		return p.Key, p.EndDate
	}

	// No column metadata: fall back to any value key present on the rows.
	keys := map[string]struct{}{}
	for _, row := range sheet.Rows {
		for k := range row.Values {
			keys[k] = struct{}{}
		}
	}
	if len(keys) > 0 {
		flat := make([]string, 0, len(keys))
		for k := range keys {
			flat = append(flat, k)
		}
		sort.Strings(flat)
		return flat[0], ""
	}

	return UnknownPeriod, ""
}

func periodScore(p model.Period) int {
	score := 0
	if p.FiscalQuarter != nil && *p.FiscalQuarter == 4 {
		score += 2
	}
	if strings.EqualFold(p.PeriodType, "instant") {
		score++
	}
	return score
}
