// Package build merges the three extraction outputs into the consolidated
// capital structure document.
package build

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/capstruct/internal/balance"
	"github.com/sells-group/capstruct/internal/debtnote"
	"github.com/sells-group/capstruct/internal/leasenote"
	"github.com/sells-group/capstruct/internal/model"
)

// ErrNoPeriodEndDate is returned when the balance-sheet extraction could
// not resolve a period end date; the note parsers have nothing to anchor
// their period label on.
var ErrNoPeriodEndDate = eris.New("build: could not derive selected period end date from balance sheet")

// priorityOrder is the fixed display order of the seniority buckets. Any
// other priority value falls out of the grouping entirely; see the
// companion design notes for why that behavior is preserved as-is.
var priorityOrder = []string{
	model.PrioritySeniorSecured,
	model.PriorityUnsecured,
	model.PrioritySubordinated,
}

// standardNotes is the fixed notes array carried on every built document.
var standardNotes = []string{
	"Market Cap and most recent FY EBITDA come from Seeking Alpha",
	"All debt amounts come from the most recent 10-K filing",
	"Following amounts are hardcoded: price, yield",
}

// Build assembles the capital structure document from the balance-sheet
// extract, the two parsed notes, and an externally supplied market cap.
//
// Missing inputs degrade: a nil cash figure keeps net debt and enterprise
// value null rather than forcing them to zero, and a nil market cap does
// the same for enterprise value. The only fatal condition here is a
// missing period end date.
func Build(bsx *balance.Extract, debt *debtnote.Result, lease *leasenote.Result, marketCapMM *float64) (*model.CapitalStructure, error) {
	if bsx == nil || bsx.SelectedPeriodEndDate == "" {
		return nil, ErrNoPeriodEndDate
	}

	display := PrettifyCompanyName(bsx.CompanyName)

	var leaseInstruments, debtInstruments []model.Instrument
	var debtNotes, leaseNotes []string
	if lease != nil {
		leaseInstruments = append(leaseInstruments, lease.Instruments...)
		leaseNotes = lease.Notes
	}
	if debt != nil {
		debtInstruments = append(debtInstruments, debt.Instruments...)
		debtNotes = debt.Notes
	}

	// The grouping key must be stable for leases regardless of what the
	// extractor set.
	for i := range leaseInstruments {
		leaseInstruments[i].Priority = model.PrioritySeniorSecured
	}

	all := make([]model.Instrument, 0, len(leaseInstruments)+len(debtInstruments))
	all = append(all, leaseInstruments...)
	all = append(all, debtInstruments...)
	for i := range all {
		all[i].AmountOutstandingMM = balance.Round3(all[i].AmountOutstandingMM)
		all[i].AmountAvailableMM = balance.Round3(all[i].AmountAvailableMM)
	}

	byPriority := map[string][]model.Instrument{}
	for _, ins := range all {
		p := ins.Priority
		if p == "" {
			p = model.PriorityUnsecured
		}
		byPriority[p] = append(byPriority[p], ins)
	}

	var priorityGroups []model.PriorityGroup
	for _, priority := range priorityOrder {
		insts, ok := byPriority[priority]
		if !ok {
			continue
		}
		if priority == model.PriorityUnsecured {
			sortUnsecured(insts)
		}
		priorityGroups = append(priorityGroups, model.PriorityGroup{
			Priority:    priority,
			Instruments: insts,
			Subtotal:    model.Subtotal{SubtotalOutstandingMM: sumAmounts(insts)},
		})
	}

	totalDebt := sumAmounts(all)

	doc := &model.CapitalStructure{
		CompanyName:           bsx.CompanyName,
		CompanyNameDisplay:    display,
		Ticker:                bsx.Ticker,
		CIK:                   bsx.CIK,
		AnnualPeriod:          bsx.AnnualPeriod,
		PeriodEndDateText:     balance.LongDate(bsx.SelectedPeriodEndDate),
		SelectedPeriodEndDate: bsx.SelectedPeriodEndDate,
		IssuerGroups: []model.IssuerGroup{
			{Issuer: display, PriorityGroups: priorityGroups},
		},
		TotalDebtMM:               &totalDebt,
		CashMM:                    balance.Round3(bsx.CashMM),
		NoncontrollingInterestsMM: fptr(round3(bsx.NCIMM)),
		MarketCapMM:               balance.Round3(marketCapMM),
		Notes:                     standardNotes,
		Provenance: model.BuildProvenance{
			BalanceSheet: bsx.Provenance,
			DebtNotes:    debtNotes,
			LeaseNotes:   leaseNotes,
		},
	}

	if doc.CashMM != nil {
		doc.NetDebtMM = fptr(round3(totalDebt - *doc.CashMM))
	}
	if doc.NetDebtMM != nil && doc.MarketCapMM != nil {
		doc.EnterpriseValueMM = fptr(round3(*doc.NetDebtMM + *doc.NoncontrollingInterestsMM + *doc.MarketCapMM))
	}

	return doc, nil
}

// sortUnsecured orders the Unsecured bucket: revolving credit facilities
// first, then ascending maturity with absent maturities last.
func sortUnsecured(insts []model.Instrument) {
	sort.SliceStable(insts, func(a, b int) bool {
		ra, ya := unsecuredRank(insts[a])
		rb, yb := unsecuredRank(insts[b])
		if ra != rb {
			return ra < rb
		}
		return ya < yb
	})
}

func unsecuredRank(ins model.Instrument) (int, int) {
	if strings.Contains(ins.InstrumentName, "Revolving Credit Facility") {
		return 0, 0
	}
	if y, ok := ins.MaturityYearInt(); ok {
		return 1, y
	}
	return 1, 9999
}

func sumAmounts(insts []model.Instrument) float64 {
	s := 0.0
	for _, ins := range insts {
		if ins.AmountOutstandingMM != nil {
			s += *ins.AmountOutstandingMM
		}
	}
	return round3(s)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func fptr(v float64) *float64 { return &v }
