package balance

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/capstruct/internal/model"
)

// ErrMissingAnnualPeriod is returned when the companion metadata document
// has no annual_period field. There is no default year to fall back to.
var ErrMissingAnnualPeriod = eris.New("balance: metadata missing required field annual_period")

var cashConcepts = []string{
	// Prefer the combined concept: filers that report restricted cash on
	// the same line tag it this way and the plain concept is absent.
	"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents",
	"CashAndCashEquivalentsAtCarryingValue",
	"CashAndCashEquivalents",
}

var cashLabelKeywords = []string{
	"cash and cash equivalents",
	"restricted cash",
	"cash, cash equivalents and restricted cash",
}

var nciConcepts = []string{
	"MinorityInterest",
	"NoncontrollingInterest",
	"NoncontrollingInterests",
	"NoncontrollingInterestEquity",
}

var nciLabelKeywords = []string{
	"noncontrolling interests",
	"non controlling interests",
	"minority interest",
}

// Extract holds the balance-sheet inputs the builder needs: cash,
// noncontrolling interests, company identity and the selected period.
type Extract struct {
	AnnualPeriod          int     `json:"annual_period"`
	SelectedPeriodKey     string  `json:"selected_period_key"`
	SelectedPeriodEndDate string  `json:"selected_period_end_date,omitempty"`
	PeriodEndDateText     string  `json:"period_end_date_text,omitempty"`
	CompanyName           string  `json:"company_name"`
	Ticker                string  `json:"ticker,omitempty"`
	CIK                   string  `json:"cik,omitempty"`

	CashMM *float64 `json:"cash_and_cash_equivalents_mm"`
	NCIMM  float64  `json:"noncontrolling_interests_mm"`

	Provenance map[string]any `json:"provenance"`
}

// ExtractFrom pulls cash and noncontrolling interests from the balance
// sheet for the fiscal year named by the metadata document.
//
// A missing noncontrolling-interests row defaults to 0.0; a missing cash
// row stays nil and surfaces later as a skipped validator check rather
// than a fabricated zero.
func ExtractFrom(sheet *model.BalanceSheet, meta *model.Metadata) (*Extract, error) {
	if sheet == nil {
		return nil, eris.New("balance: nil balance sheet")
	}
	if meta == nil || meta.AnnualPeriod == nil {
		return nil, ErrMissingAnnualPeriod
	}
	year := *meta.AnnualPeriod

	periodKey, endDate := ResolvePeriod(sheet, year)

	companyName := sheet.CompanyName
	if companyName == "" {
		companyName = sheet.EntityName
	}
	if companyName == "" {
		companyName = meta.CompanyName
	}
	if companyName == "" {
		companyName = "Company"
	}
	ticker := sheet.Ticker
	if ticker == "" {
		ticker = meta.Ticker
	}
	cik := sheet.CIK
	if cik == "" {
		cik = meta.CIK
	}

	cashRow := FindRow(sheet, cashConcepts, cashLabelKeywords)
	cashMM := Round3(rowValueMM(cashRow, periodKey))

	nciRow := FindRow(sheet, nciConcepts, nciLabelKeywords)
	nciMM := 0.0
	if v := Round3(rowValueMM(nciRow, periodKey)); v != nil {
		nciMM = *v
	}

	return &Extract{
		AnnualPeriod:          year,
		SelectedPeriodKey:     periodKey,
		SelectedPeriodEndDate: endDate,
		PeriodEndDateText:     LongDate(endDate),
		CompanyName:           companyName,
		Ticker:                ticker,
		CIK:                   cik,
		CashMM:                cashMM,
		NCIMM:                 nciMM,
		Provenance: map[string]any{
			"cash":                     rowProvenance(cashRow, periodKey),
			"noncontrolling_interests": rowProvenance(nciRow, periodKey),
		},
	}, nil
}

func rowValueMM(row *model.BalanceSheetRow, periodKey string) *float64 {
	if row == nil {
		return nil
	}
	obj, ok := row.Values[periodKey]
	if !ok {
		return nil
	}
	return ToMillions(obj)
}

func rowProvenance(row *model.BalanceSheetRow, periodKey string) map[string]any {
	if row == nil {
		return nil
	}
	var raw any
	if obj, ok := row.Values[periodKey]; ok {
		raw = obj
	}
	return map[string]any{
		"concept":       row.Concept,
		"label":         row.Label,
		"period_key":    periodKey,
		"raw_value_obj": raw,
	}
}

// LongDate renders an ISO calendar date as its long US form,
// "2024-12-28" becoming "December 28, 2024". Unparseable input is
// returned unchanged.
func LongDate(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%s %d, %d", t.Month(), t.Day(), t.Year())
}
