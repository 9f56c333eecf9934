package model

// Subtotal wraps a priority group's summed outstanding amount.
type Subtotal struct {
	SubtotalOutstandingMM float64 `json:"subtotal_outstanding_mm"`
}

// PriorityGroup holds the instruments of one seniority bucket in display
// order. Invariant: Subtotal equals the sum of member amounts, rounded to
// 3 decimals.
type PriorityGroup struct {
	Priority    string       `json:"priority"`
	Instruments []Instrument `json:"instruments"`
	Subtotal    Subtotal     `json:"subtotal"`
}

// IssuerGroup is one issuer's ordered priority groups.
type IssuerGroup struct {
	Issuer         string          `json:"issuer"`
	PriorityGroups []PriorityGroup `json:"priority_groups"`
}

// BuildProvenance collects the extractor-internal audit trails. Used only
// for citation display, never for computation.
type BuildProvenance struct {
	BalanceSheet map[string]any `json:"balance_sheet"`
	DebtNotes    []string       `json:"debt_notes"`
	LeaseNotes   []string       `json:"lease_notes"`
}

// CapitalStructure is the merged, build-time-immutable record.
//
// The derived scalars are pointers so a figure that could not be computed
// stays null in the output instead of silently becoming zero; the
// self-assessment treats a null operand as a skipped check.
type CapitalStructure struct {
	CompanyName        string `json:"company_name"`
	CompanyNameDisplay string `json:"company_name_display"`
	Ticker             string `json:"ticker,omitempty"`
	CIK                string `json:"cik,omitempty"`
	AnnualPeriod       int    `json:"annual_period"`

	PeriodEndDateText     string `json:"period_end_date_text"`
	SelectedPeriodEndDate string `json:"selected_period_end_date"`

	IssuerGroups []IssuerGroup `json:"issuer_groups"`

	TotalDebtMM               *float64 `json:"total_debt_mm"`
	CashMM                    *float64 `json:"cash_mm"`
	NetDebtMM                 *float64 `json:"net_debt_mm"`
	NoncontrollingInterestsMM *float64 `json:"noncontrolling_interests_mm"`
	MarketCapMM               *float64 `json:"market_cap_mm"`
	EnterpriseValueMM         *float64 `json:"enterprise_value_mm"`

	Notes []string `json:"notes"`

	Provenance BuildProvenance `json:"provenance"`
}

// AllInstruments walks the issuer hierarchy and returns every instrument in
// display order.
func (c *CapitalStructure) AllInstruments() []Instrument {
	var out []Instrument
	for _, ig := range c.IssuerGroups {
		for _, pg := range ig.PriorityGroups {
			out = append(out, pg.Instruments...)
		}
	}
	return out
}
