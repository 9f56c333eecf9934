package model

// Period identifies one reporting column of a balance sheet export.
type Period struct {
	Key           string `json:"key"`
	FiscalYear    *int   `json:"fiscal_year,omitempty"`
	FiscalQuarter *int   `json:"fiscal_quarter,omitempty"`
	PeriodType    string `json:"period_type,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
}

// ValueObject is a raw balance-sheet cell. Filers emit either an absolute
// numeric value or a display string plus a power-of-ten scale; several
// exports carry numbers as strings, so the fields stay loosely typed and
// are coerced during normalization.
type ValueObject struct {
	NumericValue any `json:"numeric_value,omitempty"`
	DisplayValue any `json:"display_value,omitempty"`
	Scale        any `json:"scale,omitempty"`
}

// BalanceSheetRow is a single line item keyed by period.
type BalanceSheetRow struct {
	Concept string                 `json:"concept"`
	Label   string                 `json:"label"`
	Values  map[string]ValueObject `json:"values"`
}

// BalanceSheet is the structured balance-sheet export document.
type BalanceSheet struct {
	CompanyName string            `json:"company_name,omitempty"`
	EntityName  string            `json:"entity_name,omitempty"`
	Ticker      string            `json:"ticker,omitempty"`
	CIK         string            `json:"cik,omitempty"`
	Columns     []Period          `json:"columns"`
	Rows        []BalanceSheetRow `json:"rows"`
}

// Metadata is the companion document carrying the target fiscal year.
// AnnualPeriod is required; its absence is fatal for the whole build.
type Metadata struct {
	AnnualPeriod *int   `json:"annual_period"`
	Ticker       string `json:"ticker,omitempty"`
	CIK          string `json:"cik,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
}
