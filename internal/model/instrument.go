package model

// Seniority classes. Grouping only recognizes these three buckets.
const (
	PrioritySeniorSecured = "Senior Secured"
	PriorityUnsecured     = "Unsecured"
	PrioritySubordinated  = "Subordinated"
)

// Instrument types.
const (
	TypeBond           = "bond"
	TypeCreditFacility = "credit_facility"
	TypeTermLoan       = "term_loan"
	TypeOtherDebt      = "other_debt"
	TypeOperatingLease = "operating_lease"
	TypeFinanceLease   = "finance_lease"
)

// Instrument is a single debt or lease liability. Only AmountOutstandingMM
// participates in downstream arithmetic; every other field may be absent
// without invalidating the instrument.
//
// CouponPercent is a float64, the literal "variable", or nil.
// MaturityYear is an int year, the literal "Various", or nil.
type Instrument struct {
	InstrumentName      string         `json:"instrument_name"`
	AmountOutstandingMM *float64       `json:"amount_outstanding_mm"`
	AmountAvailableMM   *float64       `json:"amount_available_mm"`
	CouponPercent       any            `json:"coupon_percent"`
	MaturityYear        any            `json:"maturity_year"`
	Priority            string         `json:"priority,omitempty"`
	ParentIssuer        string         `json:"parent_issuer,omitempty"`
	IssueDate           string         `json:"issue_date,omitempty"`
	InstrumentType      string         `json:"instrument_type,omitempty"`
	LienLevel           string         `json:"lien_level,omitempty"`
	Provenance          map[string]any `json:"provenance,omitempty"`
}

// MaturityYearInt returns the maturity year when it parses as an integer.
func (i Instrument) MaturityYearInt() (int, bool) {
	switch v := i.MaturityYear.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
