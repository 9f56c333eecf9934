package debtnote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/capstruct/internal/htmltable"
	"github.com/sells-group/capstruct/internal/model"
)

// NarrativeFacts accumulates what the narrative matchers recover from the
// flattened note text.
type NarrativeFacts struct {
	// IssueDateByDue maps a maturity-date string as it appears in an
	// instrument name ("March 9, 2026") to an ISO issue date.
	IssueDateByDue map[string]string
	// Facilities are credit-facility instruments described only in prose.
	Facilities []model.Instrument
}

// Matcher recognizes one narrative filing idiom. Matchers run in order
// over the full flattened text and append into the shared fact set; new
// idioms slot in without touching the merge logic.
type Matcher interface {
	Name() string
	Confidence() string
	Apply(fullText string, facts *NarrativeFacts)
}

// DefaultMatchers is the ordered production matcher set.
func DefaultMatchers() []Matcher {
	return []Matcher{
		issueDateMatcher{},
		creditFacilityMatcher{},
	}
}

// RunMatchers applies each matcher in order and returns the combined facts.
func RunMatchers(fullText string, matchers []Matcher) *NarrativeFacts {
	facts := &NarrativeFacts{IssueDateByDue: map[string]string{}}
	for _, m := range matchers {
		m.Apply(fullText, facts)
	}
	return facts
}

// issueDateMatcher pairs a maturity date with an issue date from the
// "senior unsecured notes due <date> ... were issued <date>" idiom. This
// is the most reliable generic pattern across issuers.
type issueDateMatcher struct{}

var issueDateRe = regexp.MustCompile(
	`(?is)senior\s+unsecured\s+notes\s+due\s+([A-Za-z]+\s+\d{1,2},\s*\d{4}).{0,250}?were\s+issued\s+([A-Za-z]+\s+\d{1,2},\s*\d{4})`,
)

func (issueDateMatcher) Name() string       { return "issue_date_from_were_issued" }
func (issueDateMatcher) Confidence() string { return "high" }

func (issueDateMatcher) Apply(fullText string, facts *NarrativeFacts) {
	for _, m := range issueDateRe.FindAllStringSubmatch(fullText, -1) {
		dueTxt := htmltable.CleanSpace(m[1])
		issTxt := htmltable.CleanSpace(m[2])
		if _, ok := parseUSDate(dueTxt); !ok {
			continue
		}
		issued, ok := parseUSDate(issTxt)
		if !ok {
			continue
		}
		facts.IssueDateByDue[dueTxt] = issued.Format("2006-01-02")
	}
}

// creditFacilityMatcher detects revolving credit facilities that appear
// only in prose, of the form "On <date>, ... [secured|unsecured] revolving
// credit facility ... (the "<name> Credit Agreement")", and separately
// scans for maturity-date amendments keyed by the agreement name, keeping
// the latest.
type creditFacilityMatcher struct{}

var (
	facilityStartRe = regexp.MustCompile(
		`(?is)\bOn\s+([A-Za-z]+\s+\d{1,2},\s*\d{4}),\s+.*?\b(?:(secured|unsecured)\s+)?revolving\s+credit\s+facility\b.*?\(\s*the\s+[` + "“" + `"']([^` + "”" + `"']*?Credit Agreement)[` + "”" + `"']\s*\)`,
	)
	facilityMaturityRe = regexp.MustCompile(
		`(?is)\bmaturity\s+date\b.*?(?:the\s+)?([A-Za-z0-9][A-Za-z0-9\s\-]{0,60}?Credit Agreement)\b.*?\bto\s+([A-Za-z]+\s+\d{1,2},\s*\d{4})`,
	)
	agreementArticleRe = regexp.MustCompile(`(?i)^(?:of\s+)?(?:the\s+)?`)
)

func (creditFacilityMatcher) Name() string       { return "credit_facility_from_narrative" }
func (creditFacilityMatcher) Confidence() string { return "medium" }

func (creditFacilityMatcher) Apply(fullText string, facts *NarrativeFacts) {
	maturities := map[string]int{}
	for _, m := range facilityMaturityRe.FindAllStringSubmatch(fullText, -1) {
		agreement := agreementArticleRe.ReplaceAllString(htmltable.CleanSpace(m[1]), "")
		d, ok := parseUSDate(htmltable.CleanSpace(m[2]))
		if agreement == "" || !ok {
			continue
		}
		if y := d.Year(); y > maturities[agreement] {
			maturities[agreement] = y
		}
	}

	for _, m := range facilityStartRe.FindAllStringSubmatch(fullText, -1) {
		issued, ok := parseUSDate(htmltable.CleanSpace(m[1]))
		if !ok {
			continue
		}
		secUnsec := strings.ToLower(htmltable.CleanSpace(m[2]))
		if secUnsec == "" {
			secUnsec = "unsecured"
		}
		agreement := agreementArticleRe.ReplaceAllString(htmltable.CleanSpace(m[3]), "")
		if agreement == "" {
			continue
		}

		priority := titleWord(secUnsec)
		zero := 0.0
		var maturity any
		if y, ok := maturities[agreement]; ok {
			maturity = y
		}

		facts.Facilities = append(facts.Facilities, model.Instrument{
			InstrumentName:      fmt.Sprintf("%s Revolving Credit Facility (%s)", priority, agreement),
			AmountOutstandingMM: &zero,
			CouponPercent:       "variable",
			MaturityYear:        maturity,
			Priority:            priority,
			IssueDate:           issued.Format("2006-01-02"),
			InstrumentType:      model.TypeCreditFacility,
			Provenance: map[string]any{
				"source":         "narrative",
				"agreement_name": agreement,
			},
		})
	}
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
