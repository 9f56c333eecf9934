// Package debtnote recovers debt instruments from an XBRL-rendered HTML
// debt footnote. The schedule table is the primary source of instrument
// rows; a second narrative pass back-fills issue dates and adds credit
// facilities that are mentioned only in prose.
package debtnote

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/capstruct/internal/htmltable"
	"github.com/sells-group/capstruct/internal/model"
)

// DefaultThousandsThreshold is the magnitude at which a raw table value is
// assumed to be expressed in thousands rather than millions.
const DefaultThousandsThreshold = 10_000

// Options controls a debt-note parse.
type Options struct {
	// PeriodEndDateText is carried through to the output for provenance.
	PeriodEndDateText string
	// ParentCompanyName is an optional display name for the filer.
	ParentCompanyName string
	// ThousandsThreshold overrides DefaultThousandsThreshold; zero keeps
	// the default.
	ThousandsThreshold float64
	// Matchers overrides the narrative matcher set; nil keeps the default.
	Matchers []Matcher
}

// Result is the parsed debt note.
type Result struct {
	ParentCompanyName string             `json:"parent_company_name,omitempty"`
	PeriodEndDateText string             `json:"period_end_date_text,omitempty"`
	Instruments       []model.Instrument `json:"instruments"`
	Notes             []string           `json:"notes"`
}

var issuedByRe = regexp.MustCompile(`\bissued by\s+([A-Z][A-Za-z0-9&\-\., ]+)\b`)

// Parse reads the debt note HTML and extracts its instruments. A note
// with no scoring table yields an empty instrument list, not an error.
func Parse(r io.Reader, opts Options) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "debtnote: parse html")
	}
	return parseDoc(doc, opts), nil
}

func parseDoc(doc *goquery.Document, opts Options) *Result {
	fullText := htmltable.FlatText(doc.Selection)

	instruments, notes := instrumentsFromTable(doc, opts.ThousandsThreshold)

	matchers := opts.Matchers
	if matchers == nil {
		matchers = DefaultMatchers()
	}
	facts := RunMatchers(fullText, matchers)

	if len(facts.IssueDateByDue) > 0 {
		notes = append(notes, fmt.Sprintf("Built issue-date map from narrative with %d entries.", len(facts.IssueDateByDue)))
	}
	for i := range instruments {
		due := dueDateTextFromName(instruments[i].InstrumentName)
		if due == "" {
			continue
		}
		if iso, ok := facts.IssueDateByDue[due]; ok {
			instruments[i].IssueDate = iso
		}
	}

	if len(facts.Facilities) > 0 {
		notes = append(notes, fmt.Sprintf("Extracted %d credit facility instrument(s) from narrative.", len(facts.Facilities)))
	}
	existing := map[string]struct{}{}
	for _, ins := range instruments {
		existing[strings.ToLower(ins.InstrumentName)] = struct{}{}
	}
	for _, cf := range facts.Facilities {
		if _, dup := existing[strings.ToLower(cf.InstrumentName)]; !dup {
			instruments = append(instruments, cf)
		}
	}

	if issuer := parentIssuerFromText(fullText); issuer != "" {
		for i := range instruments {
			if instruments[i].ParentIssuer == "" {
				instruments[i].ParentIssuer = issuer
			}
		}
	}

	sort.SliceStable(instruments, func(a, b int) bool {
		ya, yb := maturitySortYear(instruments[a]), maturitySortYear(instruments[b])
		if ya != yb {
			return ya < yb
		}
		return instruments[a].InstrumentName < instruments[b].InstrumentName
	})

	return &Result{
		ParentCompanyName: opts.ParentCompanyName,
		PeriodEndDateText: opts.PeriodEndDateText,
		Instruments:       instruments,
		Notes:             notes,
	}
}

func maturitySortYear(ins model.Instrument) int {
	if y, ok := ins.MaturityYearInt(); ok {
		return y
	}
	return 9999
}

func parentIssuerFromText(text string) string {
	m := issuedByRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return htmltable.CleanSpace(m[1])
}
