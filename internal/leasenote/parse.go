// Package leasenote recovers operating and finance lease liabilities from
// an HTML lease footnote. Lease tables carry the value columns as a "$"
// marker cell followed by the numeric cell, so the amount is always the
// first numeric immediately after a "$" token, never the marker itself.
package leasenote

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/capstruct/internal/htmltable"
	"github.com/sells-group/capstruct/internal/model"
)

// DefaultThousandsThreshold matches the debt-note heuristic: raw
// magnitudes at or above it are treated as thousands.
const DefaultThousandsThreshold = 10_000

// Options controls a lease-note parse.
type Options struct {
	PeriodEndDateText  string
	ThousandsThreshold float64
}

// Result is the parsed lease note.
type Result struct {
	PeriodEndDateText string             `json:"period_end_date_text,omitempty"`
	Instruments       []model.Instrument `json:"instruments"`
	Notes             []string           `json:"notes"`
}

// target is one canonical lease-liability line label.
type target struct {
	key       string
	pretty    string
	leaseType string
}

var targets = []target{
	{"total operating lease liabilities", "Total operating lease liabilities", model.TypeOperatingLease},
	{"non current operating lease liabilities", "Non-current operating lease liabilities", model.TypeOperatingLease},
	{"total finance lease liabilities", "Total finance lease liabilities", model.TypeFinanceLease},
	{"non current finance lease liabilities", "Non-current finance lease liabilities", model.TypeFinanceLease},
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	plainNumRe   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

func norm(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// parseNumber reads strictly numeric lease cells: "2,358,693", "(461,528)"
// or "$ 1,234". Prose cells yield nil.
func parseNumber(cell string) *float64 {
	t := htmltable.CleanSpace(cell)
	if t == "" || t == "-" || t == "—" {
		return nil
	}
	t = strings.ReplaceAll(t, "US$", "")
	t = strings.ReplaceAll(t, "$", "")
	t = strings.TrimSpace(t)
	neg := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		neg = true
		t = strings.TrimSpace(t[1 : len(t)-1])
	}
	t = strings.ReplaceAll(t, ",", "")
	t = strings.ReplaceAll(t, " ", "")
	if !plainNumRe.MatchString(t) {
		return nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return nil
	}
	if neg {
		v = -v
	}
	return &v
}

func toMM(raw float64, threshold float64) float64 {
	if threshold <= 0 {
		threshold = DefaultThousandsThreshold
	}
	if raw >= threshold || raw <= -threshold {
		return raw / 1000.0
	}
	return raw
}

// matchTarget matches a row against the canonical labels on its first
// cell, or the first two cells joined when the label wraps across cells.
func matchTarget(row []string) (target, bool) {
	if len(row) == 0 {
		return target{}, false
	}
	c0 := norm(row[0])
	candidates := []string{c0}
	if len(row) > 1 {
		candidates = append(candidates, strings.TrimSpace(c0+" "+norm(row[1])))
	}
	for _, tg := range targets {
		for _, cand := range candidates {
			if cand == tg.key {
				return tg, true
			}
		}
	}
	return target{}, false
}

// firstAmountAfterDollar returns the first numeric cell immediately
// following a literal "$" cell, with its index.
func firstAmountAfterDollar(row []string) (*float64, int) {
	for i := 0; i < len(row)-1; i++ {
		if htmltable.CleanSpace(row[i]) != "$" {
			continue
		}
		if v := parseNumber(row[i+1]); v != nil {
			return v, i + 1
		}
	}
	return nil, -1
}

// lastNumeric is the fallback tier when no "$"-marked pair exists.
func lastNumeric(row []string) (*float64, int) {
	var out *float64
	idx := -1
	for i, cell := range row {
		if v := parseNumber(cell); v != nil {
			out, idx = v, i
		}
	}
	return out, idx
}

// Parse reads the lease note HTML and extracts lease-liability
// instruments. Finding nothing is an informational note, not an error.
func Parse(r io.Reader, opts Options) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "leasenote: parse html")
	}
	return parseDoc(doc, opts), nil
}

func parseDoc(doc *goquery.Document, opts Options) *Result {
	var instruments []model.Instrument
	var notes []string

	doc.Find("table").Each(func(ti int, table *goquery.Selection) {
		matrix := htmltable.Matrix(table)
		if len(matrix) < 3 {
			return
		}
		var joined strings.Builder
		for _, row := range matrix {
			joined.WriteString(strings.ToLower(strings.Join(row, " ")))
			joined.WriteByte(' ')
		}
		if !strings.Contains(joined.String(), "lease liabilities") {
			return
		}

		for _, row := range matrix {
			tg, ok := matchTarget(row)
			if !ok {
				continue
			}

			raw, usedIdx := firstAmountAfterDollar(row)
			if raw == nil {
				raw, usedIdx = lastNumeric(row)
			}
			if raw == nil {
				continue
			}

			amountMM := round3(toMM(*raw, opts.ThousandsThreshold))
			instruments = append(instruments, model.Instrument{
				InstrumentName:      tg.pretty,
				AmountOutstandingMM: &amountMM,
				MaturityYear:        "Various",
				Priority:            model.PrioritySeniorSecured,
				InstrumentType:      tg.leaseType,
				Provenance: map[string]any{
					"table_index":          ti,
					"period_end_date_text": opts.PeriodEndDateText,
					"value_cell_index":     usedIdx,
					"row_text":             strings.Join(row, " | "),
					"html_snippet":         htmltable.Snippet(table, 1200),
				},
			})
		}
	})

	// Structured-markup renderings repeat the same visual table; drop
	// exact repeats, keeping the first occurrence.
	seen := map[string]struct{}{}
	deduped := instruments[:0]
	for _, ins := range instruments {
		key := fmt.Sprintf("%s|%v|%s", ins.InstrumentName, *ins.AmountOutstandingMM, ins.InstrumentType)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, ins)
	}

	if len(deduped) == 0 {
		notes = append(notes, "No lease instruments extracted (pattern may differ in this filing).")
	}

	return &Result{
		PeriodEndDateText: opts.PeriodEndDateText,
		Instruments:       deduped,
		Notes:             notes,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
