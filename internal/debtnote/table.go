package debtnote

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/capstruct/internal/htmltable"
	"github.com/sells-group/capstruct/internal/model"
)

var (
	dueInTextRe = regexp.MustCompile(`(?i)\bdue\s+[A-Za-z]+\s+\d{1,2},\s*\d{4}\b`)
	numberRe    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// numericFromCell parses a table cell into a float: strips currency
// symbols and thousands separators, treats parentheses as negation, and
// maps dash placeholders to nil. Falls back to the first number substring
// when the cell carries extra markup text.
func numericFromCell(text string) *float64 {
	s := htmltable.CleanSpace(text)
	switch s {
	case "", "—", "-", "–", "—-", "— —":
		return nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	switch s {
	case "", "—", "-", "–":
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		m := numberRe.FindString(s)
		if m == "" {
			return nil
		}
		v, err = strconv.ParseFloat(m, 64)
		if err != nil {
			return nil
		}
	}
	if neg {
		v = -v
	}
	return &v
}

// scaleToMM applies the thousands heuristic: magnitudes at or above the
// threshold are assumed to be expressed in thousands and divided by 1000.
// There is no unit metadata to consult, so the threshold is configurable.
func scaleToMM(v float64, threshold float64) float64 {
	if threshold <= 0 {
		threshold = DefaultThousandsThreshold
	}
	if v >= threshold || v <= -threshold {
		return v / 1000.0
	}
	return v
}

// classifyInstrument buckets an instrument name into a coarse type.
func classifyInstrument(name string) string {
	t := strings.ToLower(name)
	for _, k := range []string{"revolver", "revolving", "credit facility", "rcf", "line of credit", "credit agreement"} {
		if strings.Contains(t, k) {
			return model.TypeCreditFacility
		}
	}
	if strings.Contains(t, "term loan") {
		return model.TypeTermLoan
	}
	for _, k := range []string{"note", "debenture"} {
		if strings.Contains(t, k) {
			return model.TypeBond
		}
	}
	return model.TypeOtherDebt
}

// scheduleTable scores every table by the density of "due <Month D, YYYY>"
// phrases in its flattened text and returns the best one with its index
// and score. Ties keep the earliest table.
func scheduleTable(doc *goquery.Document) (*goquery.Selection, int, int) {
	var best *goquery.Selection
	bestIdx, bestScore := -1, 0
	doc.Find("table").Each(func(i int, tab *goquery.Selection) {
		score := len(dueInTextRe.FindAllString(htmltable.FlatText(tab), -1))
		if score > bestScore {
			best, bestIdx, bestScore = tab, i, score
		}
	})
	return best, bestIdx, bestScore
}

// instrumentsFromTable parses instrument rows out of the highest-scoring
// debt schedule table. A row qualifies when some cell contains a
// "due <date>" phrase; that cell is the instrument name, and the cells to
// its right are scanned for the first numeric token (amount) and then for
// either the literal "variable" or a percent-range numeric (coupon).
func instrumentsFromTable(doc *goquery.Document, threshold float64) ([]model.Instrument, []string) {
	var notes []string

	best, bestIdx, bestScore := scheduleTable(doc)
	if best == nil || bestScore == 0 {
		return nil, notes
	}
	notes = append(notes, fmt.Sprintf("Selected table #%d as primary debt schedule (score=%d).", bestIdx, bestScore))

	var instruments []model.Instrument
	best.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := htmltable.RowCells(tr)
		if len(cells) == 0 {
			return
		}

		nameIdx := -1
		for j, ct := range cells {
			if dueInTextRe.MatchString(ct) {
				nameIdx = j
				break
			}
		}
		if nameIdx < 0 || cells[nameIdx] == "" {
			return
		}
		name := cells[nameIdx]

		var amount *float64
		var coupon any
		for k := nameIdx + 1; k < len(cells); k++ {
			if amount == nil {
				if v := numericFromCell(cells[k]); v != nil {
					amount = v
					continue
				}
			}
			if coupon == nil {
				t := htmltable.CleanSpace(cells[k])
				if t == "" {
					continue
				}
				if strings.EqualFold(t, "variable") {
					coupon = "variable"
					break
				}
				if f := numericFromCell(t); f != nil && *f > 0 && *f < 100 {
					coupon = *f
					break
				}
			}
		}

		var maturity any
		if y, ok := maturityYearFromName(name); ok {
			maturity = y
		}
		priority := ""
		if strings.Contains(strings.ToLower(name), "unsecured") {
			priority = model.PriorityUnsecured
		}
		var amountMM *float64
		if amount != nil {
			v := scaleToMM(*amount, threshold)
			amountMM = &v
		}

		rowText := strings.Join(cells, " | ")
		if len(rowText) > 500 {
			rowText = rowText[:500]
		}

		instruments = append(instruments, model.Instrument{
			InstrumentName:      name,
			AmountOutstandingMM: amountMM,
			CouponPercent:       coupon,
			MaturityYear:        maturity,
			Priority:            priority,
			InstrumentType:      classifyInstrument(name),
			Provenance: map[string]any{
				"source":      "table",
				"table_index": bestIdx,
				"row_text":    rowText,
			},
		})
	})

	return instruments, notes
}
