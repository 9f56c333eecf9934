package balance

import (
	"strings"

	"github.com/sells-group/capstruct/internal/model"
)

// FindRow locates a balance-sheet row by concept first, then by label.
//
// Concept candidates are checked in priority order and the first full match
// across the whole row set wins; comparison ignores case and any taxonomy
// prefix ("us-gaap:Cash" matches "Cash"). Only when no concept matched are
// labels consulted: the row whose normalized label contains any of the
// keywords is returned. Concept precedence is strict so row order can never
// change which figure is picked.
func FindRow(sheet *model.BalanceSheet, concepts []string, labelKeywords []string) *model.BalanceSheetRow {
	for _, want := range concepts {
		wantBare := bareConcept(want)
		if wantBare == "" {
			continue
		}
		for i := range sheet.Rows {
			if bareConcept(sheet.Rows[i].Concept) == wantBare {
				return &sheet.Rows[i]
			}
		}
	}

	kws := make([]string, 0, len(labelKeywords))
	for _, kw := range labelKeywords {
		if n := normLabel(kw); n != "" {
			kws = append(kws, n)
		}
	}
	if len(kws) == 0 {
		return nil
	}

	for i := range sheet.Rows {
		label := normLabel(sheet.Rows[i].Label)
		if label == "" {
			continue
		}
		for _, kw := range kws {
			if strings.Contains(label, kw) {
				return &sheet.Rows[i]
			}
		}
	}

	return nil
}

func bareConcept(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if i := strings.LastIndex(c, ":"); i >= 0 {
		c = c[i+1:]
	}
	return c
}
