// Package htmltable provides the shared goquery plumbing for scanning
// filing-footnote markup: whitespace-safe text flattening, colspan-aware
// row expansion and provenance snippets.
package htmltable

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var wsRe = regexp.MustCompile(`\s+`)

// CleanSpace collapses all whitespace runs (including non-breaking spaces)
// into single spaces and trims the ends.
func CleanSpace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// FlatText flattens a selection's text with spaces between nodes so
// adjacent words never concatenate.
func FlatText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, n *goquery.Selection) {
		if goquery.NodeName(n) == "#text" {
			b.WriteString(n.Text())
			b.WriteByte(' ')
			return
		}
		b.WriteString(FlatText(n))
		b.WriteByte(' ')
	})
	return CleanSpace(b.String())
}

// RowCells returns the text of each cell in a table row, expanding
// colspans by repeating the cell text so column indexes stay stable
// across header and data rows.
func RowCells(tr *goquery.Selection) []string {
	var out []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		text := CleanSpace(FlatText(cell))
		span := 1
		if cs, ok := cell.Attr("colspan"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(cs)); err == nil && n > 1 {
				span = n
			}
		}
		for i := 0; i < span; i++ {
			out = append(out, text)
		}
	})

	// Nested markup sometimes buries the cells below wrapper elements.
	if len(out) == 0 {
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			out = append(out, CleanSpace(FlatText(cell)))
		})
	}

	return out
}

// Matrix renders a table element into rows of cell text, skipping rows
// that are entirely blank.
func Matrix(table *goquery.Selection) [][]string {
	var matrix [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := RowCells(tr)
		for _, c := range row {
			if c != "" {
				matrix = append(matrix, row)
				return
			}
		}
	})
	return matrix
}

// Snippet returns the outer HTML of a selection truncated for provenance
// display.
func Snippet(sel *goquery.Selection, maxChars int) string {
	h, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	if len(h) > maxChars {
		return h[:maxChars] + "..."
	}
	return h
}
