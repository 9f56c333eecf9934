// Package render emits the fixed-style presentation table for a built
// capital structure document. Pure formatting; no business logic.
package render

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/capstruct/internal/model"
)

const tableStyle = "border-collapse:collapse; border-left:none; border-right:none;"

const (
	headerLeft  = "font-weight:bold; border-top:none; border-bottom:3px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:left;"
	headerRight = "font-weight:bold; border-top:none; border-bottom:3px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:right;"

	issuerLeft  = "border-top:none; border-bottom:1px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:left;"
	issuerRight = "border-top:none; border-bottom:1px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:right;"

	cellLeft  = "border-top:none; border-bottom:none; border-left:none; border-right:none; padding:6px 8px; text-align:left;"
	cellRight = "border-top:none; border-bottom:none; border-left:none; border-right:none; padding:6px 8px; text-align:right;"

	spacerLeft  = "border-top:none; border-bottom:none; border-left:none; border-right:none; padding:6px 8px; text-align:left; height:8px; padding:6px 0;"
	spacerRight = "border-top:none; border-bottom:none; border-left:none; border-right:none; padding:6px 8px; text-align:right; height:8px; padding:6px 0;"

	subtotalLeft  = "font-weight:bold; border-top:3px solid #000; border-bottom:none; border-left:none; border-right:none; padding:6px 8px; text-align:left;"
	subtotalRight = "font-weight:bold; border-top:3px solid #000; border-bottom:none; border-left:none; border-right:none; padding:6px 8px; text-align:right;"

	netDebtLeft  = "font-weight:bold; border-top:1px solid #000; border-bottom:1px solid #000; background-color:#f5f5f5; border-left:none; border-right:none; padding:6px 8px; text-align:left;"
	netDebtRight = "font-weight:bold; border-top:1px solid #000; border-bottom:1px solid #000; background-color:#f5f5f5; border-left:none; border-right:none; padding:6px 8px; text-align:right;"

	evLeft  = "font-weight:bold; border-top:3px solid #000; border-bottom:3px solid #000; background-color:#f5f5f5; border-left:none; border-right:none; padding:6px 8px; text-align:left;"
	evRight = "font-weight:bold; border-top:3px solid #000; border-bottom:3px solid #000; background-color:#f5f5f5; border-left:none; border-right:none; padding:6px 8px; text-align:right;"

	notesHeader = "border-top:none; border-bottom:1px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:left;"

	finalSpacerLeft  = "border-top:none; border-bottom:1px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:left; height:8px; padding:6px 0;"
	finalSpacerRight = "border-top:none; border-bottom:1px solid #000; border-left:none; border-right:none; padding:6px 8px; text-align:right; height:8px; padding:6px 0;"
)

// columns in the layout besides the instrument-name column.
const valueColumns = 7

var (
	printer        = message.NewPrinter(language.English)
	couponInNameRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// fmtMM formats a $mm figure. Instrument cells trim trailing zeros
// (299.110 renders as 299.11); totals force three decimals; negative
// values render in parentheses when asked.
func fmtMM(v *float64, force3dp, parensIfNegative bool) string {
	if v == nil {
		return ""
	}
	if parensIfNegative && *v < 0 {
		return "(" + printer.Sprintf("%.3f", math.Abs(*v)) + ")"
	}
	s := printer.Sprintf("%.3f", *v)
	if force3dp {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// fmtCoupon renders a coupon percent, falling back to a rate embedded in
// the instrument name ("5.90% Senior Notes...") when no explicit coupon
// was extracted.
func fmtCoupon(c any, instrumentName string) string {
	switch v := c.(type) {
	case string:
		if strings.EqualFold(strings.TrimSpace(v), "variable") {
			return "variable"
		}
		if v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return fmt.Sprintf("%.2f%%", f)
			}
			return v
		}
	case float64:
		return fmt.Sprintf("%.2f%%", v)
	case int:
		return fmt.Sprintf("%.2f%%", float64(v))
	}

	if m := couponInNameRe.FindStringSubmatch(instrumentName); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return fmt.Sprintf("%.2f", f)
		}
	}
	return ""
}

func fmtMaturity(v any) string {
	switch y := v.(type) {
	case nil:
		return ""
	case string:
		return y
	case int:
		return strconv.Itoa(y)
	case float64:
		return strconv.Itoa(int(y))
	default:
		return fmt.Sprint(y)
	}
}

func th(text, style string) string {
	return `<th style="` + style + `">` + html.EscapeString(text) + `</th>`
}

func td(text, style string) string {
	return `<td style="` + style + `">` + html.EscapeString(text) + `</td>`
}

func tr(cells ...string) string {
	return "<tr>" + strings.Join(cells, "") + "</tr>"
}

func fillRow(first string, rest string) string {
	cells := []string{first}
	for i := 0; i < valueColumns; i++ {
		cells = append(cells, rest)
	}
	return tr(cells...)
}

func spacer(final bool) string {
	if final {
		return fillRow(td("", finalSpacerLeft), td("", finalSpacerRight))
	}
	return fillRow(td("", spacerLeft), td("", spacerRight))
}

func headerRow() string {
	return tr(
		th("Instrument Name", headerLeft),
		th("Amount Outstanding ($mm)", headerRight),
		th("Amount Available ($mm)", headerRight),
		th("Coupon (%)", headerRight),
		th("Maturity", headerRight),
		th("Priority", headerRight),
		th("Parent Issuer", headerRight),
		th("Issue Date", headerRight),
	)
}

func issuerRow(issuer string) string {
	return fillRow(th(issuer, issuerLeft), th("", issuerRight))
}

func instrumentRow(ins model.Instrument) string {
	return tr(
		td(ins.InstrumentName, cellLeft),
		td(fmtMM(ins.AmountOutstandingMM, false, false), cellRight),
		td(fmtMM(ins.AmountAvailableMM, false, false), cellRight),
		td(fmtCoupon(ins.CouponPercent, ins.InstrumentName), cellRight),
		td(fmtMaturity(ins.MaturityYear), cellRight),
		td(ins.Priority, cellRight),
		td(ins.ParentIssuer, cellRight),
		td(ins.IssueDate, cellRight),
	)
}

func subtotalRow(title string, totalMM float64) string {
	cells := []string{
		td(title, subtotalLeft),
		td(fmtMM(&totalMM, true, false), subtotalRight),
		td("0", subtotalRight),
	}
	for i := 0; i < valueColumns-2; i++ {
		cells = append(cells, td("", subtotalRight))
	}
	return tr(cells...)
}

func cashRow(cashMM float64) string {
	neg := -math.Abs(cashMM)
	return fillRowValue("-  Cash and cash equivalents", fmtMM(&neg, true, true), cellLeft, cellRight)
}

func netDebtRow(netDebtMM float64) string {
	return fillRowValue("Net Debt", fmtMM(&netDebtMM, true, false), netDebtLeft, netDebtRight)
}

// plusLine shows whole-dollar figures without decimals, matching how the
// market capitalization line is presented.
func plusLine(label string, valueMM float64) string {
	var vtxt string
	if math.Abs(valueMM-math.Round(valueMM)) < 1e-9 {
		vtxt = printer.Sprintf("%d", int64(math.Round(valueMM)))
	} else {
		vtxt = fmtMM(&valueMM, false, false)
	}
	return fillRowValue("+  "+label, vtxt, cellLeft, cellRight)
}

func enterpriseValueRow(evMM float64) string {
	return fillRowValue("Enterprise Value", fmtMM(&evMM, true, false), evLeft, evRight)
}

func fillRowValue(label, value, leftStyle, rightStyle string) string {
	cells := []string{td(label, leftStyle), td(value, rightStyle)}
	for i := 0; i < valueColumns-1; i++ {
		cells = append(cells, td("", rightStyle))
	}
	return tr(cells...)
}

func notesRows(notes []string) []string {
	if len(notes) == 0 {
		return nil
	}
	rows := []string{fillRow(th("Notes:", notesHeader), td("", cellRight))}
	for i, n := range notes {
		rows = append(rows, fillRow(td(fmt.Sprintf("%d. %s", i+1, n), cellLeft), td("", cellRight)))
	}
	rows = append(rows, spacer(true))
	return rows
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Render produces the presentation table HTML for a built document.
func Render(doc *model.CapitalStructure) string {
	rows := []string{headerRow(), spacer(false)}

	for _, ig := range doc.IssuerGroups {
		rows = append(rows, issuerRow(ig.Issuer))
		for _, pg := range ig.PriorityGroups {
			for _, ins := range pg.Instruments {
				rows = append(rows, instrumentRow(ins))
			}
			rows = append(rows,
				subtotalRow("Total "+pg.Priority, pg.Subtotal.SubtotalOutstandingMM),
				spacer(false),
			)
		}
	}

	rows = append(rows,
		subtotalRow("Total Debt", orZero(doc.TotalDebtMM)),
		spacer(false),
		cashRow(orZero(doc.CashMM)),
		netDebtRow(orZero(doc.NetDebtMM)),
		plusLine("Noncontrolling interests", orZero(doc.NoncontrollingInterestsMM)),
		plusLine("Market capitalization", orZero(doc.MarketCapMM)),
		enterpriseValueRow(orZero(doc.EnterpriseValueMM)),
		spacer(false),
	)
	rows = append(rows, notesRows(doc.Notes)...)

	return `<table style="` + tableStyle + `">` + strings.Join(rows, "") + "</table>"
}
