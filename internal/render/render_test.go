package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/capstruct/internal/model"
)

func fp(v float64) *float64 { return &v }

func sampleDoc() *model.CapitalStructure {
	return &model.CapitalStructure{
		CompanyNameDisplay: "Advance Auto Parts, Inc.",
		IssuerGroups: []model.IssuerGroup{{
			Issuer: "Advance Auto Parts, Inc.",
			PriorityGroups: []model.PriorityGroup{
				{
					Priority: model.PrioritySeniorSecured,
					Instruments: []model.Instrument{
						{InstrumentName: "Total operating lease liabilities", AmountOutstandingMM: fp(2358.693), MaturityYear: "Various", Priority: model.PrioritySeniorSecured},
					},
					Subtotal: model.Subtotal{SubtotalOutstandingMM: 2358.693},
				},
				{
					Priority: model.PriorityUnsecured,
					Instruments: []model.Instrument{
						{InstrumentName: "5.90% Senior Unsecured Notes due March 9, 2026", AmountOutstandingMM: fp(299.110), CouponPercent: 5.90, MaturityYear: 2026, Priority: model.PriorityUnsecured, IssueDate: "2023-03-09"},
					},
					Subtotal: model.Subtotal{SubtotalOutstandingMM: 299.110},
				},
			},
		}},
		TotalDebtMM:               fp(2657.803),
		CashMM:                    fp(1869.417),
		NetDebtMM:                 fp(788.386),
		NoncontrollingInterestsMM: fp(0),
		MarketCapMM:               fp(2592),
		EnterpriseValueMM:         fp(3380.386),
		Notes: []string{
			"Market Cap and most recent FY EBITDA come from Seeking Alpha",
			"All debt amounts come from the most recent 10-K filing",
		},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out := Render(sampleDoc())

	t.Run("layout", func(t *testing.T) {
		t.Parallel()
		assert.True(t, strings.HasPrefix(out, `<table style="border-collapse:collapse;`))
		assert.Contains(t, out, "Instrument Name")
		assert.Contains(t, out, "Advance Auto Parts, Inc.")
		assert.Contains(t, out, "Total Senior Secured")
		assert.Contains(t, out, "Total Unsecured")
		assert.Contains(t, out, "Total Debt")
		assert.Contains(t, out, "Net Debt")
		assert.Contains(t, out, "Enterprise Value")
		assert.Contains(t, out, "Notes:")
		assert.Contains(t, out, "1. Market Cap and most recent FY EBITDA come from Seeking Alpha")
	})

	t.Run("instrument cells trim trailing zeros", func(t *testing.T) {
		t.Parallel()
		// instrument cell trims to 299.11 while the subtotal keeps 299.110
		assert.Contains(t, out, ">299.11<")
		assert.Contains(t, out, ">299.110<")
	})

	t.Run("totals force three decimals", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, out, ">2,657.803<")
		assert.Contains(t, out, ">788.386<")
		assert.Contains(t, out, ">3,380.386<")
	})

	t.Run("cash in parentheses", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, out, "(1,869.417)")
	})

	t.Run("whole market cap without decimals", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, out, ">2,592<")
	})
}

func TestFmtMM(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", fmtMM(nil, false, false))
	assert.Equal(t, "299.11", fmtMM(fp(299.110), false, false))
	assert.Equal(t, "2,358.693", fmtMM(fp(2358.693), false, false))
	assert.Equal(t, "2,592", fmtMM(fp(2592), false, false))
	assert.Equal(t, "2,592.000", fmtMM(fp(2592), true, false))
	assert.Equal(t, "(5.000)", fmtMM(fp(-5), true, true))
}

func TestFmtCoupon(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "variable", fmtCoupon("variable", ""))
	assert.Equal(t, "5.90%", fmtCoupon(5.9, ""))
	assert.Equal(t, "1.75%", fmtCoupon(1.75, ""))
	assert.Equal(t, "5.90", fmtCoupon(nil, "5.90% Senior Unsecured Notes due March 9, 2026"))
	assert.Equal(t, "", fmtCoupon(nil, "Term Loan B"))
}

func TestFmtMaturity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", fmtMaturity(nil))
	assert.Equal(t, "Various", fmtMaturity("Various"))
	assert.Equal(t, "2026", fmtMaturity(2026))
	assert.Equal(t, "2027", fmtMaturity(2027.0))
}
