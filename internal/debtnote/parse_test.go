package debtnote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/capstruct/internal/model"
)

const sampleDebtNote = `<html><body>
<p>Long-term debt consists of the following:</p>
<table>
	<tr><td>Instrument</td><td></td><td>December 28, 2024</td><td></td><td>Rate</td></tr>
	<tr><td>5.90% Senior Unsecured Notes due March 9, 2026</td><td>$</td><td>299,110</td><td></td><td>5.90</td></tr>
	<tr><td>1.75% Senior Unsecured Notes due October 1, 2027</td><td>$</td><td>347,806</td><td></td><td>1.75</td></tr>
	<tr><td>Floating Rate Notes due June 15, 2030</td><td>$</td><td>496,875</td><td></td><td>variable</td></tr>
	<tr><td>Total long-term debt</td><td>$</td><td>1,143,791</td><td></td><td></td></tr>
</table>
<p>The 5.90% senior unsecured notes due March 9, 2026 (the "2026 Notes") were issued
March 9, 2023 at 99.94% of their face value.</p>
<p>On November 9, 2021, the Company entered into a credit agreement which provides
a $1.2 billion unsecured revolving credit facility (the "2021 Credit Agreement").
In 2023 the Company extended the maturity date of the 2021 Credit Agreement
to November 9, 2027.</p>
</body></html>`

func parseSample(t *testing.T, html string, opts Options) *Result {
	t.Helper()
	res, err := Parse(strings.NewReader(html), opts)
	require.NoError(t, err)
	return res
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("table instruments", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, sampleDebtNote, Options{PeriodEndDateText: "December 28, 2024"})

		require.Len(t, res.Instruments, 4)

		first := res.Instruments[0]
		assert.Equal(t, "5.90% Senior Unsecured Notes due March 9, 2026", first.InstrumentName)
		require.NotNil(t, first.AmountOutstandingMM)
		assert.InDelta(t, 299.110, *first.AmountOutstandingMM, 1e-9)
		assert.Equal(t, 5.90, first.CouponPercent)
		assert.Equal(t, 2026, first.MaturityYear)
		assert.Equal(t, model.PriorityUnsecured, first.Priority)
		assert.Equal(t, model.TypeBond, first.InstrumentType)
	})

	t.Run("variable coupon token", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, sampleDebtNote, Options{})
		var floating *model.Instrument
		for i := range res.Instruments {
			if strings.Contains(res.Instruments[i].InstrumentName, "Floating") {
				floating = &res.Instruments[i]
			}
		}
		require.NotNil(t, floating)
		assert.Equal(t, "variable", floating.CouponPercent)
	})

	t.Run("issue date backfilled from narrative", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, sampleDebtNote, Options{})
		assert.Equal(t, "2023-03-09", res.Instruments[0].IssueDate)
		assert.Empty(t, res.Instruments[1].IssueDate)
	})

	t.Run("narrative-only credit facility", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, sampleDebtNote, Options{})

		var cf *model.Instrument
		for i := range res.Instruments {
			if res.Instruments[i].InstrumentType == model.TypeCreditFacility {
				cf = &res.Instruments[i]
			}
		}
		require.NotNil(t, cf)
		assert.Equal(t, "Unsecured Revolving Credit Facility (2021 Credit Agreement)", cf.InstrumentName)
		assert.Equal(t, 2027, cf.MaturityYear)
		assert.Equal(t, "variable", cf.CouponPercent)
		require.NotNil(t, cf.AmountOutstandingMM)
		assert.Zero(t, *cf.AmountOutstandingMM)
		assert.Equal(t, "2021-11-09", cf.IssueDate)
	})

	t.Run("sorted by maturity then name", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, sampleDebtNote, Options{})
		var years []int
		for _, ins := range res.Instruments {
			years = append(years, maturitySortYear(ins))
		}
		assert.IsNonDecreasing(t, years)
	})

	t.Run("no scoring table yields empty list", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, `<html><body><table><tr><td>Revenue</td><td>1</td></tr></table></body></html>`, Options{})
		assert.Empty(t, res.Instruments)
	})

	t.Run("facility not duplicated when table already has it", func(t *testing.T) {
		t.Parallel()
		res := parseSample(t, sampleDebtNote, Options{
			Matchers: []Matcher{dupFacilityMatcher{}},
		})
		names := map[string]int{}
		for _, ins := range res.Instruments {
			names[strings.ToLower(ins.InstrumentName)]++
		}
		assert.Equal(t, 1, names["floating rate notes due june 15, 2030"])
	})
}

func TestNumericFromCell(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want *float64
	}{
		{"2,358,693", fp(2358693)},
		{"(461,528)", fp(-461528)},
		{"$ 1,234", fp(1234)},
		{"5.90", fp(5.90)},
		{"—", nil},
		{"-", nil},
		{"", nil},
		{"n/a", nil},
	}
	for _, tc := range cases {
		got := numericFromCell(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, tc.in)
			continue
		}
		require.NotNil(t, got, tc.in)
		assert.InDelta(t, *tc.want, *got, 1e-9, tc.in)
	}
}

func fp(v float64) *float64 { return &v }

// dupFacilityMatcher emits a facility whose name collides with a
// table-derived instrument, exercising the merge dedup.
type dupFacilityMatcher struct{}

func (dupFacilityMatcher) Name() string       { return "dup" }
func (dupFacilityMatcher) Confidence() string { return "low" }
func (dupFacilityMatcher) Apply(_ string, facts *NarrativeFacts) {
	facts.Facilities = append(facts.Facilities, model.Instrument{
		InstrumentName: "Floating Rate Notes due June 15, 2030",
		InstrumentType: model.TypeCreditFacility,
	})
}

func TestScaleToMM(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 299.110, scaleToMM(299110, 0), 1e-9)
	assert.InDelta(t, 410.0, scaleToMM(410.0, 0), 1e-9)
	assert.InDelta(t, -299.110, scaleToMM(-299110, 0), 1e-9)

	// configurable threshold
	assert.InDelta(t, 5.0, scaleToMM(5000, 1000), 1e-9)
}

func TestParseUSDate(t *testing.T) {
	t.Parallel()

	d, ok := parseUSDate("March 9, 2026")
	require.True(t, ok)
	assert.Equal(t, "2026-03-09", d.Format("2006-01-02"))

	d, ok = parseUSDate("03/09/2026")
	require.True(t, ok)
	assert.Equal(t, "2026-03-09", d.Format("2006-01-02"))

	_, ok = parseUSDate("February 30, 2026")
	assert.False(t, ok)
	_, ok = parseUSDate("Smarch 1, 2026")
	assert.False(t, ok)
}

func TestClassifyInstrument(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.TypeCreditFacility, classifyInstrument("Revolving Credit Facility"))
	assert.Equal(t, model.TypeTermLoan, classifyInstrument("Term Loan B due 2028"))
	assert.Equal(t, model.TypeBond, classifyInstrument("5.90% Senior Notes due 2026"))
	assert.Equal(t, model.TypeOtherDebt, classifyInstrument("Other obligations"))
}
