package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/capstruct/internal/model"
)

func TestToMillions(t *testing.T) {
	t.Parallel()

	t.Run("numeric value wins", func(t *testing.T) {
		t.Parallel()
		got := ToMillions(model.ValueObject{NumericValue: 1869417000.0, DisplayValue: "1,869.417", Scale: 6})
		require.NotNil(t, got)
		assert.InDelta(t, 1869.417, *got, 1e-9)
	})

	t.Run("display value with scale", func(t *testing.T) {
		t.Parallel()
		got := ToMillions(model.ValueObject{DisplayValue: "2,358,693", Scale: 3})
		require.NotNil(t, got)
		assert.InDelta(t, 2358.693, *got, 1e-9)
	})

	t.Run("scale defaults to six", func(t *testing.T) {
		t.Parallel()
		got := ToMillions(model.ValueObject{DisplayValue: "410.0"})
		require.NotNil(t, got)
		assert.InDelta(t, 410.0, *got, 1e-9)
	})

	t.Run("non numeric scale defaults to six", func(t *testing.T) {
		t.Parallel()
		got := ToMillions(model.ValueObject{DisplayValue: "5", Scale: "millions"})
		require.NotNil(t, got)
		assert.InDelta(t, 5.0, *got, 1e-9)
	})

	t.Run("numeric and display forms agree", func(t *testing.T) {
		t.Parallel()
		a := ToMillions(model.ValueObject{NumericValue: 1234000000.0})
		b := ToMillions(model.ValueObject{DisplayValue: "1,234", Scale: 6})
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.InDelta(t, *a, *b, 1e-9)
	})

	t.Run("dash and empty are nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, ToMillions(model.ValueObject{DisplayValue: "-"}))
		assert.Nil(t, ToMillions(model.ValueObject{DisplayValue: "—"}))
		assert.Nil(t, ToMillions(model.ValueObject{DisplayValue: ""}))
		assert.Nil(t, ToMillions(model.ValueObject{}))
	})

	t.Run("garbage is nil not panic", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, ToMillions(model.ValueObject{NumericValue: "n/a", DisplayValue: []int{1}}))
	})
}

func TestNormLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cash cash equivalents", normLabel("  Cash & Cash-Equivalents "))
	assert.Equal(t, "noncontrolling interests", normLabel("Noncontrolling   interests:"))
	assert.Equal(t, "", normLabel("  "))
}
