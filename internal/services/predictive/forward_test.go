package predictive

import (
	"math/rand"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardReturnsKnownPrices(t *testing.T) {
	fwd := ForwardReturns(floats(100, 102, 101, 105, 110), []int{1})

	got := fwd[1]
	require.Len(t, got, 5)
	want := []float64{0.02, -0.0098, 0.0396, 0.0476}
	for i, w := range want {
		require.True(t, got[i].Valid, "index %d", i)
		assert.InDelta(t, w, got[i].Float64, 5e-5, "index %d", i)
	}
	assert.False(t, got[4].Valid)
}

func TestForwardReturnsAlignment(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	price := make([]null.Float, 50)
	for i := range price {
		price[i] = null.FloatFrom(50 + rng.Float64()*100)
	}

	horizons := []int{1, 3, 5, 10}
	fwd := ForwardReturns(price, horizons)
	for _, h := range horizons {
		series := fwd[h]
		require.Len(t, series, len(price))
		for i := range series {
			if i+h < len(price) {
				require.True(t, series[i].Valid)
				assert.InDelta(t, price[i+h].Float64/price[i].Float64-1, series[i].Float64, 1e-12)
			} else {
				assert.False(t, series[i].Valid, "h=%d i=%d", h, i)
			}
		}
	}
}

func TestForwardReturnsMissingAndZero(t *testing.T) {
	price := []null.Float{null.FloatFrom(0), null.FloatFrom(10), {}, null.FloatFrom(12), null.FloatFrom(15)}
	fwd := ForwardReturns(price, []int{1})[1]

	assert.False(t, fwd[0].Valid, "zero base price")
	assert.False(t, fwd[1].Valid, "missing next price")
	assert.False(t, fwd[2].Valid, "missing base price")
	assert.InDelta(t, 0.25, fwd[3].Float64, 1e-12)
	assert.False(t, fwd[4].Valid)
}

func TestForwardReturnsHorizonLongerThanSeries(t *testing.T) {
	fwd := ForwardReturns(floats(1, 2, 3), []int{3, 7})
	for _, h := range []int{3, 7} {
		require.Len(t, fwd[h], 3)
		for _, v := range fwd[h] {
			assert.False(t, v.Valid)
		}
	}
}
