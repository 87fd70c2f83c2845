package predictive

import (
	"math"

	"github.com/guregu/null/v6"
)

// ForwardSeries maps a horizon to forward returns aligned with the price column.
type ForwardSeries map[int][]null.Float

// ForwardReturns computes fwd[i] = price[i+h]/price[i] - 1 for every horizon.
// The last h entries, entries next to a missing price and entries with a zero base price are missing.
func ForwardReturns(price []null.Float, horizons []int) ForwardSeries {
	out := make(ForwardSeries, len(horizons))
	for _, h := range horizons {
		fwd := make([]null.Float, len(price))
		out[h] = fwd
		if h <= 0 {
			continue
		}
		for i := 0; i+h < len(price); i++ {
			cur, next := price[i], price[i+h]
			if !cur.Valid || !next.Valid || cur.Float64 == 0 {
				continue
			}
			r := next.Float64/cur.Float64 - 1
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			fwd[i] = null.FloatFrom(r)
		}
	}
	return out
}
