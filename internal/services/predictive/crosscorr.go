package predictive

import (
	"math"

	"github.com/guregu/null/v6"

	"FinScope/internal/domain/models"
)

// DefaultRedundancyThreshold flags indicator pairs that carry the same information.
const DefaultRedundancyThreshold = 0.7

// CrossCorrelate builds the Pearson matrix over the raw columns of names using
// pairwise-complete observations, and lists pairs i<j with |m[i][j]| > threshold.
// A diagonal cell is 1 when its column has at least two distinct values; cells that
// cannot be computed are left invalid.
func CrossCorrelate(t *Table, names []string, threshold float64) (models.CorrelationMatrix, []models.RedundantPair) {
	m := models.CorrelationMatrix{
		Names:  append([]string(nil), names...),
		Values: make([][]null.Float, len(names)),
	}
	cols := make([][]null.Float, len(names))
	for i, name := range names {
		m.Values[i] = make([]null.Float, len(names))
		cols[i], _ = t.Column(name)
	}

	var pairs []models.RedundantPair
	for i := range names {
		if xs, _ := paired(cols[i], cols[i]); len(xs) >= 2 && !constant(xs) {
			m.Values[i][i] = null.FloatFrom(1)
		}
		for j := i + 1; j < len(names); j++ {
			r, err := pearson(paired(cols[i], cols[j]))
			if err != nil {
				continue
			}
			m.Values[i][j] = null.FloatFrom(r)
			m.Values[j][i] = null.FloatFrom(r)
			if math.Abs(r) > threshold {
				pairs = append(pairs, models.RedundantPair{A: names[i], B: names[j], Correlation: r})
			}
		}
	}
	return m, pairs
}
