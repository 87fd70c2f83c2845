package predictive

import (
	"errors"
	"fmt"
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	errInsufficient = errors.New("fewer than 2 joint observations")
	errConstant     = errors.New("constant input series")
	errNonFinite    = errors.New("non-finite statistic")
)

// paired returns the positions where both x and y hold a value.
func paired(x, y []null.Float) (xs, ys []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !x[i].Valid || !y[i].Valid {
			continue
		}
		xs = append(xs, x[i].Float64)
		ys = append(ys, y[i].Float64)
	}
	return xs, ys
}

// pearson returns the product-moment correlation of x and y.
func pearson(x, y []float64) (r float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("correlation panicked: %v", rec)
		}
	}()

	if len(x) < 2 {
		return 0, errInsufficient
	}
	if constant(x) || constant(y) {
		return 0, errConstant
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, errNonFinite
	}
	return math.Max(-1, math.Min(1, r)), nil
}

// pearsonTest returns r and the two-sided p-value of H0: r = 0 under
// Student's t with n-2 degrees of freedom.
func pearsonTest(x, y []float64) (r, p float64, err error) {
	r, err = pearson(x, y)
	if err != nil {
		return 0, 0, err
	}
	n := len(x)
	switch {
	case n == 2:
		// two points always fit a line; no evidence either way
		return r, 1, nil
	case math.Abs(r) == 1:
		return r, 0, nil
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	if math.IsNaN(p) {
		return 0, 0, errNonFinite
	}
	return r, math.Max(0, math.Min(1, p)), nil
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
