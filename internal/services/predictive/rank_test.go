package predictive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func single(r float64) map[int]models.CorrelationStat {
	return map[int]models.CorrelationStat{1: {Correlation: r, PValue: 0.001, Observations: 100}}
}

func TestRankTopNTruncates(t *testing.T) {
	results := models.PredictiveResults{
		"third":  single(0.3),
		"first":  single(0.8),
		"second": single(-0.6),
	}

	got := Rank(results, []string{"third", "first", "second"}, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Indicator)
	assert.InDelta(t, 0.8, got[0].Score, 1e-12)
	assert.Equal(t, "second", got[1].Indicator)
	assert.InDelta(t, 0.6, got[1].Score, 1e-12)
}

func TestRankScoreIsMeanAbsoluteCorrelation(t *testing.T) {
	results := models.PredictiveResults{
		"macd": {
			1:  {Correlation: 0.5},
			3:  {Correlation: -0.7},
			10: {Correlation: 0.3},
		},
	}

	got := Rank(results, []string{"macd"}, 15)

	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0].Score, 1e-12)
	assert.Equal(t, []int{1, 3, 10}, got[0].Horizons)
}

func TestRankTiesFollowColumnOrder(t *testing.T) {
	results := models.PredictiveResults{
		"b": single(0.4),
		"a": single(0.4),
		"c": single(0.4),
		"z": single(0.9),
	}

	got := Rank(results, []string{"c", "a", "b", "z"}, 10)

	names := make([]string, len(got))
	for i, s := range got {
		names[i] = s.Indicator
	}
	assert.Equal(t, []string{"z", "c", "a", "b"}, names)
}

func TestRankReturnsAllWhenFewerThanN(t *testing.T) {
	results := models.PredictiveResults{"x": single(0.2), "y": single(0.5)}
	got := Rank(results, nil, 15)

	require.Len(t, got, 2)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	assert.Empty(t, Rank(models.PredictiveResults{}, nil, 15))
}
