package predictive

import (
	"math"
	"sort"

	"FinScope/internal/domain/models"
)

// Rank scores each indicator by the mean |r| over its retained horizons and returns the
// top n, best first. Equal scores keep the order given by order (the table's column order);
// indicators missing from order follow it alphabetically.
func Rank(results models.PredictiveResults, order []string, n int) []models.IndicatorScore {
	names := make([]string, 0, len(results))
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		if _, ok := results[name]; ok {
			names = append(names, name)
		}
		seen[name] = struct{}{}
	}
	var extra []string
	for name := range results {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	scores := make([]models.IndicatorScore, 0, len(names))
	for _, name := range names {
		byH := results[name]
		if len(byH) == 0 {
			continue
		}
		sum := 0.0
		for _, s := range byH {
			sum += math.Abs(s.Correlation)
		}
		scores = append(scores, models.IndicatorScore{
			Indicator: name,
			Score:     sum / float64(len(byH)),
			Horizons:  results.Horizons(name),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if n > 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}
