package evaluation

import (
	"math/rand"
	"sort"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Low  float64
	High float64
}

// BootstrapCI estimates a percentile bootstrap confidence interval for the
// mean of values. confidence is the two-sided level (e.g. 0.95), resamples
// the number of bootstrap draws and seed makes the estimate reproducible.
// Fewer than two values yield a degenerate interval at the mean.
func BootstrapCI(values []float64, confidence float64, resamples int, seed int64) Interval {
	m := mean(values)
	if len(values) < 2 || resamples < 1 || confidence <= 0 || confidence >= 1 {
		return Interval{Low: m, High: m}
	}

	rng := rand.New(rand.NewSource(seed))
	means := make([]float64, resamples)
	sample := make([]float64, len(values))
	for i := 0; i < resamples; i++ {
		for j := range sample {
			sample[j] = values[rng.Intn(len(values))]
		}
		means[i] = mean(sample)
	}
	sort.Float64s(means)

	alpha := (1 - confidence) / 2
	return Interval{
		Low:  percentile(means, alpha),
		High: percentile(means, 1-alpha),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile interpolates linearly between the nearest ranks of a sorted
// slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
