package benchmark

import "math"

const (
	// MinPercentile and MaxPercentile bound every reported rank so a proof
	// never claims an absolute extreme.
	MinPercentile = 5
	MaxPercentile = 95
	// NeutralPercentile is returned for an empty distribution.
	NeutralPercentile = 50
)

// PercentileRank computes the rank of value against distribution. The value
// is treated as a member of the population, so the denominator is len+1.
// The result is clamped to [MinPercentile, MaxPercentile].
func PercentileRank(value float64, distribution []float64) int {
	if len(distribution) == 0 {
		return NeutralPercentile
	}
	below := 0
	for _, sample := range distribution {
		if sample < value {
			below++
		}
	}
	total := float64(len(distribution) + 1)
	rank := int(math.Round(100 * float64(below) / total))
	if rank < MinPercentile {
		return MinPercentile
	}
	if rank > MaxPercentile {
		return MaxPercentile
	}
	return rank
}
