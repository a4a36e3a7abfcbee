package stats

import (
	"math"
	"sort"
)

// Baseline holds simple rolling statistics for a single metric.
type Baseline struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeDiv divides n by d, returning 0 when the division would
// produce NaN or Inf. Keeps sensor glitches from propagating
// non-finite values into user-facing scores.
func SafeDiv(n, d float64) float64 {
	if d == 0 || math.IsNaN(n) || math.IsInf(n, 0) || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return n / d
}

// Winsorize caps every value to the values found at the lower and upper
// percentile positions of the sorted input. Used to blunt the effect of
// outliers before baseline computation.
func Winsorize(values []float64, lowerPct, upperPct float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lowerIdx := int(math.Floor(float64(len(sorted)-1) * lowerPct))
	upperIdx := int(math.Ceil(float64(len(sorted)-1) * upperPct))
	lo := sorted[lowerIdx]
	hi := sorted[upperIdx]

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Clamp(v, lo, hi)
	}
	return out
}

// WinsorizeDefault applies the 5% / 95% caps used for all metric baselines.
func WinsorizeDefault(values []float64) []float64 {
	return Winsorize(values, 0.05, 0.95)
}

// RollingBaseline computes mean and standard deviation over values.
// The std is the population one (divide by N, not N-1): historical score
// outputs depend on this exact formula, do not "fix" it to sample variance.
func RollingBaseline(values []float64) Baseline {
	if len(values) == 0 {
		return Baseline{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	std := math.Sqrt(sqDiffSum / float64(len(values)))

	return Baseline{
		Mean:  mean,
		Std:   std,
		Count: len(values),
	}
}
