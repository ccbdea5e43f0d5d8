/**
 * @description
 * Small statistics helpers shared by the price engine and the RAG
 * retriever: mean, standard deviation and linearly interpolated
 * percentiles. Deterministic for a fixed input.
 *
 * @dependencies
 * - standard "math", "sort"
 */

package services

import (
	"math"
	"sort"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. values need not be sorted.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// trimOutliers drops values outside mean ± 3σ.
func trimOutliers(values []float64) []float64 {
	if len(values) < 3 {
		return values
	}
	m := mean(values)
	sd := stddev(values)
	if sd == 0 {
		return values
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.Abs(v-m) <= 3*sd {
			out = append(out, v)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
