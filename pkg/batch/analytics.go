package batch

import "math"

// MaxEffectSize is the clamp magnitude for the standardized mean
// difference. Degenerate-variance populations with a real mean gap are
// reported at this magnitude instead of an unbounded value.
const MaxEffectSize = 10.0

const varianceEpsilon = 1e-9

// CohensD computes the standardized mean difference between two score
// populations: (mean(a) - mean(b)) / pooledStdDev. The sign reflects
// which population scored higher. Near-zero pooled spread with a
// non-trivial mean gap clamps to ±MaxEffectSize.
func CohensD(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	meanA, varA := meanVariance(a)
	meanB, varB := meanVariance(b)
	diff := meanA - meanB

	pooled := pooledStdDev(varA, varB, len(a), len(b))
	if pooled < varianceEpsilon {
		if math.Abs(diff) < varianceEpsilon {
			return 0
		}
		if diff > 0 {
			return MaxEffectSize
		}
		return -MaxEffectSize
	}

	d := diff / pooled
	if d > MaxEffectSize {
		return MaxEffectSize
	}
	if d < -MaxEffectSize {
		return -MaxEffectSize
	}
	return d
}

// meanVariance returns the mean and the sample variance (n-1 divisor;
// zero for single-element populations).
func meanVariance(xs []float64) (float64, float64) {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}

	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, ss / float64(len(xs)-1)
}

func pooledStdDev(varA, varB float64, nA, nB int) float64 {
	denom := float64(nA + nB - 2)
	if denom <= 0 {
		// Two singleton populations: fall back to the average variance,
		// which is zero here anyway.
		return math.Sqrt((varA + varB) / 2)
	}
	pooledVar := (float64(nA-1)*varA + float64(nB-1)*varB) / denom
	return math.Sqrt(pooledVar)
}
