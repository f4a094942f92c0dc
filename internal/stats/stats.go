// Package stats is the statistical-computation handle pre-bound into the
// execution sandbox. It wraps gonum so generated analysis code can run
// standard tests without importing gonum directly.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mean returns the arithmetic mean, or NaN for an empty sample.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// StdDev returns the sample standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil)
}

// Variance returns the sample variance.
func Variance(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Variance(xs, nil)
}

// Correlation returns the Pearson correlation of two equal-length samples.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// WelchTTest runs a two-sided two-sample t-test without assuming equal
// variances. Returns the t statistic and p-value, or NaNs when either
// sample has fewer than two observations.
func WelchTTest(a, b []float64) (t, p float64) {
	if len(a) < 2 || len(b) < 2 {
		return math.NaN(), math.NaN()
	}

	na, nb := float64(len(a)), float64(len(b))
	ma, mb := stat.Mean(a, nil), stat.Mean(b, nil)
	va, vb := stat.Variance(a, nil), stat.Variance(b, nil)

	se2 := va/na + vb/nb
	if se2 == 0 {
		if ma == mb {
			return 0, 1
		}
		return math.Inf(1), 0
	}

	t = (ma - mb) / math.Sqrt(se2)

	// Welch–Satterthwaite degrees of freedom.
	nu := se2 * se2 / ((va*va)/(na*na*(na-1)) + (vb*vb)/(nb*nb*(nb-1)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, p
}
