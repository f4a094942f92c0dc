package stats_test

import (
	"math"
	"testing"

	"github.com/prudhvi1709/hypoforge/internal/stats"
)

func TestMean(t *testing.T) {
	if got := stats.Mean([]float64{2, 4, 6}); got != 4 {
		t.Fatalf("Mean = %v, want 4", got)
	}
	if got := stats.Mean(nil); !math.IsNaN(got) {
		t.Fatalf("Mean of empty sample = %v, want NaN", got)
	}
}

func TestStdDev(t *testing.T) {
	// Sample std dev of {2, 4, 4, 4, 5, 5, 7, 9} is ~2.138.
	got := stats.StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2.1381) > 1e-3 {
		t.Fatalf("StdDev = %v, want ~2.138", got)
	}
	if got := stats.StdDev([]float64{1}); !math.IsNaN(got) {
		t.Fatalf("StdDev of single value = %v, want NaN", got)
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	if got := stats.Correlation(x, y); math.Abs(got-1) > 1e-12 {
		t.Fatalf("Correlation = %v, want 1", got)
	}
	if got := stats.Correlation(x, y[:3]); !math.IsNaN(got) {
		t.Fatalf("Correlation of mismatched lengths = %v, want NaN", got)
	}
}

func TestWelchTTestSeparatedSamples(t *testing.T) {
	a := []float64{1.1, 0.9, 1.0, 1.2, 0.8, 1.05, 0.95, 1.15}
	b := []float64{9.8, 10.2, 10.0, 9.9, 10.1, 10.05, 9.95, 10.15}

	tStat, p := stats.WelchTTest(a, b)
	if tStat >= 0 {
		t.Fatalf("expected negative t for a << b, got %v", tStat)
	}
	if p >= 0.001 {
		t.Fatalf("expected tiny p-value for separated samples, got %v", p)
	}
}

func TestWelchTTestSimilarSamples(t *testing.T) {
	a := []float64{5.0, 5.1, 4.9, 5.2, 4.8}
	b := []float64{5.1, 4.9, 5.0, 4.95, 5.05}

	_, p := stats.WelchTTest(a, b)
	if p < 0.05 {
		t.Fatalf("expected non-significant p for similar samples, got %v", p)
	}
}

func TestWelchTTestDegenerate(t *testing.T) {
	if _, p := stats.WelchTTest([]float64{1}, []float64{2, 3}); !math.IsNaN(p) {
		t.Fatalf("expected NaN for undersized sample, got %v", p)
	}

	// Identical constant samples have zero pooled variance.
	tStat, p := stats.WelchTTest([]float64{3, 3, 3}, []float64{3, 3, 3})
	if tStat != 0 || p != 1 {
		t.Fatalf("constant equal samples: t=%v p=%v, want t=0 p=1", tStat, p)
	}

	tStat, p = stats.WelchTTest([]float64{3, 3, 3}, []float64{4, 4, 4})
	if !math.IsInf(tStat, 1) || p != 0 {
		t.Fatalf("constant distinct samples: t=%v p=%v, want t=+Inf p=0", tStat, p)
	}
}
