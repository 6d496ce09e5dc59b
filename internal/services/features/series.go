package features

import "math"

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// LogReturns computes r_t = ln(v_t / v_{t-1}).
// It returns a slice of length len(values)-1, or nil if insufficient data.
// Non-positive inputs yield a zero return for that step.
func LogReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		cur := values[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MeanStd returns the mean and the sample standard deviation (n-1 denominator).
// The std is exactly 0 when all values are equal, and 0 for fewer than 2 values.
func MeanStd(values []float64) (mean, std float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	mean = Mean(values)
	if n < 2 || isFlat(values) {
		return mean, 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}

func isFlat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Ramp maps x linearly from 0 at `from` to 1 at `to`, saturating outside.
// from may be greater than to for a decreasing ramp.
func Ramp(x, from, to float64) float64 {
	if from == to {
		if x >= to {
			return 1
		}
		return 0
	}
	return Clamp((x-from)/(to-from), 0, 1)
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Pearson returns the correlation coefficient of two equal-length samples.
// ok is false when fewer than 2 pairs exist or either side has zero variance.
func Pearson(x, y []float64) (r float64, ok bool) {
	n := len(x)
	if n < 2 || n != len(y) || isFlat(x) || isFlat(y) {
		return 0, false
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	r = sxy / math.Sqrt(sxx*syy)
	if !Finite(r) {
		return 0, false
	}
	return Clamp(r, -1, 1), true
}
