package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogReturns(t *testing.T) {
	assert.Nil(t, LogReturns([]float64{1}))

	got := LogReturns([]float64{100, 110, 0, 121})
	assert.Len(t, got, 3)
	assert.InDelta(t, math.Log(1.1), got[0], 1e-12)
	assert.Equal(t, 0.0, got[1])
	assert.Equal(t, 0.0, got[2])
}

func TestMeanStdSample(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	// sample std of the classic population-std-2 example
	assert.InDelta(t, math.Sqrt(32.0/7.0), std, 1e-12)
}

func TestMeanStdFlatIsExactlyZero(t *testing.T) {
	_, std := MeanStd([]float64{81.3, 81.3, 81.3, 81.3, 81.3, 81.3, 81.3})
	assert.Equal(t, 0.0, std)

	_, std = MeanStd([]float64{5})
	assert.Equal(t, 0.0, std)
}

func TestRamp(t *testing.T) {
	assert.Equal(t, 0.0, Ramp(1, 2, 4))
	assert.Equal(t, 0.5, Ramp(3, 2, 4))
	assert.Equal(t, 1.0, Ramp(9, 2, 4))

	// decreasing ramp
	assert.Equal(t, 0.0, Ramp(25, 20, 10))
	assert.Equal(t, 0.5, Ramp(15, 20, 10))
	assert.Equal(t, 1.0, Ramp(5, 20, 10))
}

func TestClampAndFinite(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, -1, 1))
	assert.Equal(t, -1.0, Clamp(-3, -1, 1))
	assert.True(t, Finite(1))
	assert.False(t, Finite(math.NaN()))
	assert.False(t, Finite(math.Inf(-1)))
}

func TestPearson(t *testing.T) {
	r, ok := Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, ok = Pearson([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
	assert.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)

	_, ok = Pearson([]float64{1, 2, 3}, []float64{5, 5, 5})
	assert.False(t, ok)

	_, ok = Pearson([]float64{1}, []float64{2})
	assert.False(t, ok)
}
