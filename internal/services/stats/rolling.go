package stats

import (
	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/services/features"
)

// ValidateWindows rejects windows that cannot produce a sample deviation.
func ValidateWindows(windows []int) error {
	if len(windows) == 0 {
		return models.NewValidationError("windows", "at least one window is required")
	}
	for _, w := range windows {
		if w < 2 {
			return models.NewValidationError("windows", "window must be at least 2, got %d", w)
		}
	}
	return nil
}

// ComputeRollingStats emits, for each window and every index whose trailing
// window is full, the mean, sample std, z-score and percentile rank of the GSR.
// Results are grouped by window (in the given order) then ordered by time.
func ComputeRollingStats(series []models.GSRObservation, windows []int) ([]models.RollingStat, error) {
	if err := ValidateWindows(windows); err != nil {
		return nil, err
	}
	values := Values(series)

	total := 0
	for _, w := range windows {
		if len(values) >= w {
			total += len(values) - w + 1
		}
	}

	out := make([]models.RollingStat, 0, total)
	for _, w := range windows {
		for i := w - 1; i < len(values); i++ {
			out = append(out, statAt(series, values, i, w))
		}
	}
	return out, nil
}

// StatAt returns the stat for index i using only observations at or before i.
// ok is false when the trailing window is not full.
func StatAt(series []models.GSRObservation, i, window int) (models.RollingStat, bool) {
	if window < 2 || i < 0 || i >= len(series) || i+1 < window {
		return models.RollingStat{}, false
	}
	values := make([]float64, window)
	for k := 0; k < window; k++ {
		values[k] = series[i-window+1+k].GSR
	}
	return buildStat(series[i], values, window), true
}

// Latest returns the stat for the final observation of the series.
func Latest(series []models.GSRObservation, window int) (models.RollingStat, error) {
	if window < 2 {
		return models.RollingStat{}, models.NewValidationError("window", "window must be at least 2, got %d", window)
	}
	st, ok := StatAt(series, len(series)-1, window)
	if !ok {
		return models.RollingStat{}, &models.InsufficientDataError{
			What:     "rolling stat",
			Required: window,
			Got:      len(series),
		}
	}
	return st, nil
}

func statAt(series []models.GSRObservation, values []float64, i, window int) models.RollingStat {
	return buildStat(series[i], values[i-window+1:i+1], window)
}

func buildStat(obs models.GSRObservation, window []float64, size int) models.RollingStat {
	mean, std := features.MeanStd(window)
	current := obs.GSR

	atOrBelow := 0
	for _, v := range window {
		if v <= current {
			atOrBelow++
		}
	}

	st := models.RollingStat{
		Timestamp:      obs.Timestamp,
		WindowDays:     size,
		GSR:            current,
		Mean:           mean,
		Std:            std,
		PercentileRank: features.Clamp(float64(atOrBelow)/float64(size)*100, 0, 100),
	}
	if std > 0 {
		z := (current - mean) / std
		if features.Finite(z) {
			st.ZScore = &z
		}
	}
	return st
}
