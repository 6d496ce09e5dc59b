// Package correlation computes rolling Pearson correlations between the GSR
// and macro series aligned on calendar date.
package correlation

import (
	"sort"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/services/features"
	"GSRSwap/internal/services/stats"
)

// MinPairedFloor is the absolute minimum of aligned pairs for any window.
const MinPairedFloor = 2

// MinPairedSamples is the smallest number of aligned pairs a window needs:
// half the window, never below MinPairedFloor.
func MinPairedSamples(window int) int {
	n := window / 2
	if n < MinPairedFloor {
		return MinPairedFloor
	}
	return n
}

// ComputeCorrelations returns, for every variable and window, one observation
// per GSR index whose trailing window is full and carries enough same-day macro
// values. Macro values are never forward-filled. Output is ordered by variable
// name, then window (as given), then time.
func ComputeCorrelations(gsr []models.GSRObservation, macro map[string][]models.PricePoint, windows []int) ([]models.CorrelationObservation, error) {
	if err := stats.ValidateWindows(windows); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(macro))
	for name := range macro {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []models.CorrelationObservation
	for _, name := range names {
		byDay := indexByDay(macro[name])
		if len(byDay) == 0 {
			continue
		}
		for _, w := range windows {
			out = append(out, rolling(gsr, byDay, name, w)...)
		}
	}
	return out, nil
}

func rolling(gsr []models.GSRObservation, byDay map[time.Time]float64, name string, window int) []models.CorrelationObservation {
	minPairs := MinPairedSamples(window)
	xs := make([]float64, 0, window)
	ys := make([]float64, 0, window)

	var out []models.CorrelationObservation
	for i := window - 1; i < len(gsr); i++ {
		xs, ys = xs[:0], ys[:0]
		for k := i - window + 1; k <= i; k++ {
			v, ok := byDay[models.Day(gsr[k].Timestamp)]
			if !ok {
				continue
			}
			xs = append(xs, gsr[k].GSR)
			ys = append(ys, v)
		}
		if len(xs) < minPairs {
			continue
		}

		obs := models.CorrelationObservation{
			Timestamp:    gsr[i].Timestamp,
			WindowDays:   window,
			VariableName: name,
			Samples:      len(xs),
		}
		if r, ok := features.Pearson(xs, ys); ok {
			obs.PearsonR = &r
		}
		out = append(out, obs)
	}
	return out
}

func indexByDay(points []models.PricePoint) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(points))
	for _, p := range points {
		out[models.Day(p.Timestamp)] = p.Price
	}
	return out
}

// Latest keeps the most recent observation per (variable, window).
func Latest(obs []models.CorrelationObservation) []models.CorrelationObservation {
	type key struct {
		name   string
		window int
	}
	idx := make(map[key]int)
	var out []models.CorrelationObservation
	for _, o := range obs {
		k := key{o.VariableName, o.WindowDays}
		if j, ok := idx[k]; ok {
			if o.Timestamp.After(out[j].Timestamp) {
				out[j] = o
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, o)
	}
	return out
}
