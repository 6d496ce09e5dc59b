package stats

import (
	"sort"
	"time"

	"GSRSwap/internal/domain/models"
)

// BuildGSRSeries inner-joins gold and silver closes on calendar date and
// returns the ratio series in ascending order. Days with a non-positive
// price on either side are skipped.
func BuildGSRSeries(gold, silver []models.PricePoint) []models.GSRObservation {
	silverByDay := make(map[time.Time]float64, len(silver))
	for _, p := range silver {
		silverByDay[models.Day(p.Timestamp)] = p.Price
	}

	goldByDay := make(map[time.Time]float64, len(gold))
	for _, p := range gold {
		goldByDay[models.Day(p.Timestamp)] = p.Price
	}

	out := make([]models.GSRObservation, 0, len(goldByDay))
	for day, g := range goldByDay {
		s, ok := silverByDay[day]
		if !ok || s <= 0 || g <= 0 {
			continue
		}
		out = append(out, models.GSRObservation{
			Timestamp:   day,
			GoldPrice:   g,
			SilverPrice: s,
			GSR:         g / s,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Values extracts the ratio values of a series.
func Values(series []models.GSRObservation) []float64 {
	out := make([]float64, len(series))
	for i, o := range series {
		out[i] = o.GSR
	}
	return out
}

// Slice returns the observations with timestamps in [from, to]. Zero bounds are open.
func Slice(series []models.GSRObservation, from, to time.Time) []models.GSRObservation {
	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(series), func(i int) bool { return !series[i].Timestamp.Before(from) })
	}
	hi := len(series)
	if !to.IsZero() {
		hi = sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(to) })
	}
	if lo >= hi {
		return nil
	}
	return series[lo:hi]
}
