package regime

import (
	"sort"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/services/features"
)

const yearDays = 365

// series is a macro series sorted ascending by day.
type series []models.PricePoint

func newSeries(points []models.PricePoint) series {
	s := make(series, len(points))
	copy(s, points)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Timestamp.Before(s[j].Timestamp) })
	return s
}

// at returns the last value on or before t.
func (s series) at(t time.Time) (float64, bool) {
	i := sort.Search(len(s), func(i int) bool { return models.Day(s[i].Timestamp).After(t) })
	if i == 0 {
		return 0, false
	}
	return s[i-1].Price, true
}

// between returns values in (from, to].
func (s series) between(from, to time.Time) []float64 {
	var out []float64
	for _, p := range s {
		d := models.Day(p.Timestamp)
		if d.After(from) && !d.After(to) {
			out = append(out, p.Price)
		}
	}
	return out
}

// yoy returns the year-over-year percent change at t.
func (s series) yoy(t time.Time) (float64, bool) {
	cur, ok := s.at(t)
	if !ok {
		return 0, false
	}
	prev, ok := s.at(t.AddDate(0, 0, -yearDays))
	if !ok || prev <= 0 {
		return 0, false
	}
	return (cur/prev - 1) * 100, true
}

// MacroDeriver turns raw macro series into MacroState snapshots.
type MacroDeriver struct {
	lookback int
	treasury series
	dollar   series
	cpi      series
	vix      series
}

// NewMacroDeriver indexes the macro map once so repeated DeriveAt calls are cheap.
func NewMacroDeriver(macro map[string][]models.PricePoint, lookbackDays int) *MacroDeriver {
	if lookbackDays <= 0 {
		lookbackDays = DefaultConfig().LookbackDays
	}
	return &MacroDeriver{
		lookback: lookbackDays,
		treasury: newSeries(macro[models.MacroTreasury10Y]),
		dollar:   newSeries(macro[models.MacroDollarIndex]),
		cpi:      newSeries(macro[models.MacroCPI]),
		vix:      newSeries(macro[models.MacroVIX]),
	}
}

// DeriveAt builds the state as of asOf using only data dated on or before it.
// A component whose inputs are missing stays 0.
func (d *MacroDeriver) DeriveAt(asOf time.Time) models.MacroState {
	asOf = models.Day(asOf)
	past := asOf.AddDate(0, 0, -d.lookback)
	state := models.MacroState{AsOf: asOf}

	if now, ok := d.realYield(asOf); ok {
		if then, ok := d.realYield(past); ok {
			state.RealYieldTrend = now - then
		}
	}
	if now, ok := d.cpi.yoy(asOf); ok {
		if then, ok := d.cpi.yoy(past); ok {
			state.InflationTrend = now - then
		}
	}
	if window := d.dollar.between(past, asOf); len(window) >= 2 {
		mean, std := features.MeanStd(window)
		if std > 0 {
			state.USDStrength = (window[len(window)-1] - mean) / std
		}
	}
	if v, ok := d.vix.at(asOf); ok {
		state.RiskSentiment = v
	}
	return state
}

func (d *MacroDeriver) realYield(t time.Time) (float64, bool) {
	nominal, ok := d.treasury.at(t)
	if !ok {
		return 0, false
	}
	infl, ok := d.cpi.yoy(t)
	if !ok {
		return 0, false
	}
	return nominal - infl, true
}

// DeriveMacroState is a one-shot DeriveAt.
func DeriveMacroState(macro map[string][]models.PricePoint, asOf time.Time, lookbackDays int) models.MacroState {
	return NewMacroDeriver(macro, lookbackDays).DeriveAt(asOf)
}

// ClassifyDays classifies every given day and collapses the result into intervals.
func (c *Classifier) ClassifyDays(macro map[string][]models.PricePoint, days []time.Time) ([]models.RegimeObservation, []models.RegimeInterval) {
	deriver := NewMacroDeriver(macro, c.cfg.LookbackDays)
	obs := make([]models.RegimeObservation, 0, len(days))
	for _, day := range days {
		obs = append(obs, models.RegimeObservation{
			Timestamp: models.Day(day),
			Regime:    c.Classify(deriver.DeriveAt(day)),
		})
	}
	return obs, Collapse(obs)
}
