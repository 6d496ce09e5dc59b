// Package signals turns the current GSR statistics into a swap signal.
package signals

import (
	"fmt"
	"strings"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/services/features"
)

// Strength weights and ramp spans.
const (
	baseStrength     = 50.0
	levelWeight      = 20.0
	zWeight          = 15.0
	percentileWeight = 15.0

	levelSpan      = 5.0
	percentileSpan = 10.0

	minPositionPct = 10.0
	maxPositionPct = 20.0
)

// z-score ramps per direction.
const (
	zHighFrom = 1.0
	zHighTo   = 2.0
	zLowFrom  = -0.5
	zLowTo    = -1.5
)

// Reasoning mentions the z-score past these levels.
const (
	zHighNote = 1.5
	zLowNote  = -1.0
)

// Input is everything a signal depends on.
type Input struct {
	Timestamp  time.Time
	GSR        float64
	ZScore     *float64
	Percentile *float64
	Regime     models.RegimeType
}

// FromStat builds an input from a rolling stat. A flat window has no
// meaningful rank, so its percentile is left out along with its z-score.
func FromStat(st models.RollingStat, regime models.RegimeType) Input {
	in := Input{
		Timestamp: st.Timestamp,
		GSR:       st.GSR,
		ZScore:    st.ZScore,
		Regime:    regime,
	}
	if st.ZScore != nil {
		p := st.PercentileRank
		in.Percentile = &p
	}
	return in
}

// Generate evaluates the high and low rules. When both hold the high rule wins.
func Generate(in Input, th models.Thresholds) models.Signal {
	sig := models.Signal{
		Timestamp:       in.Timestamp,
		Type:            models.SignalNone,
		PositionSizePct: minPositionPct,
		GSRValue:        in.GSR,
		GSRZScore:       copyPtr(in.ZScore),
		GSRPercentile:   copyPtr(in.Percentile),
		Regime:          in.Regime,
	}
	if sig.Regime == "" {
		sig.Regime = models.RegimeNeutral
	}

	levelHigh := in.GSR >= th.GSRHigh
	pctHigh := th.PercentileTriggers && in.Percentile != nil && *in.Percentile >= th.PercentileHigh
	levelLow := in.GSR <= th.GSRLow
	pctLow := th.PercentileTriggers && in.Percentile != nil && *in.Percentile <= th.PercentileLow

	switch {
	case levelHigh || pctHigh:
		sig.Type = models.SignalGoldToSilver
		sig.Strength = highStrength(in, th)
		sig.PositionSizePct = PositionSize(sig.Strength)
		sig.Recommendation = fmt.Sprintf("Consider rotating %.1f%% of gold holdings to silver", sig.PositionSizePct)
		sig.Reasoning = highReasoning(in, th, levelHigh, pctHigh)
	case levelLow || pctLow:
		sig.Type = models.SignalSilverToGold
		sig.Strength = lowStrength(in, th)
		sig.PositionSizePct = PositionSize(sig.Strength)
		sig.Recommendation = fmt.Sprintf("Consider rotating %.1f%% of silver holdings to gold", sig.PositionSizePct)
		sig.Reasoning = lowReasoning(in, th, levelLow, pctLow)
	}
	return sig
}

// PositionSize maps strength 50..100 linearly onto 10..20 percent.
func PositionSize(strength float64) float64 {
	if strength <= 0 {
		return minPositionPct
	}
	size := minPositionPct + (maxPositionPct-minPositionPct)*(strength-baseStrength)/baseStrength
	return features.Clamp(size, minPositionPct, maxPositionPct)
}

func highStrength(in Input, th models.Thresholds) float64 {
	s := baseStrength + levelWeight*features.Ramp(in.GSR, th.GSRHigh, th.GSRHigh+levelSpan)
	if in.ZScore != nil {
		s += zWeight * features.Ramp(*in.ZScore, zHighFrom, zHighTo)
	}
	if in.Percentile != nil {
		to := features.Clamp(th.PercentileHigh+percentileSpan, 0, 100)
		s += percentileWeight * features.Ramp(*in.Percentile, th.PercentileHigh, to)
	}
	return features.Clamp(s, 0, 100)
}

func lowStrength(in Input, th models.Thresholds) float64 {
	s := baseStrength + levelWeight*features.Ramp(in.GSR, th.GSRLow, th.GSRLow-levelSpan)
	if in.ZScore != nil {
		s += zWeight * features.Ramp(*in.ZScore, zLowFrom, zLowTo)
	}
	if in.Percentile != nil {
		to := features.Clamp(th.PercentileLow-percentileSpan, 0, 100)
		s += percentileWeight * features.Ramp(*in.Percentile, th.PercentileLow, to)
	}
	return features.Clamp(s, 0, 100)
}

func highReasoning(in Input, th models.Thresholds, level, pct bool) string {
	var parts []string
	if level {
		parts = append(parts, fmt.Sprintf("GSR at %.1f (above %.0f threshold)", in.GSR, th.GSRHigh))
	}
	if pct {
		parts = append(parts, fmt.Sprintf("GSR at %.1fth percentile", *in.Percentile))
	}
	if in.ZScore != nil && *in.ZScore >= zHighNote {
		parts = append(parts, fmt.Sprintf("Z-score %.2f (>%.1f std above mean)", *in.ZScore, zHighNote))
	}
	return strings.Join(parts, "; ")
}

func lowReasoning(in Input, th models.Thresholds, level, pct bool) string {
	var parts []string
	if level {
		parts = append(parts, fmt.Sprintf("GSR at %.1f (below %.0f threshold)", in.GSR, th.GSRLow))
	}
	if pct {
		parts = append(parts, fmt.Sprintf("GSR at %.1fth percentile", *in.Percentile))
	}
	if in.ZScore != nil && *in.ZScore <= zLowNote {
		parts = append(parts, fmt.Sprintf("Z-score %.2f (<%.1f std below mean)", *in.ZScore, zLowNote))
	}
	return strings.Join(parts, "; ")
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
