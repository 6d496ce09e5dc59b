// Package alerts evaluates alert conditions against the live signal state.
// Evaluation is stateless; debouncing belongs to the caller.
package alerts

import (
	"strings"

	"GSRSwap/internal/domain/models"
)

const (
	DirectionAbove = "above"
	DirectionBelow = "below"

	BandInside  = "inside"
	BandOutside = "outside"

	LogicAnd = "and"
	LogicOr  = "or"
)

// Evaluate reports whether cfg triggers for in. A metric that is absent from
// the input never triggers. Malformed configs return a ValidationError.
func Evaluate(cfg models.AlertConfig, in models.AlertInput) (bool, error) {
	if err := Validate(cfg); err != nil {
		return false, err
	}
	return evaluate(cfg, in), nil
}

// EvaluateAll evaluates every config independently.
func EvaluateAll(cfgs []models.AlertConfig, in models.AlertInput) []models.AlertResult {
	out := make([]models.AlertResult, 0, len(cfgs))
	for _, cfg := range cfgs {
		ok, err := Evaluate(cfg, in)
		res := models.AlertResult{Alert: cfg, Triggered: ok}
		if err != nil {
			res.Error = err.Error()
		}
		out = append(out, res)
	}
	return out
}

// Validate checks a config and all of its nested conditions.
func Validate(cfg models.AlertConfig) error {
	switch cfg.Type {
	case models.AlertThreshold:
		if _, ok := metricNames[cfg.Metric]; !ok {
			return models.NewValidationError("metric", "unknown metric %q", cfg.Metric)
		}
		if cfg.Direction != DirectionAbove && cfg.Direction != DirectionBelow {
			return models.NewValidationError("direction", "direction must be %q or %q", DirectionAbove, DirectionBelow)
		}
	case models.AlertRatioBand:
		if cfg.BandLow == nil && cfg.BandHigh == nil {
			return models.NewValidationError("band_low", "ratio band needs at least one bound")
		}
		if cfg.BandLow != nil && cfg.BandHigh != nil && *cfg.BandLow > *cfg.BandHigh {
			return models.NewValidationError("band_low", "band_low must not exceed band_high")
		}
		switch strings.ToLower(cfg.BandMode) {
		case "", BandInside, BandOutside:
		default:
			return models.NewValidationError("band_mode", "band_mode must be %q or %q", BandInside, BandOutside)
		}
	case models.AlertComposite:
		switch strings.ToLower(cfg.Logic) {
		case "", LogicAnd, LogicOr:
		default:
			return models.NewValidationError("logic", "logic must be %q or %q", LogicAnd, LogicOr)
		}
		if len(cfg.Conditions) == 0 {
			return models.NewValidationError("conditions", "composite alert needs conditions")
		}
		for _, c := range cfg.Conditions {
			if err := Validate(c); err != nil {
				return err
			}
		}
	case models.AlertMacroEvent:
		if cfg.FromRegime != "" && !cfg.FromRegime.IsValid() {
			return models.NewValidationError("from_regime", "unknown regime %q", cfg.FromRegime)
		}
		if cfg.ToRegime != "" && !cfg.ToRegime.IsValid() {
			return models.NewValidationError("to_regime", "unknown regime %q", cfg.ToRegime)
		}
	default:
		return models.NewValidationError("type", "unknown alert type %q", cfg.Type)
	}
	return nil
}

func evaluate(cfg models.AlertConfig, in models.AlertInput) bool {
	switch cfg.Type {
	case models.AlertThreshold:
		v, ok := metric(cfg.Metric, in)
		if !ok {
			return false
		}
		if cfg.Direction == DirectionAbove {
			return v >= cfg.Threshold
		}
		return v <= cfg.Threshold
	case models.AlertRatioBand:
		v, ok := metric(models.MetricGSR, in)
		if !ok {
			return false
		}
		inside := (cfg.BandLow == nil || v >= *cfg.BandLow) && (cfg.BandHigh == nil || v <= *cfg.BandHigh)
		if strings.ToLower(cfg.BandMode) == BandOutside {
			return !inside
		}
		return inside
	case models.AlertComposite:
		or := strings.ToLower(cfg.Logic) == LogicOr
		for _, c := range cfg.Conditions {
			hit := evaluate(c, in)
			if or && hit {
				return true
			}
			if !or && !hit {
				return false
			}
		}
		return !or
	case models.AlertMacroEvent:
		if in.Signal == nil || in.PreviousRegime == "" || in.Signal.Regime == "" {
			return false
		}
		current := in.Signal.Regime
		if current == in.PreviousRegime {
			return false
		}
		if cfg.FromRegime != "" && cfg.FromRegime != in.PreviousRegime {
			return false
		}
		if cfg.ToRegime != "" && cfg.ToRegime != current {
			return false
		}
		return true
	}
	return false
}

var metricNames = map[string]struct{}{
	models.MetricGSR:            {},
	models.MetricZScore:         {},
	models.MetricPercentile:     {},
	models.MetricMean:           {},
	models.MetricStd:            {},
	models.MetricSignalStrength: {},
}

// metric resolves a metric from the stat first, then the signal.
func metric(name string, in models.AlertInput) (float64, bool) {
	st, sig := in.Stat, in.Signal
	switch name {
	case models.MetricGSR:
		if st != nil {
			return st.GSR, true
		}
		if sig != nil {
			return sig.GSRValue, true
		}
	case models.MetricZScore:
		if st != nil && st.ZScore != nil {
			return *st.ZScore, true
		}
		if sig != nil && sig.GSRZScore != nil {
			return *sig.GSRZScore, true
		}
	case models.MetricPercentile:
		if st != nil {
			return st.PercentileRank, true
		}
		if sig != nil && sig.GSRPercentile != nil {
			return *sig.GSRPercentile, true
		}
	case models.MetricMean:
		if st != nil {
			return st.Mean, true
		}
	case models.MetricStd:
		if st != nil {
			return st.Std, true
		}
	case models.MetricSignalStrength:
		if sig != nil {
			return sig.Strength, true
		}
	}
	return 0, false
}
