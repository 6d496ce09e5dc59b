package models

import "time"

// SignalType is the swap direction recommended by a signal.
type SignalType string

const (
	SignalGoldToSilver SignalType = "swap_gold_to_silver"
	SignalSilverToGold SignalType = "swap_silver_to_gold"
	SignalNone         SignalType = "none"
)

// Signal is a pure function of current statistics; it is never mutated after creation.
type Signal struct {
	Timestamp       time.Time  `json:"timestamp"`
	Type            SignalType `json:"type"`
	Strength        float64    `json:"strength"`
	PositionSizePct float64    `json:"recommended_position_size_pct"`
	GSRValue        float64    `json:"gsr_value"`
	GSRZScore       *float64   `json:"gsr_z_score"`
	GSRPercentile   *float64   `json:"gsr_percentile"`
	Regime          RegimeType `json:"regime"`
	Recommendation  string     `json:"recommendation,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
}

// Thresholds configures the signal rules.
type Thresholds struct {
	GSRHigh            float64 `json:"gsr_high" yaml:"gsr_high"`
	GSRLow             float64 `json:"gsr_low" yaml:"gsr_low"`
	PercentileHigh     float64 `json:"percentile_high" yaml:"percentile_high"`
	PercentileLow      float64 `json:"percentile_low" yaml:"percentile_low"`
	PercentileTriggers bool    `json:"percentile_triggers" yaml:"percentile_triggers"`
}

// DefaultThresholds returns the live signal thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GSRHigh:            85,
		GSRLow:             65,
		PercentileHigh:     85,
		PercentileLow:      20,
		PercentileTriggers: true,
	}
}

// Validate rejects inverted or out-of-range thresholds.
func (t Thresholds) Validate() error {
	if t.GSRHigh <= t.GSRLow {
		return NewValidationError("gsr_high", "gsr_high (%.2f) must be greater than gsr_low (%.2f)", t.GSRHigh, t.GSRLow)
	}
	if t.GSRLow <= 0 {
		return NewValidationError("gsr_low", "gsr_low must be positive")
	}
	if t.PercentileTriggers {
		if t.PercentileHigh < 0 || t.PercentileHigh > 100 || t.PercentileLow < 0 || t.PercentileLow > 100 {
			return NewValidationError("percentile", "percentile thresholds must lie in [0, 100]")
		}
		if t.PercentileHigh <= t.PercentileLow {
			return NewValidationError("percentile_high", "percentile_high must be greater than percentile_low")
		}
	}
	return nil
}
