package models

import "time"

// AlertType selects how an alert condition is evaluated.
type AlertType string

const (
	AlertThreshold  AlertType = "threshold"
	AlertRatioBand  AlertType = "ratio_band"
	AlertComposite  AlertType = "composite"
	AlertMacroEvent AlertType = "macro_event"
)

// Metrics addressable by threshold alerts.
const (
	MetricGSR            = "gsr"
	MetricZScore         = "z_score"
	MetricPercentile     = "percentile"
	MetricMean           = "mean"
	MetricStd            = "std"
	MetricSignalStrength = "signal_strength"
)

// AlertConfig describes one alert condition. Composite alerts nest conditions.
type AlertConfig struct {
	ID         string        `json:"id,omitempty"`
	Name       string        `json:"name,omitempty"`
	Type       AlertType     `json:"type" validate:"required,oneof=threshold ratio_band composite macro_event"`
	Metric     string        `json:"metric,omitempty"`
	Direction  string        `json:"direction,omitempty"`
	Threshold  float64       `json:"threshold,omitempty"`
	BandLow    *float64      `json:"band_low,omitempty"`
	BandHigh   *float64      `json:"band_high,omitempty"`
	BandMode   string        `json:"band_mode,omitempty"`
	Logic      string        `json:"logic,omitempty"`
	Conditions []AlertConfig `json:"conditions,omitempty"`
	FromRegime RegimeType    `json:"from_regime,omitempty"`
	ToRegime   RegimeType    `json:"to_regime,omitempty"`
}

// AlertInput is the live state an alert is evaluated against.
type AlertInput struct {
	Signal         *Signal      `json:"signal"`
	Stat           *RollingStat `json:"stat"`
	PreviousRegime RegimeType   `json:"previous_regime,omitempty"`
}

// AlertResult pairs an alert with its evaluation.
type AlertResult struct {
	Alert     AlertConfig `json:"alert"`
	Triggered bool        `json:"triggered"`
	Error     string      `json:"error,omitempty"`
}

// AlertEvent is published when an alert triggers.
type AlertEvent struct {
	ID          string     `json:"id"`
	AlertID     string     `json:"alert_id"`
	AlertName   string     `json:"alert_name"`
	Type        AlertType  `json:"type"`
	TriggeredAt time.Time  `json:"triggered_at"`
	GSR         float64    `json:"gsr"`
	SignalType  SignalType `json:"signal_type"`
	Strength    float64    `json:"strength"`
	Regime      RegimeType `json:"regime"`
}

// AlertsEvaluation is the outcome of evaluating a set of alerts against the
// current state.
type AlertsEvaluation struct {
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Results     []AlertResult `json:"results"`
	Events      []AlertEvent  `json:"events"`
	Published   bool          `json:"published"`
}
