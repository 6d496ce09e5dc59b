package models

import "time"

// RollingStat is the trailing-window summary of the GSR at one observation.
// ZScore is nil when the window is flat (std == 0).
type RollingStat struct {
	Timestamp      time.Time `json:"timestamp"`
	WindowDays     int       `json:"window_days"`
	GSR            float64   `json:"gsr"`
	Mean           float64   `json:"mean"`
	Std            float64   `json:"std"`
	ZScore         *float64  `json:"z_score"`
	PercentileRank float64   `json:"percentile_rank"`
}

// CorrelationObservation is a trailing-window Pearson correlation of the GSR
// against one macro variable. PearsonR is nil when either side has zero variance.
type CorrelationObservation struct {
	Timestamp    time.Time `json:"timestamp"`
	WindowDays   int       `json:"window_days"`
	VariableName string    `json:"variable_name"`
	PearsonR     *float64  `json:"pearson_r"`
	Samples      int       `json:"samples"`
}

// DefaultStatWindows are the rolling windows computed for the GSR.
func DefaultStatWindows() []int { return []int{30, 90, 180, 365} }

// DefaultCorrelationWindows are the rolling windows used for macro correlations.
func DefaultCorrelationWindows() []int { return []int{30, 90, 180} }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
