package models

import "time"

// GSRAnalysis is the current state of the ratio, mirroring the
// /gsr/current view: latest observation, its primary-window stat and the
// signal derived from them.
type GSRAnalysis struct {
	Timestamp   time.Time           `json:"timestamp"`
	GSR         float64             `json:"gsr"`
	GoldPrice   float64             `json:"gold_price"`
	SilverPrice float64             `json:"silver_price"`
	Stat        *RollingStat        `json:"stat"`
	Stats       map[int]RollingStat `json:"stats"`
	Macro       *MacroState         `json:"macro,omitempty"`
	Regime      RegimeType          `json:"regime"`
	Signal      Signal              `json:"signal"`
	Errors      map[string]string   `json:"errors,omitempty"`
}

// DerivedCoverage records what the last compute run persisted: stats and
// correlations for every listed window and variable, dated in [From, To].
type DerivedCoverage struct {
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	StatWindows        []int     `json:"stat_windows"`
	CorrelationWindows []int     `json:"correlation_windows"`
	Variables          []string  `json:"variables"`
}

// ComputeReport summarizes one run of the scheduled compute job.
type ComputeReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	PricesStored    int           `json:"prices_stored"`
	StatsStored     int           `json:"stats_stored"`
	CorrsStored     int           `json:"correlations_stored"`
	AlertsTriggered int           `json:"alerts_triggered"`
	Signal          *Signal       `json:"signal,omitempty"`
	Errors          []string      `json:"errors,omitempty"`
}
