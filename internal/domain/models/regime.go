package models

import "time"

// RegimeType is a named macro-environment classification.
type RegimeType string

const (
	RegimeCrisis              RegimeType = "crisis"
	RegimeRiskOffDeflation    RegimeType = "risk_off_deflation"
	RegimeRiskOnReflation     RegimeType = "risk_on_reflation"
	RegimeTighteningStrongUSD RegimeType = "tightening_strong_usd"
	RegimeEasingWeakUSD       RegimeType = "easing_weak_usd"
	RegimeNeutral             RegimeType = "neutral"
)

// AllRegimes returns the closed set of regimes in classification order.
func AllRegimes() []RegimeType {
	return []RegimeType{
		RegimeCrisis,
		RegimeRiskOffDeflation,
		RegimeTighteningStrongUSD,
		RegimeEasingWeakUSD,
		RegimeRiskOnReflation,
		RegimeNeutral,
	}
}

// IsValid reports whether r belongs to the closed set.
func (r RegimeType) IsValid() bool {
	for _, v := range AllRegimes() {
		if r == v {
			return true
		}
	}
	return false
}

func (r RegimeType) String() string { return string(r) }

// MacroState is the input of the regime classifier.
type MacroState struct {
	AsOf           time.Time `json:"as_of"`
	RealYieldTrend float64   `json:"real_yield_trend"`
	USDStrength    float64   `json:"usd_strength"`
	InflationTrend float64   `json:"inflation_trend"`
	RiskSentiment  float64   `json:"risk_sentiment"`
}

// RegimeObservation is the classification of a single day.
type RegimeObservation struct {
	Timestamp time.Time  `json:"timestamp"`
	Regime    RegimeType `json:"regime"`
}

// RegimeInterval is a run of consecutive identical classifications.
type RegimeInterval struct {
	Regime    RegimeType `json:"regime"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Days      int        `json:"days"`
}

// RegimeReport is the regime history over a range.
type RegimeReport struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Current   RegimeType       `json:"current"`
	Intervals []RegimeInterval `json:"intervals"`
}
