// Package regime classifies the macro environment into a closed set of
// regimes with an ordered, first-match rule list.
package regime

import (
	"GSRSwap/internal/domain/models"
)

// Config holds the rule thresholds. Zero fields fall back to DefaultConfig.
type Config struct {
	CrisisVIX     float64 `yaml:"crisis_vix" json:"crisis_vix"`
	ElevatedVIX   float64 `yaml:"elevated_vix" json:"elevated_vix"`
	YieldTrendEps float64 `yaml:"yield_trend_eps" json:"yield_trend_eps"`
	USDStrongZ    float64 `yaml:"usd_strong_z" json:"usd_strong_z"`
	LookbackDays  int     `yaml:"lookback_days" json:"lookback_days"`
}

// DefaultConfig returns the stock rule thresholds.
func DefaultConfig() Config {
	return Config{
		CrisisVIX:     30,
		ElevatedVIX:   20,
		YieldTrendEps: 0.05,
		USDStrongZ:    1.0,
		LookbackDays:  90,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CrisisVIX == 0 {
		c.CrisisVIX = d.CrisisVIX
	}
	if c.ElevatedVIX == 0 {
		c.ElevatedVIX = d.ElevatedVIX
	}
	if c.YieldTrendEps == 0 {
		c.YieldTrendEps = d.YieldTrendEps
	}
	if c.USDStrongZ == 0 {
		c.USDStrongZ = d.USDStrongZ
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	return c
}

type rule struct {
	regime models.RegimeType
	match  func(models.MacroState) bool
}

// Classifier is total and deterministic: every state maps to exactly one regime.
type Classifier struct {
	cfg   Config
	rules []rule
}

// NewClassifier builds the ordered rule list from cfg.
func NewClassifier(cfg Config) *Classifier {
	cfg = cfg.withDefaults()
	c := &Classifier{cfg: cfg}
	c.rules = []rule{
		{models.RegimeCrisis, func(s models.MacroState) bool {
			return s.RiskSentiment >= cfg.CrisisVIX
		}},
		{models.RegimeRiskOffDeflation, func(s models.MacroState) bool {
			return s.InflationTrend < 0 && s.RiskSentiment >= cfg.ElevatedVIX
		}},
		{models.RegimeTighteningStrongUSD, func(s models.MacroState) bool {
			return s.RealYieldTrend > cfg.YieldTrendEps && s.USDStrength >= cfg.USDStrongZ
		}},
		{models.RegimeEasingWeakUSD, func(s models.MacroState) bool {
			return s.RealYieldTrend < -cfg.YieldTrendEps && s.USDStrength <= -cfg.USDStrongZ
		}},
		{models.RegimeRiskOnReflation, func(s models.MacroState) bool {
			return s.InflationTrend > 0 && s.RiskSentiment > 0 && s.RiskSentiment < cfg.ElevatedVIX
		}},
	}
	return c
}

// Config returns the effective thresholds.
func (c *Classifier) Config() Config { return c.cfg }

// Classify returns the first matching regime, neutral when none match.
func (c *Classifier) Classify(state models.MacroState) models.RegimeType {
	for _, r := range c.rules {
		if r.match(state) {
			return r.regime
		}
	}
	return models.RegimeNeutral
}

// Classify uses the default thresholds.
func Classify(state models.MacroState) models.RegimeType {
	return NewClassifier(DefaultConfig()).Classify(state)
}

// Collapse merges consecutive identical classifications into intervals.
// Input must be in ascending time order.
func Collapse(obs []models.RegimeObservation) []models.RegimeInterval {
	var out []models.RegimeInterval
	for _, o := range obs {
		if n := len(out); n > 0 && out[n-1].Regime == o.Regime {
			out[n-1].EndDate = o.Timestamp
			out[n-1].Days++
			continue
		}
		out = append(out, models.RegimeInterval{
			Regime:    o.Regime,
			StartDate: o.Timestamp,
			EndDate:   o.Timestamp,
			Days:      1,
		})
	}
	return out
}
