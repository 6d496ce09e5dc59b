package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GSRSwap/internal/domain/models"
)

func TestClassifyRuleOrder(t *testing.T) {
	cases := []struct {
		name  string
		state models.MacroState
		want  models.RegimeType
	}{
		{"crisis beats everything", models.MacroState{RiskSentiment: 35, InflationTrend: -1, RealYieldTrend: 1, USDStrength: 2}, models.RegimeCrisis},
		{"deflationary stress", models.MacroState{RiskSentiment: 22, InflationTrend: -0.3}, models.RegimeRiskOffDeflation},
		{"tightening", models.MacroState{RiskSentiment: 15, RealYieldTrend: 0.2, USDStrength: 1.0}, models.RegimeTighteningStrongUSD},
		{"easing", models.MacroState{RiskSentiment: 15, RealYieldTrend: -0.2, USDStrength: -1.5}, models.RegimeEasingWeakUSD},
		{"reflation", models.MacroState{RiskSentiment: 14, InflationTrend: 0.4}, models.RegimeRiskOnReflation},
		{"small yield move is not tightening", models.MacroState{RiskSentiment: 25, RealYieldTrend: 0.05, USDStrength: 3}, models.RegimeNeutral},
		{"missing inputs", models.MacroState{}, models.RegimeNeutral},
		{"reflation needs a vix reading", models.MacroState{InflationTrend: 1}, models.RegimeNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.state))
		})
	}
}

func TestClassifierCustomThresholds(t *testing.T) {
	c := NewClassifier(Config{CrisisVIX: 40})
	assert.Equal(t, 40.0, c.Config().CrisisVIX)
	assert.Equal(t, 20.0, c.Config().ElevatedVIX)
	assert.Equal(t, models.RegimeNeutral, c.Classify(models.MacroState{RiskSentiment: 35}))
}

func TestClassifyIsTotal(t *testing.T) {
	for _, vix := range []float64{0, 10, 20, 30, 50} {
		for _, infl := range []float64{-1, 0, 1} {
			for _, usd := range []float64{-2, 0, 2} {
				got := Classify(models.MacroState{RiskSentiment: vix, InflationTrend: infl, USDStrength: usd, RealYieldTrend: usd / 10})
				assert.True(t, got.IsValid())
			}
		}
	}
}

func TestCollapse(t *testing.T) {
	d := func(i int) time.Time { return time.Date(2024, 5, 1+i, 0, 0, 0, 0, time.UTC) }
	got := Collapse([]models.RegimeObservation{
		{Timestamp: d(0), Regime: models.RegimeNeutral},
		{Timestamp: d(1), Regime: models.RegimeNeutral},
		{Timestamp: d(2), Regime: models.RegimeCrisis},
		{Timestamp: d(3), Regime: models.RegimeNeutral},
	})
	require.Len(t, got, 3)
	assert.Equal(t, models.RegimeInterval{Regime: models.RegimeNeutral, StartDate: d(0), EndDate: d(1), Days: 2}, got[0])
	assert.Equal(t, models.RegimeCrisis, got[1].Regime)
	assert.Equal(t, d(3), got[2].StartDate)
	assert.Nil(t, Collapse(nil))
}

func monthly(symbol string, start time.Time, months int, f func(i int) float64) []models.PricePoint {
	out := make([]models.PricePoint, months)
	for i := range out {
		out[i] = models.PricePoint{Timestamp: start.AddDate(0, i, 0), Symbol: symbol, Price: f(i)}
	}
	return out
}

func TestDeriveMacroState(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	macro := map[string][]models.PricePoint{
		// CPI accelerating: growth per month increases over time
		models.MacroCPI:         monthly(models.MacroCPI, start, 36, func(i int) float64 { return 100 + float64(i*i)*0.05 }),
		models.MacroTreasury10Y: monthly(models.MacroTreasury10Y, start, 36, func(int) float64 { return 3 }),
		models.MacroVIX:         monthly(models.MacroVIX, start, 36, func(i int) float64 { return float64(10 + i) }),
		models.MacroDollarIndex: monthly(models.MacroDollarIndex, start, 36, func(i int) float64 { return 100 + float64(i) }),
	}

	asOf := start.AddDate(0, 30, 0)
	state := DeriveMacroState(macro, asOf, 180)

	assert.Equal(t, asOf, state.AsOf)
	assert.Equal(t, 40.0, state.RiskSentiment)
	assert.Greater(t, state.InflationTrend, 0.0)
	// flat nominal yield with rising inflation means falling real yields
	assert.Less(t, state.RealYieldTrend, 0.0)
	// the latest dollar reading is the window high
	assert.Greater(t, state.USDStrength, 1.0)
}

func TestDeriveMacroStateIgnoresFuture(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := start.AddDate(0, 0, 10)
	macro := map[string][]models.PricePoint{
		models.MacroVIX: {
			{Timestamp: start, Price: 18},
			{Timestamp: asOf.AddDate(0, 0, 1), Price: 45},
		},
	}
	state := DeriveMacroState(macro, asOf, 90)
	assert.Equal(t, 18.0, state.RiskSentiment)
	assert.Equal(t, 0.0, state.InflationTrend)
	assert.Equal(t, 0.0, state.USDStrength)
}

func TestClassifyDays(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	macro := map[string][]models.PricePoint{
		models.MacroVIX: {
			{Timestamp: start, Price: 12},
			{Timestamp: start.AddDate(0, 0, 2), Price: 33},
		},
	}
	days := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2), start.AddDate(0, 0, 3)}
	obs, intervals := NewClassifier(DefaultConfig()).ClassifyDays(macro, days)
	require.Len(t, obs, 4)
	require.Len(t, intervals, 2)
	assert.Equal(t, models.RegimeNeutral, intervals[0].Regime)
	assert.Equal(t, 2, intervals[0].Days)
	assert.Equal(t, models.RegimeCrisis, intervals[1].Regime)
}
