package models

import "time"

// SwapAction identifies the direction of an executed swap.
type SwapAction string

const (
	ActionGoldToSilver SwapAction = "gold_to_silver"
	ActionSilverToGold SwapAction = "silver_to_gold"
)

// BacktestConfig is the immutable input of a single simulation run.
type BacktestConfig struct {
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	InitialGoldOz      float64   `json:"initial_gold_oz"`
	GSRHighThreshold   float64   `json:"gsr_high_threshold"`
	GSRLowThreshold    float64   `json:"gsr_low_threshold"`
	PositionSizePct    float64   `json:"position_size_pct"`
	TransactionCostPct float64   `json:"transaction_cost_pct"`
	// StatsWindow is the rolling window feeding z-score and percentile.
	StatsWindow int `json:"stats_window"`
	// PercentileTriggers enables the percentile rules during replay.
	PercentileTriggers bool `json:"percentile_triggers"`
	// AlternateSwaps skips a swap in the same direction as the previous one.
	AlternateSwaps bool `json:"alternate_swaps"`
}

// DefaultBacktestConfig returns the strategy defaults over [start, end].
func DefaultBacktestConfig(start, end time.Time) BacktestConfig {
	return BacktestConfig{
		StartDate:          start,
		EndDate:            end,
		InitialGoldOz:      100,
		GSRHighThreshold:   85,
		GSRLowThreshold:    65,
		PositionSizePct:    15,
		TransactionCostPct: 2,
		StatsWindow:        90,
		AlternateSwaps:     true,
	}
}

// Thresholds returns the signal thresholds this run replays with.
func (c BacktestConfig) Thresholds() Thresholds {
	t := DefaultThresholds()
	t.GSRHigh = c.GSRHighThreshold
	t.GSRLow = c.GSRLowThreshold
	t.PercentileTriggers = c.PercentileTriggers
	return t
}

// Validate rejects malformed configuration.
func (c BacktestConfig) Validate() error {
	switch {
	case c.InitialGoldOz <= 0:
		return NewValidationError("initial_gold_oz", "must be positive, got %.4f", c.InitialGoldOz)
	case c.GSRHighThreshold <= c.GSRLowThreshold:
		return NewValidationError("gsr_high_threshold", "gsr_high_threshold (%.2f) must be greater than gsr_low_threshold (%.2f)", c.GSRHighThreshold, c.GSRLowThreshold)
	case c.GSRLowThreshold <= 0:
		return NewValidationError("gsr_low_threshold", "must be positive")
	case c.PositionSizePct <= 0 || c.PositionSizePct > 100:
		return NewValidationError("position_size_pct", "must be in (0, 100], got %.2f", c.PositionSizePct)
	case c.TransactionCostPct < 0 || c.TransactionCostPct >= 100:
		return NewValidationError("transaction_cost_pct", "must be in [0, 100), got %.2f", c.TransactionCostPct)
	case c.StartDate.IsZero() || c.EndDate.IsZero():
		return NewValidationError("start_date", "start_date and end_date are required")
	case c.EndDate.Before(c.StartDate):
		return NewValidationError("end_date", "end_date must not be before start_date")
	case c.StatsWindow < 2:
		return NewValidationError("stats_window", "must be at least 2, got %d", c.StatsWindow)
	}
	return nil
}

// Trade is one executed swap.
type Trade struct {
	Timestamp      time.Time  `json:"timestamp"`
	Action         SwapAction `json:"action"`
	GSR            float64    `json:"gsr"`
	GoldOzBefore   float64    `json:"gold_oz_before"`
	SilverOzBefore float64    `json:"silver_oz_before"`
	GoldOzAfter    float64    `json:"gold_oz_after"`
	SilverOzAfter  float64    `json:"silver_oz_after"`
	CostGoldOz     float64    `json:"cost_gold_oz"`
	Winning        bool       `json:"winning"`
	ExitGSR        float64    `json:"exit_gsr"`
}

// EquityPoint is the gold-equivalent value of the position on one day.
type EquityPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	GoldEqValue float64   `json:"gold_equivalent_value"`
	GoldOz      float64   `json:"gold_oz"`
	SilverOz    float64   `json:"silver_oz"`
	GSR         float64   `json:"gsr,omitempty"`
}

// BacktestResult is produced once per run and read-only thereafter.
type BacktestResult struct {
	Config        BacktestConfig `json:"config"`
	FinalGoldOz   float64        `json:"final_gold_oz"`
	GoldOzGain    float64        `json:"gold_oz_gain"`
	GoldOzGainPct float64        `json:"gold_oz_gain_pct"`
	TotalSwaps    int            `json:"total_swaps"`
	WinningSwaps  int            `json:"winning_swaps"`
	WinRate       float64        `json:"win_rate"`
	SharpeRatio   float64        `json:"sharpe_ratio"`
	MaxDrawdown   float64        `json:"max_drawdown"`
	EquityCurve   []EquityPoint  `json:"equity_curve"`
	Trades        []Trade        `json:"trades"`
}

// BacktestSummary is the persisted record of one run.
type BacktestSummary struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	Config        BacktestConfig `json:"config"`
	FinalGoldOz   float64        `json:"final_gold_oz"`
	GoldOzGainPct float64        `json:"gold_oz_gain_pct"`
	WinRate       float64        `json:"win_rate"`
	TotalSwaps    int            `json:"total_swaps"`
	SharpeRatio   float64        `json:"sharpe_ratio"`
	MaxDrawdown   float64        `json:"max_drawdown"`
}

// Summarize builds the persisted summary of a result.
func (r BacktestResult) Summarize(id string, at time.Time) BacktestSummary {
	return BacktestSummary{
		ID:            id,
		CreatedAt:     at,
		Config:        r.Config,
		FinalGoldOz:   r.FinalGoldOz,
		GoldOzGainPct: r.GoldOzGainPct,
		WinRate:       r.WinRate,
		TotalSwaps:    r.TotalSwaps,
		SharpeRatio:   r.SharpeRatio,
		MaxDrawdown:   r.MaxDrawdown,
	}
}

// ParamGrid lists the candidate values of a parameter sweep.
type ParamGrid struct {
	GSRHigh         []float64 `json:"gsr_high"`
	GSRLow          []float64 `json:"gsr_low"`
	PositionSize    []float64 `json:"position_size"`
	TransactionCost []float64 `json:"transaction_cost"`
}

// DefaultParamGrid is the sweep used when a request supplies no ranges.
func DefaultParamGrid() ParamGrid {
	return ParamGrid{
		GSRHigh:         []float64{80, 85, 90},
		GSRLow:          []float64{60, 65, 70},
		PositionSize:    []float64{10, 15, 20},
		TransactionCost: []float64{2},
	}
}

// StrategyParams is one point of a parameter sweep.
type StrategyParams struct {
	GSRHigh         float64 `json:"gsr_high"`
	GSRLow          float64 `json:"gsr_low"`
	PositionSize    float64 `json:"position_size"`
	TransactionCost float64 `json:"transaction_cost"`
}

// Expand returns the cartesian product of the grid in a fixed order.
func (g ParamGrid) Expand() []StrategyParams {
	def := DefaultParamGrid()
	pick := func(v, d []float64) []float64 {
		if len(v) == 0 {
			return d
		}
		return v
	}
	highs := pick(g.GSRHigh, def.GSRHigh)
	lows := pick(g.GSRLow, def.GSRLow)
	sizes := pick(g.PositionSize, def.PositionSize)
	costs := pick(g.TransactionCost, def.TransactionCost)

	out := make([]StrategyParams, 0, len(highs)*len(lows)*len(sizes)*len(costs))
	for _, h := range highs {
		for _, l := range lows {
			for _, s := range sizes {
				for _, c := range costs {
					out = append(out, StrategyParams{GSRHigh: h, GSRLow: l, PositionSize: s, TransactionCost: c})
				}
			}
		}
	}
	return out
}

// SweepResult is the outcome of one point of a parameter sweep.
type SweepResult struct {
	Params        StrategyParams `json:"params"`
	GoldOzGainPct float64        `json:"gold_oz_gain_pct"`
	SharpeRatio   float64        `json:"sharpe_ratio"`
	WinRate       float64        `json:"win_rate"`
	TotalSwaps    int            `json:"total_swaps"`
	Error         string         `json:"error,omitempty"`
}

// OptimizeResult is the outcome of a full parameter sweep.
type OptimizeResult struct {
	BestParams *StrategyParams `json:"best_params"`
	BestResult *BacktestResult `json:"best_result"`
	AllResults []SweepResult   `json:"all_results"`
}
