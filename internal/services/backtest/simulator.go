// Package backtest replays a GSR series under a swap strategy and reports
// the outcome in gold ounces.
package backtest

import (
	"math"
	"sort"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/domain/service"
	"GSRSwap/internal/services/features"
	"GSRSwap/internal/services/signals"
	"GSRSwap/internal/services/stats"
)

type state int

const (
	notStarted state = iota
	running
	completed
)

// position is owned by exactly one run.
type position struct {
	gold   float64
	silver float64
}

// Simulator holds a validated configuration. A Simulator performs one pass
// per Run call and keeps no state between calls.
type Simulator struct {
	cfg models.BacktestConfig
	th  models.Thresholds
}

// NewSimulator validates cfg before any data is touched.
func NewSimulator(cfg models.BacktestConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg, th: cfg.Thresholds()}, nil
}

// Run validates cfg and replays series.
func Run(series []models.GSRObservation, cfg models.BacktestConfig) (models.BacktestResult, error) {
	sim, err := NewSimulator(cfg)
	if err != nil {
		return models.BacktestResult{}, err
	}
	return sim.Run(series)
}

// Engine adapts the package to service.Backtester.
type Engine struct{}

var _ service.Backtester = Engine{}

func (Engine) Run(series []models.GSRObservation, cfg models.BacktestConfig) (models.BacktestResult, error) {
	return Run(series, cfg)
}

type run struct {
	sim    *Simulator
	series []models.GSRObservation
	state  state
	pos    position
	last   models.SwapAction
	trades []models.Trade
	curve  []models.EquityPoint
}

// Run replays the observations dated within [StartDate, EndDate]. Observations
// before StartDate only feed the rolling statistics. Observations without a
// finite positive GSR are skipped; a range left empty is a NoDataError.
func (s *Simulator) Run(series []models.GSRObservation) (models.BacktestResult, error) {
	series = ascending(series)
	lo, hi := s.rangeIndexes(series)
	if lo >= hi {
		return models.BacktestResult{}, &models.NoDataError{Start: s.cfg.StartDate, End: s.cfg.EndDate}
	}

	r := &run{
		sim:    s,
		series: series,
		pos:    position{gold: s.cfg.InitialGoldOz},
		trades: make([]models.Trade, 0),
		curve:  make([]models.EquityPoint, 0, hi-lo+1),
	}
	r.state = running
	// The curve opens at StartDate. When the first observation falls on that
	// day it is the opening point itself.
	if start := models.Day(s.cfg.StartDate); series[lo].Timestamp.After(start) {
		r.curve = append(r.curve, models.EquityPoint{
			Timestamp:   start,
			GoldEqValue: s.cfg.InitialGoldOz,
			GoldOz:      s.cfg.InitialGoldOz,
		})
	}

	for i := lo; i < hi; i++ {
		r.step(i)
	}
	r.state = completed
	return r.result(series[hi-1].GSR), nil
}

// Signals returns the signal of every in-range day without executing swaps.
func (s *Simulator) Signals(series []models.GSRObservation) []models.Signal {
	series = ascending(series)
	lo, hi := s.rangeIndexes(series)
	if lo >= hi {
		return nil
	}
	out := make([]models.Signal, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, s.signalAt(series, i))
	}
	return out
}

func (s *Simulator) rangeIndexes(series []models.GSRObservation) (int, int) {
	start, end := models.Day(s.cfg.StartDate), models.Day(s.cfg.EndDate)
	lo := sort.Search(len(series), func(i int) bool { return !series[i].Timestamp.Before(start) })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(end) })
	return lo, hi
}

// signalAt sees only series[:i+1].
func (s *Simulator) signalAt(series []models.GSRObservation, i int) models.Signal {
	obs := series[i]
	in := signals.Input{Timestamp: obs.Timestamp, GSR: obs.GSR, Regime: models.RegimeNeutral}
	if st, ok := stats.StatAt(series, i, s.cfg.StatsWindow); ok {
		in = signals.FromStat(st, models.RegimeNeutral)
	}
	return signals.Generate(in, s.th)
}

func (r *run) step(i int) {
	obs := r.series[i]
	sig := r.sim.signalAt(r.series, i)

	switch sig.Type {
	case models.SignalGoldToSilver:
		r.swap(obs, models.ActionGoldToSilver)
	case models.SignalSilverToGold:
		r.swap(obs, models.ActionSilverToGold)
	}

	r.curve = append(r.curve, models.EquityPoint{
		Timestamp:   obs.Timestamp,
		GoldEqValue: r.pos.gold + r.pos.silver/obs.GSR,
		GoldOz:      r.pos.gold,
		SilverOz:    r.pos.silver,
		GSR:         obs.GSR,
	})
}

func (r *run) swap(obs models.GSRObservation, action models.SwapAction) {
	if r.sim.cfg.AlternateSwaps && r.last == action {
		return
	}
	keep := 1 - r.sim.cfg.TransactionCostPct/100
	size := r.sim.cfg.PositionSizePct / 100

	trade := models.Trade{
		Timestamp:      obs.Timestamp,
		Action:         action,
		GSR:            obs.GSR,
		GoldOzBefore:   r.pos.gold,
		SilverOzBefore: r.pos.silver,
	}

	switch action {
	case models.ActionGoldToSilver:
		amount := math.Min(r.pos.gold*size, r.pos.gold)
		if amount <= 0 {
			return
		}
		r.pos.gold = math.Max(r.pos.gold-amount, 0)
		r.pos.silver += amount * obs.GSR * keep
		trade.CostGoldOz = amount * (1 - keep)
	case models.ActionSilverToGold:
		amount := math.Min(r.pos.silver*size, r.pos.silver)
		if amount <= 0 {
			return
		}
		r.pos.silver = math.Max(r.pos.silver-amount, 0)
		r.pos.gold += amount / obs.GSR * keep
		trade.CostGoldOz = amount / obs.GSR * (1 - keep)
	}

	trade.GoldOzAfter = r.pos.gold
	trade.SilverOzAfter = r.pos.silver
	r.trades = append(r.trades, trade)
	r.last = action
}

func (r *run) result(lastGSR float64) models.BacktestResult {
	cfg := r.sim.cfg
	winning := score(r.trades, lastGSR)

	final := r.pos.gold + r.pos.silver/lastGSR
	res := models.BacktestResult{
		Config:       cfg,
		FinalGoldOz:  final,
		GoldOzGain:   final - cfg.InitialGoldOz,
		TotalSwaps:   len(r.trades),
		WinningSwaps: winning,
		EquityCurve:  r.curve,
		Trades:       r.trades,
	}
	res.GoldOzGainPct = res.GoldOzGain / cfg.InitialGoldOz * 100
	if res.TotalSwaps > 0 {
		res.WinRate = float64(winning) / float64(res.TotalSwaps) * 100
	}

	values := make([]float64, len(r.curve))
	for i, p := range r.curve {
		values[i] = p.GoldEqValue
	}
	res.SharpeRatio = Sharpe(values)
	res.MaxDrawdown = MaxDrawdown(values)
	return res
}

// score marks each trade against the GSR at its exit: the next swap in the
// opposite direction, or the final day. It returns the number of winners.
func score(trades []models.Trade, finalGSR float64) int {
	winning := 0
	for k := range trades {
		t := &trades[k]
		t.ExitGSR = finalGSR
		for _, next := range trades[k+1:] {
			if next.Action != t.Action {
				t.ExitGSR = next.GSR
				break
			}
		}

		switch t.Action {
		case models.ActionGoldToSilver:
			spent := t.GoldOzBefore - t.GoldOzAfter
			received := t.SilverOzAfter - t.SilverOzBefore
			t.Winning = received/t.ExitGSR > spent
		case models.ActionSilverToGold:
			spent := t.SilverOzBefore - t.SilverOzAfter
			received := t.GoldOzAfter - t.GoldOzBefore
			t.Winning = received > spent/t.ExitGSR
		}
		if t.Winning {
			winning++
		}
	}
	return winning
}

// Sharpe annualizes the mean over the sample std of daily log returns.
// It is 0 with fewer than two returns or zero dispersion.
func Sharpe(values []float64) float64 {
	returns := features.LogReturns(values)
	if len(returns) < 2 {
		return 0
	}
	mean, std := features.MeanStd(returns)
	if std == 0 {
		return 0
	}
	s := mean / std * math.Sqrt(features.TradingDaysPerYear)
	if !features.Finite(s) {
		return 0
	}
	return s
}

// MaxDrawdown is the largest peak-to-trough decline in percent.
func MaxDrawdown(values []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// ascending returns the usable observations in time order. series is never
// modified; a copy is made whenever anything has to change.
func ascending(series []models.GSRObservation) []models.GSRObservation {
	valid := true
	for _, o := range series {
		if !usable(o) {
			valid = false
			break
		}
	}
	less := func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) }
	if valid && sort.SliceIsSorted(series, less) {
		return series
	}

	out := make([]models.GSRObservation, 0, len(series))
	for _, o := range series {
		if usable(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func usable(o models.GSRObservation) bool {
	return o.GSR > 0 && features.Finite(o.GSR)
}
