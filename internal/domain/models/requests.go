package models

// Requests for the HTTP endpoints. Dates are calendar dates (YYYY-MM-DD).

type StatsRequest struct {
	From    string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Windows string `query:"windows" json:"windows" default:"30,90,180,365"`
}

type CorrelationsRequest struct {
	From      string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Windows   string `query:"windows" json:"windows" default:"30,90,180"`
	Variables string `query:"variables" json:"variables"`
}

type RegimesRequest struct {
	From string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type PricesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,alphanum,max=32"`
	From   string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type SignalEvaluateRequest struct {
	GSR                float64  `json:"gsr" validate:"required,gt=0"`
	ZScore             *float64 `json:"z_score"`
	Percentile         *float64 `json:"percentile" validate:"omitempty,gte=0,lte=100"`
	Regime             string   `json:"regime" default:"neutral"`
	GSRHigh            float64  `json:"gsr_high" default:"85" validate:"gt=0"`
	GSRLow             float64  `json:"gsr_low" default:"65" validate:"gt=0"`
	PercentileHigh     float64  `json:"percentile_high" default:"85" validate:"gte=0,lte=100"`
	PercentileLow      float64  `json:"percentile_low" default:"20" validate:"gte=0,lte=100"`
	PercentileTriggers *bool    `json:"percentile_triggers" default:"true"`
}

type BacktestRequest struct {
	StartDate          string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	InitialGoldOz      float64  `json:"initial_gold_oz" default:"100" validate:"gt=0"`
	GSRHighThreshold   float64  `json:"gsr_high_threshold" default:"85" validate:"gt=0"`
	GSRLowThreshold    float64  `json:"gsr_low_threshold" default:"65" validate:"gt=0"`
	PositionSizePct    float64  `json:"position_size_pct" default:"15" validate:"gt=0,lte=100"`
	TransactionCostPct *float64 `json:"transaction_cost_pct" default:"2" validate:"omitempty,gte=0,lt=100"`
	StatsWindow        int      `json:"stats_window" default:"90" validate:"gte=2,lte=365"`
	PercentileTriggers bool     `json:"percentile_triggers"`
	AlternateSwaps     *bool    `json:"alternate_swaps" default:"true"`
}

type OptimizeRequest struct {
	StartDate     string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string    `json:"end_date" validate:"required,datetime=2006-01-02"`
	InitialGoldOz float64   `json:"initial_gold_oz" default:"100" validate:"gt=0"`
	StatsWindow   int       `json:"stats_window" default:"90" validate:"gte=2,lte=365"`
	ParamRanges   ParamGrid `json:"param_ranges"`
	Workers       int       `json:"workers" default:"4" validate:"gte=1,lte=32"`
}

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type AlertsEvaluateRequest struct {
	Alerts         []AlertConfig `json:"alerts" validate:"omitempty,dive"`
	PreviousRegime string        `json:"previous_regime"`
	Publish        bool          `json:"publish"`
}

type ComputeRequest struct {
	LookbackDays int  `json:"lookback_days" query:"lookback_days" default:"730" validate:"gte=30,lte=20000"`
	Async        bool `json:"async" query:"async"`
}
