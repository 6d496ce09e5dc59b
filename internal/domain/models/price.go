package models

import "time"

// Symbols used for the two metals. Macro series use their FRED identifiers.
const (
	SymbolGold   = "XAU"
	SymbolSilver = "XAG"
)

// Macro series correlated against the GSR.
const (
	MacroTreasury10Y = "DGS10"
	MacroDollarIndex = "DTWEXBGS"
	MacroCPI         = "CPIAUCSL"
	MacroOilWTI      = "DCOILWTICO"
	MacroSP500       = "SP500"
	MacroVIX         = "VIXCLS"
)

// DefaultMacroSeries lists the macro variables correlated against the GSR.
func DefaultMacroSeries() []string {
	return []string{MacroTreasury10Y, MacroDollarIndex, MacroCPI, MacroOilWTI, MacroSP500, MacroVIX}
}

// PricePoint is a single daily close for a symbol.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Source    string    `json:"source,omitempty"`
}

// GSRObservation is one trading day present in both metal series.
type GSRObservation struct {
	Timestamp   time.Time `json:"timestamp"`
	GoldPrice   float64   `json:"gold_price"`
	SilverPrice float64   `json:"silver_price"`
	GSR         float64   `json:"gsr"`
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
