package alerts

import "GSRSwap/internal/domain/models"

// DefaultAlerts returns the stock alert set evaluated by the compute job.
func DefaultAlerts() []models.AlertConfig {
	return []models.AlertConfig{
		{
			ID:        "gsr-above-85",
			Name:      "GSR above 85",
			Type:      models.AlertThreshold,
			Metric:    models.MetricGSR,
			Direction: DirectionAbove,
			Threshold: 85,
		},
		{
			ID:        "gsr-below-65",
			Name:      "GSR below 65",
			Type:      models.AlertThreshold,
			Metric:    models.MetricGSR,
			Direction: DirectionBelow,
			Threshold: 65,
		},
		{
			ID:    "strong-signal",
			Name:  "Strong swap signal",
			Type:  models.AlertComposite,
			Logic: LogicAnd,
			Conditions: []models.AlertConfig{
				{Type: models.AlertThreshold, Metric: models.MetricSignalStrength, Direction: DirectionAbove, Threshold: 75},
				{Type: models.AlertRatioBand, BandLow: models.Float64Ptr(65), BandHigh: models.Float64Ptr(85), BandMode: BandOutside},
			},
		},
		{
			ID:   "regime-change",
			Name: "Macro regime change",
			Type: models.AlertMacroEvent,
		},
	}
}
