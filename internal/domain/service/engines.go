package service

import "GSRSwap/internal/domain/models"

// Backtester replays a GSR series under one configuration.
type Backtester interface {
	Run(series []models.GSRObservation, cfg models.BacktestConfig) (models.BacktestResult, error)
}

// RegimeClassifier maps macro state to a named regime.
type RegimeClassifier interface {
	Classify(state models.MacroState) models.RegimeType
}
