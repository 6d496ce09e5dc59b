package usecase

import (
	"context"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	"GSRSwap/internal/services/alerts"
	applogger "GSRSwap/pkg/logger"

	"github.com/google/uuid"
)

// snapshotter serves the current analysis.
type snapshotter interface {
	Current(ctx context.Context) (*models.GSRAnalysis, error)
}

// AlertUseCase evaluates alerts against the live state and publishes the
// ones that trigger.
type AlertUseCase struct {
	snapshots snapshotter
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
	newID     func() string
}

func NewAlertUseCase(snapshots snapshotter, publisher domrepo.EventPublisher, metrics domrepo.Metrics, l *applogger.Logger) *AlertUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &AlertUseCase{
		snapshots: snapshots,
		publisher: publisher,
		metrics:   metrics,
		l:         l,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

func (uc *AlertUseCase) Defaults() []models.AlertConfig {
	return alerts.DefaultAlerts()
}

// Evaluate checks the supplied alerts (the defaults when none are given)
// against the current analysis. Every config is validated first so a
// malformed request fails as a whole.
func (uc *AlertUseCase) Evaluate(ctx context.Context, req models.AlertsEvaluateRequest) (*models.AlertsEvaluation, error) {
	cfgs := req.Alerts
	if len(cfgs) == 0 {
		cfgs = alerts.DefaultAlerts()
	}
	for _, cfg := range cfgs {
		if err := alerts.Validate(cfg); err != nil {
			return nil, err
		}
	}
	prev := models.RegimeType(req.PreviousRegime)
	if prev != "" && !prev.IsValid() {
		return nil, models.NewValidationError("previous_regime", "unknown regime %q", req.PreviousRegime)
	}

	analysis, err := uc.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	return uc.EvaluateAnalysis(ctx, cfgs, analysis, prev, req.Publish)
}

// EvaluateAnalysis evaluates cfgs against analysis and, when publish is set,
// sends the triggered events downstream.
func (uc *AlertUseCase) EvaluateAnalysis(ctx context.Context, cfgs []models.AlertConfig, analysis *models.GSRAnalysis, prev models.RegimeType, publish bool) (*models.AlertsEvaluation, error) {
	sig := analysis.Signal
	in := models.AlertInput{Signal: &sig, Stat: analysis.Stat, PreviousRegime: prev}
	at := uc.now().UTC()

	out := &models.AlertsEvaluation{
		EvaluatedAt: at,
		Results:     alerts.EvaluateAll(cfgs, in),
		Events:      []models.AlertEvent{},
	}
	for _, r := range out.Results {
		if !r.Triggered {
			continue
		}
		out.Events = append(out.Events, models.AlertEvent{
			ID:          uc.newID(),
			AlertID:     r.Alert.ID,
			AlertName:   r.Alert.Name,
			Type:        r.Alert.Type,
			TriggeredAt: at,
			GSR:         analysis.GSR,
			SignalType:  sig.Type,
			Strength:    sig.Strength,
			Regime:      analysis.Regime,
		})
		uc.metrics.RecordAlertTriggered(string(r.Alert.Type))
	}

	if publish && len(out.Events) > 0 {
		if err := uc.publisher.PublishAlerts(ctx, out.Events); err != nil {
			uc.metrics.RecordError("alerts_publish")
			return out, err
		}
		out.Published = true
		uc.l.Info("alerts published", applogger.Int("count", len(out.Events)))
	}
	return out, nil
}
