package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/repository"
	"GSRSwap/internal/services/backtest"
	"GSRSwap/internal/usecase"
	"GSRSwap/pkg/cache"
	xhttp "GSRSwap/pkg/http"
	xlogger "GSRSwap/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) PublishSignal(context.Context, models.Signal) error       { return nil }
func (nopPublisher) PublishAlerts(context.Context, []models.AlertEvent) error { return nil }
func (nopPublisher) Close() error                                             { return nil }

type fixture struct {
	srv   *xhttp.Server
	store *repository.MemoryStore
	cache *cache.MemoryCache
}

// newFixture seeds n days of a constant ratio ending today.
func newFixture(t *testing.T, n int, ratio float64) fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	first := models.Day(time.Now()).AddDate(0, 0, -(n - 1))
	points := make([]models.PricePoint, 0, 2*n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i)
		points = append(points,
			models.PricePoint{Timestamp: d, Symbol: models.SymbolGold, Price: ratio * 25, Source: "test"},
			models.PricePoint{Timestamp: d, Symbol: models.SymbolSilver, Price: 25, Source: "test"},
		)
	}
	require.NoError(t, store.SavePrices(context.Background(), points))

	l := xlogger.Nop()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	analytics := usecase.NewAnalyticsUseCase(store, mc, nil, usecase.AnalyticsConfig{CacheTTL: time.Minute}, l)
	bt := usecase.NewBacktestUseCase(analytics, store, backtest.Engine{}, nil, usecase.BacktestConfig{}, l)
	alerts := usecase.NewAlertUseCase(analytics, nopPublisher{}, nil, l)
	job := usecase.NewComputeJob(nil, store, analytics, alerts, nopPublisher{}, mc, nil, usecase.ComputeConfig{}, l)

	srv := xhttp.NewServer([]xhttp.Handler{
		NewGSRHandler(l, analytics),
		NewBacktestHandler(l, bt),
		NewAlertsHandler(l, alerts),
		NewJobsHandler(l, job),
		NewHealthHandler(store),
		NewPricesHandler(l, usecase.NewPriceUseCase(store, l)),
	}, xhttp.WithMetrics(false, ""))
	return fixture{srv: srv, store: store, cache: mc}
}

func do(t *testing.T, s *xhttp.Server, method, path string, body interface{}) (int, xhttp.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

// decode re-marshals the generic data payload into dest.
func decode(t *testing.T, data interface{}, dest interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func errorCode(t *testing.T, resp xhttp.APIResponse) string {
	t.Helper()
	var errs []xhttp.AppError
	decode(t, resp.Data, &errs)
	require.NotEmpty(t, errs)
	return errs[0].Code
}

func TestCurrentAnalysis(t *testing.T) {
	f := newFixture(t, 400, 90)

	code, resp := do(t, f.srv, http.MethodGet, "/api/gsr/current", nil)
	require.Equal(t, http.StatusOK, code)

	var a models.GSRAnalysis
	decode(t, resp.Data, &a)
	assert.InDelta(t, 90.0, a.GSR, 1e-9)
	assert.Equal(t, models.SignalGoldToSilver, a.Signal.Type)
}

func TestCurrentWithoutDataIsNotFound(t *testing.T) {
	f := newFixture(t, 0, 90)

	code, resp := do(t, f.srv, http.MethodGet, "/api/gsr/current", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NO_DATA", errorCode(t, resp))
}

func TestCurrentWithShortHistoryIsUnprocessable(t *testing.T) {
	f := newFixture(t, 10, 90)

	code, resp := do(t, f.srv, http.MethodGet, "/api/gsr/current", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "ERR_INSUFFICIENT_DATA", errorCode(t, resp))
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t, 120, 80)

	code, resp := do(t, f.srv, http.MethodGet, "/api/gsr/stats?windows=30", nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows  []models.RollingStat `json:"rows"`
		Total int64                `json:"total"`
	}
	decode(t, resp.Data, &list)
	assert.Equal(t, int64(len(list.Rows)), list.Total)
	require.NotEmpty(t, list.Rows)
	for _, r := range list.Rows {
		assert.Equal(t, 30, r.WindowDays)
	}

	code, _ = do(t, f.srv, http.MethodGet, "/api/gsr/stats?windows=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, f.srv, http.MethodGet, "/api/gsr/stats?from=2024-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, f.srv, http.MethodGet, "/api/gsr/stats?from=2024-05-01&to=2024-04-01", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_VALIDATION", errorCode(t, resp))
}

func TestEvaluateSignalEndpoint(t *testing.T) {
	f := newFixture(t, 0, 0)

	code, resp := do(t, f.srv, http.MethodPost, "/api/signals/evaluate", map[string]interface{}{"gsr": 90})
	require.Equal(t, http.StatusOK, code)
	var sig models.Signal
	decode(t, resp.Data, &sig)
	assert.Equal(t, models.SignalGoldToSilver, sig.Type)

	code, _ = do(t, f.srv, http.MethodPost, "/api/signals/evaluate", map[string]interface{}{"gsr": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, f.srv, http.MethodPost, "/api/signals/evaluate", map[string]interface{}{"gsr": 70, "regime": "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_VALIDATION", errorCode(t, resp))
}

func TestBacktestRunAndHistory(t *testing.T) {
	f := newFixture(t, 400, 90)
	end := models.Day(time.Now())
	start := end.AddDate(0, 0, -200)

	code, resp := do(t, f.srv, http.MethodPost, "/api/backtest/run", map[string]interface{}{
		"start_date": start.Format(time.DateOnly),
		"end_date":   end.Format(time.DateOnly),
	})
	require.Equal(t, http.StatusOK, code)
	var res models.BacktestResult
	decode(t, resp.Data, &res)
	assert.NotEmpty(t, res.EquityCurve)

	code, resp = do(t, f.srv, http.MethodGet, "/api/backtest/history?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows []models.BacktestSummary `json:"rows"`
	}
	decode(t, resp.Data, &list)
	assert.Len(t, list.Rows, 1)
}

func TestBacktestRunRejectsBadRequests(t *testing.T) {
	f := newFixture(t, 0, 0)

	code, _ := do(t, f.srv, http.MethodPost, "/api/backtest/run", map[string]interface{}{"start_date": "2024-01-01"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := do(t, f.srv, http.MethodPost, "/api/backtest/run", map[string]interface{}{
		"start_date":         "2024-01-01",
		"end_date":           "2024-06-01",
		"gsr_high_threshold": 60,
		"gsr_low_threshold":  70,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_VALIDATION", errorCode(t, resp))

	code, resp = do(t, f.srv, http.MethodPost, "/api/backtest/run", map[string]interface{}{
		"start_date": "2024-01-01",
		"end_date":   "2024-06-01",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NO_DATA", errorCode(t, resp))
}

func TestOptimalParamsAndAlertDefaults(t *testing.T) {
	f := newFixture(t, 0, 0)

	code, resp := do(t, f.srv, http.MethodGet, "/api/backtest/optimal-params", nil)
	require.Equal(t, http.StatusOK, code)
	var p models.StrategyParams
	decode(t, resp.Data, &p)
	assert.Equal(t, 85.0, p.GSRHigh)

	code, resp = do(t, f.srv, http.MethodGet, "/api/alerts/defaults", nil)
	require.Equal(t, http.StatusOK, code)
	var cfgs []models.AlertConfig
	decode(t, resp.Data, &cfgs)
	assert.NotEmpty(t, cfgs)
}

func TestAlertsEvaluateEndpoint(t *testing.T) {
	f := newFixture(t, 400, 90)

	code, resp := do(t, f.srv, http.MethodPost, "/api/alerts/evaluate", map[string]interface{}{})
	require.Equal(t, http.StatusOK, code)
	var ev models.AlertsEvaluation
	decode(t, resp.Data, &ev)
	require.Len(t, ev.Events, 1)
	assert.Equal(t, "gsr-above-85", ev.Events[0].AlertID)
	assert.False(t, ev.Published)

	code, _ = do(t, f.srv, http.MethodPost, "/api/alerts/evaluate", map[string]interface{}{"previous_regime": "sideways"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestComputeEndpoint(t *testing.T) {
	f := newFixture(t, 400, 90)

	code, resp := do(t, f.srv, http.MethodPost, "/api/jobs/compute", map[string]interface{}{"lookback_days": 200})
	require.Equal(t, http.StatusOK, code)
	var rep models.ComputeReport
	decode(t, resp.Data, &rep)
	assert.Equal(t, 0, rep.PricesStored)
	assert.Positive(t, rep.StatsStored)

	code, _ = do(t, f.srv, http.MethodPost, "/api/jobs/compute", map[string]interface{}{"lookback_days": 1})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestComputeEndpointConflictsWhileLocked(t *testing.T) {
	f := newFixture(t, 400, 90)
	ok, err := f.cache.TryLock(context.Background(), "compute:lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	code, resp := do(t, f.srv, http.MethodPost, "/api/jobs/compute", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_CONFLICT", errorCode(t, resp))
}

func TestComputeEndpointAsync(t *testing.T) {
	f := newFixture(t, 400, 90)

	code, resp := do(t, f.srv, http.MethodPost, "/api/jobs/compute", map[string]interface{}{"lookback_days": 200, "async": true})
	require.Equal(t, http.StatusAccepted, code)
	var body map[string]interface{}
	decode(t, resp.Data, &body)
	assert.Equal(t, "started", body["status"])
	assert.EqualValues(t, 200, body["lookback_days"])

	require.Eventually(t, func() bool {
		_, stats, _ := f.store.Counts()
		return stats > 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStatsServedFromStoreAfterCompute(t *testing.T) {
	f := newFixture(t, 400, 90)
	today := models.Day(time.Now())

	code, _ := do(t, f.srv, http.MethodPost, "/api/jobs/compute", map[string]interface{}{"lookback_days": 200})
	require.Equal(t, http.StatusOK, code)

	// Overwrite today's persisted row so the response shows where it came from.
	require.NoError(t, f.store.SaveRollingStats(context.Background(), []models.RollingStat{
		{Timestamp: today, WindowDays: 30, GSR: 123, Mean: 90, PercentileRank: 100},
	}))

	day := today.Format(time.DateOnly)
	code, resp := do(t, f.srv, http.MethodGet, "/api/gsr/stats?windows=30&from="+day+"&to="+day, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows []models.RollingStat `json:"rows"`
	}
	decode(t, resp.Data, &list)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, 123.0, list.Rows[0].GSR)

	// A window the job does not persist is still computed from prices.
	code, resp = do(t, f.srv, http.MethodGet, "/api/gsr/stats?windows=45&from="+day+"&to="+day, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp.Data, &list)
	require.Len(t, list.Rows, 1)
	assert.InDelta(t, 90.0, list.Rows[0].GSR, 1e-9)
}

func TestPricesEndpoints(t *testing.T) {
	f := newFixture(t, 30, 80)
	today := models.Day(time.Now())
	from := today.AddDate(0, 0, -4).Format(time.DateOnly)

	code, resp := do(t, f.srv, http.MethodGet, "/api/prices?symbol=xau&from="+from, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows  []models.PricePoint `json:"rows"`
		Total int64               `json:"total"`
	}
	decode(t, resp.Data, &list)
	assert.EqualValues(t, 5, list.Total)
	require.Len(t, list.Rows, 5)
	assert.Equal(t, models.SymbolGold, list.Rows[0].Symbol)
	assert.Equal(t, 80.0*25, list.Rows[0].Price)

	code, _ = do(t, f.srv, http.MethodGet, "/api/prices", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, f.srv, http.MethodGet, "/api/prices?symbol=XA-U", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, f.srv, http.MethodGet, "/api/prices?symbol=VIXCLS", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NO_DATA", errorCode(t, resp))

	code, resp = do(t, f.srv, http.MethodGet, "/api/prices/latest/XAG", nil)
	require.Equal(t, http.StatusOK, code)
	var p models.PricePoint
	decode(t, resp.Data, &p)
	assert.Equal(t, today, p.Timestamp.UTC())
	assert.Equal(t, 25.0, p.Price)

	code, resp = do(t, f.srv, http.MethodGet, "/api/prices/latest/DGS10", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NOT_FOUND", errorCode(t, resp))
}

type sickStore struct{ *repository.MemoryStore }

func (sickStore) Health(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	f := newFixture(t, 0, 0)
	code, _ := do(t, f.srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	srv := xhttp.NewServer([]xhttp.Handler{NewHealthHandler(sickStore{repository.NewMemoryStore()})}, xhttp.WithMetrics(false, ""))
	code, resp := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	var body map[string]string
	decode(t, resp.Data, &body)
	assert.Equal(t, "degraded", body["status"])
}

func TestAppErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.NewValidationError("x", "bad"), http.StatusBadRequest, "ERR_VALIDATION"},
		{&models.NoDataError{}, http.StatusNotFound, "ERR_NO_DATA"},
		{&models.InsufficientDataError{What: "stats", Required: 30, Got: 3}, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_DATA"},
		{usecase.ErrComputeRunning, http.StatusConflict, "ERR_CONFLICT"},
		{usecase.ErrNoPrice, http.StatusNotFound, "ERR_NOT_FOUND"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		got := appError(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}
}
