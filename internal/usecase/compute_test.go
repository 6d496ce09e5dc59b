package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/repository"
	"GSRSwap/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream serves a fixed history and records the start of every request.
type fakeUpstream struct {
	mu     sync.Mutex
	points map[string][]models.PricePoint
	starts map[string]time.Time
	fail   map[string]error
}

func newFakeUpstream(points []models.PricePoint) *fakeUpstream {
	u := &fakeUpstream{points: map[string][]models.PricePoint{}, starts: map[string]time.Time{}, fail: map[string]error{}}
	for _, p := range points {
		u.points[p.Symbol] = append(u.points[p.Symbol], p)
	}
	return u
}

func (u *fakeUpstream) GetSeries(_ context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.starts[symbol] = start
	if err := u.fail[symbol]; err != nil {
		return nil, err
	}
	var out []models.PricePoint
	for _, p := range u.points[symbol] {
		if !p.Timestamp.Before(start) && !p.Timestamp.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

type computeFixture struct {
	job      *ComputeJob
	store    *repository.MemoryStore
	upstream *fakeUpstream
	pub      *fakePublisher
	cache    *cache.MemoryCache
	metrics  *fakeMetrics
}

func newComputeFixture(t *testing.T) computeFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	upstream := newFakeUpstream(pricesFor(400, constant(90)))
	upstream.fail[models.MacroSP500] = errors.New("upstream 503")
	pub := &fakePublisher{}
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	metrics := &fakeMetrics{}

	analytics := NewAnalyticsUseCase(store, mc, metrics, AnalyticsConfig{CacheTTL: time.Hour}, nil)
	analytics.now = fixedNow
	alertUC := NewAlertUseCase(analytics, pub, metrics, nil)
	alertUC.now = fixedNow

	job := NewComputeJob(upstream, store, analytics, alertUC, pub, mc, metrics, ComputeConfig{}, nil)
	job.now = fixedNow
	return computeFixture{job: job, store: store, upstream: upstream, pub: pub, cache: mc, metrics: metrics}
}

func TestComputeJobBackfillsAndPublishes(t *testing.T) {
	f := newComputeFixture(t)

	rep, err := f.job.Run(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 2*201, rep.PricesStored)
	assert.Equal(t, 201, f.metrics.stored[models.SymbolGold])
	assert.Equal(t, models.Day(testToday).AddDate(0, 0, -200), f.upstream.starts[models.SymbolGold])

	// windows 30, 90 and 180 fill within 201 days; 365 does not.
	assert.Equal(t, (201-29)+(201-89)+(201-179), rep.StatsStored)
	assert.Equal(t, 0, rep.CorrsStored)
	require.NotNil(t, rep.Signal)
	assert.Equal(t, models.SignalGoldToSilver, rep.Signal.Type)
	assert.Equal(t, 1, rep.AlertsTriggered)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], models.MacroSP500)

	require.Len(t, f.pub.signals, 1)
	require.Len(t, f.pub.alerts, 1)
	assert.Equal(t, "gsr-above-85", f.pub.alerts[0].AlertID)

	_, stats, _ := f.store.Counts()
	assert.Equal(t, rep.StatsStored, stats)
}

func TestComputeJobIsIncremental(t *testing.T) {
	f := newComputeFixture(t)
	ctx := context.Background()

	_, err := f.job.Run(ctx, 200)
	require.NoError(t, err)
	f.upstream.starts = map[string]time.Time{}

	rep, err := f.job.Run(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.PricesStored)
	_, requested := f.upstream.starts[models.SymbolGold]
	assert.False(t, requested)
	// Nothing was stored for the macro series, so they are asked for again.
	assert.Equal(t, models.Day(testToday).AddDate(0, 0, -200), f.upstream.starts[models.MacroVIX])
	assert.Len(t, f.pub.signals, 2)

	var prev string
	require.NoError(t, f.cache.Get(ctx, lastRegimeKey, &prev))
	assert.Equal(t, string(models.RegimeNeutral), prev)
}

func TestComputeJobSkipsSymbolsUpToDate(t *testing.T) {
	f := newComputeFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SavePrices(ctx, pricesFor(300, constant(90))))

	rep, err := f.job.Run(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.PricesStored)
	_, requested := f.upstream.starts[models.SymbolGold]
	assert.False(t, requested)
}

func TestComputeJobHonoursLock(t *testing.T) {
	f := newComputeFixture(t)
	ctx := context.Background()

	ok, err := f.cache.TryLock(ctx, computeLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.job.Run(ctx, 200)
	assert.ErrorIs(t, err, ErrComputeRunning)

	require.NoError(t, f.cache.Unlock(ctx, computeLockKey))
	_, err = f.job.Run(ctx, 200)
	assert.NoError(t, err)
}

func TestComputeJobWithoutData(t *testing.T) {
	f := newComputeFixture(t)
	f.job.upstream = nil

	rep, err := f.job.Run(context.Background(), 200)
	assert.True(t, models.IsNoData(err))
	require.NotNil(t, rep)
	assert.Empty(t, f.pub.signals)
}

func TestComputeJobStatsAreReadBack(t *testing.T) {
	f := newComputeFixture(t)
	ctx := context.Background()
	_, err := f.job.Run(ctx, 200)
	require.NoError(t, err)

	from := models.Day(testToday).AddDate(0, 0, -9)
	served, err := f.job.analytics.(*AnalyticsUseCase).RollingStats(ctx, from, testToday, []int{90, 30})
	require.NoError(t, err)
	recomputed, err := newTestAnalytics(f.store).RollingStats(ctx, from, testToday, []int{90, 30})
	require.NoError(t, err)
	require.Len(t, served, 20)
	assert.Equal(t, recomputed, served)

	// A window the job does not persist is computed on demand.
	other, err := f.job.analytics.(*AnalyticsUseCase).RollingStats(ctx, from, testToday, []int{45})
	require.NoError(t, err)
	assert.Len(t, other, 10)
}
