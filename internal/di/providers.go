package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	"GSRSwap/internal/handler/api"
	internalrepo "GSRSwap/internal/repository"
	"GSRSwap/internal/service/pricefeed"
	"GSRSwap/internal/service/ratelimit"
	"GSRSwap/internal/services/backtest"
	"GSRSwap/internal/services/regime"
	"GSRSwap/internal/usecase"
	"GSRSwap/pkg/cache"
	pkgch "GSRSwap/pkg/clickhouse"
	"GSRSwap/pkg/config"
	xhttp "GSRSwap/pkg/http"
	pkgkafka "GSRSwap/pkg/kafka"
	applogger "GSRSwap/pkg/logger"
	"GSRSwap/pkg/metrics"
	"GSRSwap/pkg/server"

	"github.com/google/wire"
)

const userAgent = "gsrswap/1.0"

// ProviderSet lists every constructor InitializeApp is built from.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideTimeSeriesStore,
	ProvideCache,
	ProvideKafkaProducer,
	ProvideEventPublisher,
	ProvidePriceFeed,
	ProvideAnalytics,
	ProvideBacktest,
	ProvideAlerts,
	ProvideComputeJob,
	ProvidePrices,
	api.NewGSRHandler,
	api.NewBacktestHandler,
	api.NewAlertsHandler,
	api.NewJobsHandler,
	api.NewHealthHandler,
	api.NewPricesHandler,
	ProvideHandlers,
	ProvideHTTPServer,
	ProvideKafkaConsumer,
	ProvideKafkaPricesHandler,
	ProvideScheduler,
	ProvideApp,
)

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient opens the pool and creates the schema. It returns
// nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		l.Warn("clickhouse disabled, using in-memory store")
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", cfg.ClickHouse.Database))
	return client, nil
}

func ProvideTimeSeriesStore(ch *pkgch.Client, l *applogger.Logger) domrepo.TimeSeriesStore {
	if ch == nil {
		return internalrepo.NewMemoryStore()
	}
	return internalrepo.NewCHTimeSeriesStore(ch, l)
}

// ProvideCache returns a layered memory+Redis cache, or a memory cache when
// Redis is disabled. The compute lock is only cluster-wide with Redis.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache ready", applogger.String("host", cfg.Redis.Host))
	return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(cfg.Redis.L1TTL)), nil
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NewLogEventPublisher(l)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.SignalsTopic, cfg.Kafka.AlertsTopic)
}

// ProvidePriceFeed routes metals to Alpha Vantage and macro series to FRED.
// It returns nil when the upstream is disabled.
func ProvidePriceFeed(cfg *config.Config, l *applogger.Logger) *pricefeed.Router {
	p := cfg.Provider
	if !p.Enabled {
		l.Warn("price provider disabled, compute uses stored prices only")
		return nil
	}
	base := func(name, url string, rps float64, burst int) *pricefeed.HTTPServiceBase {
		return pricefeed.NewHTTPServiceBase(pricefeed.BaseConfig{
			Name:            name,
			BaseURL:         url,
			Timeout:         p.Timeout,
			BreakerFailures: p.BreakerFailures,
			BreakerTimeout:  p.BreakerTimeout,
		}, ratelimit.New(rps, burst), l, xhttp.WithUserAgent(userAgent))
	}
	fred := pricefeed.NewFREDClient(base("fred", p.FRED.BaseURL, p.FRED.RPS, p.FRED.Burst), p.FRED.APIKey)
	metals := pricefeed.NewMetalsClient(base("alphavantage", p.Metals.BaseURL, p.Metals.RPS, p.Metals.Burst), p.Metals.APIKey)
	return pricefeed.NewRouter(metals, fred)
}

func ProvideAnalytics(cfg *config.Config, store domrepo.TimeSeriesStore, c cache.Service, m domrepo.Metrics, l *applogger.Logger) *usecase.AnalyticsUseCase {
	s := cfg.Strategy
	return usecase.NewAnalyticsUseCase(store, c, m, usecase.AnalyticsConfig{
		PrimaryWindow:      cfg.Analytics.PrimaryWindow,
		StatWindows:        cfg.Analytics.StatWindows,
		CorrelationWindows: cfg.Analytics.CorrelationWindows,
		MacroSeries:        cfg.Analytics.MacroSeries,
		HistoryDays:        cfg.Analytics.HistoryDays,
		CacheTTL:           cfg.Analytics.CacheTTL,
		Thresholds: models.Thresholds{
			GSRHigh:            s.GSRHigh,
			GSRLow:             s.GSRLow,
			PercentileHigh:     s.PercentileHigh,
			PercentileLow:      s.PercentileLow,
			PercentileTriggers: s.PercentileTriggers,
		},
		Regime: regime.Config{
			CrisisVIX:     cfg.Regime.CrisisVIX,
			ElevatedVIX:   cfg.Regime.ElevatedVIX,
			YieldTrendEps: cfg.Regime.YieldTrendEps,
			USDStrongZ:    cfg.Regime.USDStrongZ,
			LookbackDays:  cfg.Regime.LookbackDays,
		},
	}, l)
}

func ProvideBacktest(cfg *config.Config, analytics *usecase.AnalyticsUseCase, store domrepo.TimeSeriesStore, m domrepo.Metrics, l *applogger.Logger) *usecase.BacktestUseCase {
	s := cfg.Strategy
	return usecase.NewBacktestUseCase(analytics, store, backtest.Engine{}, m, usecase.BacktestConfig{
		Defaults: models.StrategyParams{
			GSRHigh:         s.GSRHigh,
			GSRLow:          s.GSRLow,
			PositionSize:    s.PositionSizePct,
			TransactionCost: s.TransactionCostPct,
		},
		Workers:     s.OptimizeWorkers,
		MaxGridSize: s.MaxGridSize,
	}, l)
}

func ProvideAlerts(analytics *usecase.AnalyticsUseCase, pub domrepo.EventPublisher, m domrepo.Metrics, l *applogger.Logger) *usecase.AlertUseCase {
	return usecase.NewAlertUseCase(analytics, pub, m, l)
}

func ProvideComputeJob(
	cfg *config.Config,
	feed *pricefeed.Router,
	store domrepo.TimeSeriesStore,
	analytics *usecase.AnalyticsUseCase,
	alerts *usecase.AlertUseCase,
	pub domrepo.EventPublisher,
	c cache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.ComputeJob {
	// a nil *Router must reach the job as a nil interface
	var upstream domrepo.PriceHistoryProvider
	if feed != nil {
		upstream = feed
	}
	return usecase.NewComputeJob(upstream, store, analytics, alerts, pub, c, m, usecase.ComputeConfig{
		MacroSeries:        cfg.Analytics.MacroSeries,
		StatWindows:        cfg.Analytics.StatWindows,
		CorrelationWindows: cfg.Analytics.CorrelationWindows,
		HistoryDays:        cfg.Analytics.HistoryDays,
		LockTTL:            cfg.Scheduler.LockTTL,
	}, l)
}

func ProvidePrices(store domrepo.TimeSeriesStore, l *applogger.Logger) *usecase.PriceUseCase {
	return usecase.NewPriceUseCase(store, l)
}

func ProvideHandlers(
	gsr *api.GSRHandler,
	bt *api.BacktestHandler,
	alerts *api.AlertsHandler,
	jobs *api.JobsHandler,
	health *api.HealthHandler,
	prices *api.PricesHandler,
) []xhttp.Handler {
	return []xhttp.Handler{gsr, bt, alerts, jobs, health, prices}
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSEnabled, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l),
	}
	if cfg.RateLimit.Enabled {
		idle := cfg.RateLimit.IdleTTL
		opts = append(opts, xhttp.WithRateLimit(ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, ratelimit.WithIdleEviction(idle/2, idle))))
	}
	return xhttp.NewServer(handlers, opts...)
}

// ProvideKafkaConsumer returns nil unless both Kafka and the consumer are enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideKafkaPricesHandler(cfg *config.Config, store domrepo.TimeSeriesStore, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaPricesHandler {
	return usecase.NewKafkaPricesHandler(cfg.Kafka.PricesTopic, store, m, l)
}

// ProvideScheduler returns nil when scheduled refreshes are disabled.
func ProvideScheduler(cfg *config.Config, job *usecase.ComputeJob, l *applogger.Logger) *server.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	lookback := cfg.Analytics.HistoryDays
	return server.NewScheduler("compute", cfg.Scheduler.Interval, func(ctx context.Context) error {
		_, err := job.Run(ctx, lookback)
		return err
	}, server.WithRunOnStart(cfg.Scheduler.RunOnStart), server.WithSchedulerLogger(l))
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	prices *usecase.KafkaPricesHandler,
	sched *server.Scheduler,
	ch *pkgch.Client,
	c cache.Service,
	pub domrepo.EventPublisher,
) *server.App {
	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithCloser("publisher", pub),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, prices))
	}
	if sched != nil {
		opts = append(opts, server.WithScheduler(sched))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if closer, ok := c.(io.Closer); ok {
		opts = append(opts, server.WithCloser("cache", closer))
	}
	return server.New(l, srv, opts...)
}
