package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORSEnabled     bool          `yaml:"cors_enabled" default:"true"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"20"`
		Burst   int     `yaml:"burst" default:"40"`
		// Clients idle for IdleTTL lose their bucket; swept every IdleTTL/2.
		IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
	} `yaml:"ratelimit"`
	Strategy struct {
		GSRHigh            float64 `yaml:"gsr_high" default:"85"`
		GSRLow             float64 `yaml:"gsr_low" default:"65"`
		PercentileHigh     float64 `yaml:"percentile_high" default:"85"`
		PercentileLow      float64 `yaml:"percentile_low" default:"20"`
		PercentileTriggers bool    `yaml:"percentile_triggers" default:"true"`
		InitialGoldOz      float64 `yaml:"initial_gold_oz" default:"100"`
		PositionSizePct    float64 `yaml:"position_size_pct" default:"15"`
		TransactionCostPct float64 `yaml:"transaction_cost_pct" default:"2"`
		OptimizeWorkers    int     `yaml:"optimize_workers" default:"4"`
		MaxGridSize        int     `yaml:"max_grid_size" default:"500"`
	} `yaml:"strategy"`
	Analytics struct {
		PrimaryWindow      int           `yaml:"primary_window" default:"90"`
		StatWindows        []int         `yaml:"stat_windows" default:"[30,90,180,365]"`
		CorrelationWindows []int         `yaml:"correlation_windows" default:"[30,90,180]"`
		HistoryDays        int           `yaml:"history_days" default:"1825"`
		MacroSeries        []string      `yaml:"macro_series"`
		CacheTTL           time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"analytics"`
	Regime struct {
		CrisisVIX     float64 `yaml:"crisis_vix" default:"30"`
		ElevatedVIX   float64 `yaml:"elevated_vix" default:"20"`
		YieldTrendEps float64 `yaml:"yield_trend_eps" default:"0.05"`
		USDStrongZ    float64 `yaml:"usd_strong_z" default:"1"`
		LookbackDays  int     `yaml:"lookback_days" default:"90"`
	} `yaml:"regime"`
	Provider struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Timeout         time.Duration `yaml:"timeout" default:"20s"`
		BreakerFailures uint32        `yaml:"breaker_failures" default:"5"`
		BreakerTimeout  time.Duration `yaml:"breaker_timeout" default:"60s"`
		FRED            struct {
			BaseURL string  `yaml:"base_url" default:"https://api.stlouisfed.org/fred"`
			APIKey  string  `yaml:"api_key"`
			RPS     float64 `yaml:"rps" default:"2"`
			Burst   int     `yaml:"burst" default:"2"`
		} `yaml:"fred"`
		Metals struct {
			BaseURL string  `yaml:"base_url" default:"https://www.alphavantage.co"`
			APIKey  string  `yaml:"api_key"`
			RPS     float64 `yaml:"rps" default:"0.2"`
			Burst   int     `yaml:"burst" default:"1"`
		} `yaml:"metals"`
	} `yaml:"provider"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" default:"true"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"gsrswap"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		PricesTopic  string   `yaml:"prices_topic" default:"gsr.prices"`
		SignalsTopic string   `yaml:"signals_topic" default:"gsr.signals"`
		AlertsTopic  string   `yaml:"alerts_topic" default:"gsr.alerts"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled" default:"true"`
			GroupID    string        `yaml:"group_id" default:"gsrswap-prices"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"gsr.prices.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		PoolSize int           `yaml:"pool_size" default:"10"`
		Prefix   string        `yaml:"prefix" default:"gsrswap"`
		L1TTL    time.Duration `yaml:"l1_ttl" default:"30s"`
	} `yaml:"redis"`
	Scheduler struct {
		Enabled    bool          `yaml:"enabled" default:"true"`
		Interval   time.Duration `yaml:"interval" default:"24h"`
		RunOnStart bool          `yaml:"run_on_start"`
		LockTTL    time.Duration `yaml:"lock_ttl" default:"30m"`
	} `yaml:"scheduler"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.fillSlices()
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillSlices()
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and
// validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("GSR_ENV", &c.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	num("HTTP_PORT", &c.Server.Port)
	str("FRED_API_KEY", &c.Provider.FRED.APIKey)
	str("METALS_API_KEY", &c.Provider.Metals.APIKey)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	num("CLICKHOUSE_PORT", &c.ClickHouse.Port)
	str("CLICKHOUSE_USER", &c.ClickHouse.User)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	flag("KAFKA_ENABLED", &c.Kafka.Enabled)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	flag("REDIS_ENABLED", &c.Redis.Enabled)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PASSWORD", &c.Redis.Password)

	return errors.Join(errs...)
}

func (c *Config) fillSlices() {
	if len(c.Analytics.MacroSeries) == 0 {
		c.Analytics.MacroSeries = []string{"DGS10", "DTWEXBGS", "CPIAUCSL", "DCOILWTICO", "SP500", "VIXCLS"}
	}
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Strategy.GSRHigh <= c.Strategy.GSRLow {
		return fmt.Errorf("strategy.gsr_high (%.2f) must be greater than strategy.gsr_low (%.2f)", c.Strategy.GSRHigh, c.Strategy.GSRLow)
	}
	if c.Strategy.PositionSizePct <= 0 || c.Strategy.PositionSizePct > 100 {
		return fmt.Errorf("strategy.position_size_pct must be in (0, 100]")
	}
	if c.Strategy.TransactionCostPct < 0 || c.Strategy.TransactionCostPct >= 100 {
		return fmt.Errorf("strategy.transaction_cost_pct must be in [0, 100)")
	}
	if c.Strategy.OptimizeWorkers <= 0 {
		return fmt.Errorf("strategy.optimize_workers must be positive")
	}
	if c.Analytics.PrimaryWindow < 2 {
		return fmt.Errorf("analytics.primary_window must be at least 2")
	}
	for _, w := range append(append([]int{}, c.Analytics.StatWindows...), c.Analytics.CorrelationWindows...) {
		if w < 2 {
			return fmt.Errorf("analytics windows must be at least 2, got %d", w)
		}
	}
	if c.Analytics.HistoryDays <= c.Analytics.PrimaryWindow {
		return fmt.Errorf("analytics.history_days must exceed analytics.primary_window")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
