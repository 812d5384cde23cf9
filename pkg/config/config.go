package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// CORSOrigins lists allowed browser origins; empty disables CORS.
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
		// Collector aggregates error logs and publishes them to Topic.
		Collector struct {
			Enabled       bool          `yaml:"enabled"`
			Topic         string        `yaml:"topic" default:"stockcast.logs"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
			MaxBatch      int           `yaml:"max_batch" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Catalog struct {
		// File overrides the built-in stock list.
		File    string `yaml:"file"`
		Workers int    `yaml:"workers" default:"5"`
	} `yaml:"catalog"`
	History struct {
		Source       string        `yaml:"source" default:"yahoo"`
		LookbackDays int           `yaml:"lookback_days" default:"420"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"15m"`
		Yahoo        struct {
			BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
			Suffix  string        `yaml:"suffix" default:".NS"`
			Retries int           `yaml:"retries" default:"2"`
			Backoff time.Duration `yaml:"backoff" default:"250ms"`
		} `yaml:"yahoo"`
	} `yaml:"history"`
	Features struct {
		MinWindow  int   `yaml:"min_window" default:"60"`
		SMAPeriods []int `yaml:"sma_periods" default:"[10,20,50,200]"`
	} `yaml:"features"`
	Ensemble struct {
		Weights       map[string]float64 `yaml:"weights" default:"{\"sequence\":0.4,\"forest\":0.3,\"boosted\":0.3}"`
		ModelSource   string             `yaml:"model_source" default:"file"`
		ModelDir      string             `yaml:"model_dir" default:"models"`
		RemoteURL     string             `yaml:"remote_url"`
		RemoteTimeout time.Duration      `yaml:"remote_timeout" default:"5s"`
	} `yaml:"ensemble"`
	Training struct {
		Seed        int64   `yaml:"seed" default:"42"`
		ForestTrees int     `yaml:"forest_trees" default:"50"`
		BoostRounds int     `yaml:"boost_rounds" default:"60"`
		LearnRate   float64 `yaml:"learning_rate" default:"0.1"`
	} `yaml:"training"`
	Confidence struct {
		DefaultBaseline  float64 `yaml:"default_baseline" default:"75"`
		Min              float64 `yaml:"min" default:"50"`
		Max              float64 `yaml:"max" default:"95"`
		AgreementSpan    float64 `yaml:"agreement_span" default:"10"`
		MaxDispersionPct float64 `yaml:"max_dispersion_pct" default:"5"`
	} `yaml:"confidence"`
	Calibration struct {
		Windows         int           `yaml:"windows" default:"10"`
		Horizon         int           `yaml:"horizon" default:"5"`
		Strategy        string        `yaml:"strategy" default:"persistence"`
		FreshnessWindow time.Duration `yaml:"freshness_window" default:"168h"`
		LockTTL         time.Duration `yaml:"lock_ttl" default:"2m"`
		Store           string        `yaml:"store" default:"memory"`
		SQL             struct {
			Driver string `yaml:"driver" default:"sqlite"`
			DSN    string `yaml:"dsn" default:"file:stockcast.db?_pragma=busy_timeout(5000)"`
		} `yaml:"sql"`
		// Schedule is a cron spec; empty disables scheduled recalibration.
		Schedule  string   `yaml:"schedule"`
		Watchlist []string `yaml:"watchlist"`
		// Queue distributes scheduled recalibrations over Redis to every instance.
		Queue struct {
			Enabled    bool          `yaml:"enabled"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryLimit int           `yaml:"retry_limit" default:"3"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		} `yaml:"queue"`
	} `yaml:"calibration"`
	Redis struct {
		Enabled      bool   `yaml:"enabled"`
		Host         string `yaml:"host" default:"localhost"`
		Port         int    `yaml:"port" default:"6379"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		Prefix       string `yaml:"prefix" default:"stockcast"`
		PoolSize     int    `yaml:"pool_size" default:"10"`
		MinIdleConns int    `yaml:"min_idle_conns" default:"2"`
		// L1Size and L1TTL bound the in-process layer in front of Redis.
		L1Size int           `yaml:"l1_size" default:"1000"`
		L1TTL  time.Duration `yaml:"l1_ttl" default:"1m"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockcast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Topics       struct {
			Predictions  string `yaml:"predictions" default:"stockcast.predictions"`
			Calibrations string `yaml:"calibrations" default:"stockcast.calibrations"`
			Bars         string `yaml:"bars" default:"stockcast.bars"`
			Recalibrate  string `yaml:"recalibrate" default:"stockcast.recalibrate"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"20ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"stockcast"`
			StartOffset string        `yaml:"start_offset" default:"latest"`
			Workers     int           `yaml:"workers" default:"4"`
			BufferSize  int           `yaml:"buffer_size" default:"256"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic" default:"stockcast.dlq"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled" default:"true"`
		Capacity     float64 `yaml:"capacity" default:"30"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
	} `yaml:"ratelimit"`
}

// Default returns a config populated from struct defaults only.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file over the struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (when present), the YAML file and environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c *Config
	if path == "" {
		c = Default()
	} else {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HISTORY_SOURCE"); v != "" {
		c.History.Source = v
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.Ensemble.ModelDir = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Ensemble.RemoteURL = v
		c.Ensemble.ModelSource = "remote"
	}
	if v := os.Getenv("CALIBRATION_STORE"); v != "" {
		c.Calibration.Store = v
	}
	if v := os.Getenv("CALIBRATION_DSN"); v != "" {
		c.Calibration.SQL.DSN = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Calibration.Watchlist = util.SplitCSV(v)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.History.Source {
	case "yahoo":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("history.source 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("history.source must be 'yahoo' or 'clickhouse', got '%s'", c.History.Source)
	}
	switch c.Ensemble.ModelSource {
	case "file":
		if c.Ensemble.ModelDir == "" {
			return fmt.Errorf("ensemble.model_dir is required")
		}
	case "remote":
		if c.Ensemble.RemoteURL == "" {
			return fmt.Errorf("ensemble.remote_url is required for model_source 'remote'")
		}
	default:
		return fmt.Errorf("ensemble.model_source must be 'file' or 'remote', got '%s'", c.Ensemble.ModelSource)
	}
	for k, w := range c.Ensemble.Weights {
		switch k {
		case "sequence", "forest", "boosted":
		default:
			return fmt.Errorf("ensemble.weights: unknown model %q", k)
		}
		if w < 0 {
			return fmt.Errorf("ensemble.weights.%s must be >= 0", k)
		}
	}
	if c.Confidence.Min < 50 || c.Confidence.Min > c.Confidence.Max || c.Confidence.Max > 95 {
		return fmt.Errorf("confidence must satisfy 50 <= min <= max <= 95, got min %v max %v",
			c.Confidence.Min, c.Confidence.Max)
	}
	if c.Calibration.Windows < 1 || c.Calibration.Horizon < 1 {
		return fmt.Errorf("calibration.windows and calibration.horizon must be positive")
	}
	switch c.Calibration.Strategy {
	case "persistence", "drift", "sma":
	default:
		return fmt.Errorf("calibration.strategy must be persistence, drift or sma, got '%s'", c.Calibration.Strategy)
	}
	switch c.Calibration.Store {
	case "memory", "sql":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("calibration.store 'redis' requires redis.enabled")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("calibration.store 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("calibration.store must be memory, redis, clickhouse or sql, got '%s'", c.Calibration.Store)
	}
	if c.Calibration.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("calibration.queue requires redis.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if o := c.Kafka.Consumer.StartOffset; o != "earliest" && o != "latest" {
		return fmt.Errorf("kafka.consumer.start_offset must be earliest or latest, got %q", o)
	}
	return nil
}
