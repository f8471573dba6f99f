package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Exchange struct {
		SpotBaseURL    string        `yaml:"spot_base_url"`
		FuturesBaseURL string        `yaml:"futures_base_url"`
		TimeZone       int           `yaml:"time_zone"` // hours relative to UTC, passed to the klines endpoint
		RequestTimeout time.Duration `yaml:"request_timeout"`
		Stream         struct {
			Enabled        bool          `yaml:"enabled"`
			URL            string        `yaml:"url"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"stream"`
	} `yaml:"exchange"`
	Universe struct {
		QuoteSuffix string `yaml:"quote_suffix"`
		Store       string `yaml:"store"` // file or redis
		FilePath    string `yaml:"file_path"`
		RedisKey    string `yaml:"redis_key"`
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"universe"`
	Rank struct {
		Interval         string        `yaml:"interval"`
		MaxWindowSize    int           `yaml:"max_window_size"`
		PastWindowSize   int           `yaml:"past_window_size"`
		RecentWindowSize int           `yaml:"recent_window_size"`
		PollCron         string        `yaml:"poll_cron"`
		Workers          int           `yaml:"workers"`
		CacheTTL         time.Duration `yaml:"cache_ttl"`
	} `yaml:"rank"`
	Backend struct {
		Type string `yaml:"type"` // kafka, clickhouse or none
	} `yaml:"backend"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		Size       int           `yaml:"size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("RANK_INTERVAL"); v != "" {
		c.Rank.Interval = v
	}
	if v := os.Getenv("TRACKED_SET_PATH"); v != "" {
		c.Universe.FilePath = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Universe.QuoteSuffix == "" {
		c.Universe.QuoteSuffix = "USDT"
	}
	if c.Universe.Store == "" {
		c.Universe.Store = "file"
	}
	if c.Universe.FilePath == "" {
		c.Universe.FilePath = "./cache_config.json"
	}
	if c.Rank.Interval == "" {
		c.Rank.Interval = "1h"
	}
	if c.Rank.MaxWindowSize == 0 {
		c.Rank.MaxWindowSize = 50
	}
	if c.Rank.PastWindowSize == 0 {
		c.Rank.PastWindowSize = 20
	}
	if c.Rank.RecentWindowSize == 0 {
		c.Rank.RecentWindowSize = 3
	}
	if c.Rank.Workers == 0 {
		c.Rank.Workers = 8
	}
	if c.Rank.PollCron == "" {
		c.Rank.PollCron = "0 * * * * *" // every minute, on the minute
	}
	if c.Backend.Type == "" {
		c.Backend.Type = "none"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Rank.Interval {
	case "1m", "3m", "15m", "1h", "4h", "1d":
	default:
		return fmt.Errorf("rank.interval must be one of 1m 3m 15m 1h 4h 1d, got '%s'", c.Rank.Interval)
	}
	if c.Rank.MaxWindowSize <= 0 {
		return fmt.Errorf("rank.max_window_size must be positive")
	}
	if c.Rank.PastWindowSize <= 0 || c.Rank.PastWindowSize > c.Rank.MaxWindowSize {
		return fmt.Errorf("rank.past_window_size must be in 1..max_window_size")
	}
	if c.Rank.RecentWindowSize <= 0 || c.Rank.RecentWindowSize > c.Rank.MaxWindowSize {
		return fmt.Errorf("rank.recent_window_size must be in 1..max_window_size")
	}
	switch c.Backend.Type {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("backend.type 'kafka' requires kafka.brokers and kafka.topic")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("backend.type 'clickhouse' requires clickhouse.host")
		}
	case "none":
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Backend.Type)
	}
	switch c.Universe.Store {
	case "file":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("universe.store 'redis' requires redis.enabled")
		}
	default:
		return fmt.Errorf("universe.store must be 'file' or 'redis', got '%s'", c.Universe.Store)
	}
	return nil
}
