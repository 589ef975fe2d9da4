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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Pipeline struct {
		ValueColumn    string  `yaml:"value_column"`
		ParamType      string  `yaml:"param_type"`
		SequenceLength int     `yaml:"sequence_length"`
		ZThreshold     float64 `yaml:"z_threshold"`
		IQRMultiplier  float64 `yaml:"iqr_multiplier"`
		Contamination  float64 `yaml:"contamination"`
		MLMinSamples   int     `yaml:"ml_min_samples"`
	} `yaml:"pipeline"`
	Model struct {
		Dir          string  `yaml:"dir"`
		HiddenUnits  int     `yaml:"hidden_units"`
		MaxEpochs    int     `yaml:"max_epochs"`
		BatchSize    int     `yaml:"batch_size"`
		LearningRate float64 `yaml:"learning_rate"`
		Patience     int     `yaml:"patience"`
		LRPatience   int     `yaml:"lr_patience"`
		ValFraction  float64 `yaml:"val_fraction"`
		Seed         int64   `yaml:"seed"`
	} `yaml:"model"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
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
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Consumer     struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Upstream struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		StationID string        `yaml:"station_id"`
	} `yaml:"upstream"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
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

	if v := os.Getenv("AIRPULSE_MODEL_DIR"); v != "" {
		c.Model.Dir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Pipeline.ValueColumn == "" {
		c.Pipeline.ValueColumn = "PM25"
	}
	if c.Pipeline.ParamType == "" {
		c.Pipeline.ParamType = c.Pipeline.ValueColumn
	}
	if c.Pipeline.SequenceLength == 0 {
		c.Pipeline.SequenceLength = 24
	}
	if c.Pipeline.ZThreshold == 0 {
		c.Pipeline.ZThreshold = 3.0
	}
	if c.Pipeline.IQRMultiplier == 0 {
		c.Pipeline.IQRMultiplier = 1.5
	}
	if c.Pipeline.Contamination == 0 {
		c.Pipeline.Contamination = 0.1
	}
	if c.Pipeline.MLMinSamples == 0 {
		c.Pipeline.MLMinSamples = 50
	}
	if c.Model.Dir == "" {
		c.Model.Dir = "models"
	}
	if c.Model.HiddenUnits == 0 {
		c.Model.HiddenUnits = 32
	}
	if c.Model.MaxEpochs == 0 {
		c.Model.MaxEpochs = 100
	}
	if c.Model.BatchSize == 0 {
		c.Model.BatchSize = 16
	}
	if c.Model.LearningRate == 0 {
		c.Model.LearningRate = 0.001
	}
	if c.Model.Patience == 0 {
		c.Model.Patience = 15
	}
	if c.Model.LRPatience == 0 {
		c.Model.LRPatience = 7
	}
	if c.Model.ValFraction == 0 {
		c.Model.ValFraction = 0.1
	}
	if c.Model.Seed == 0 {
		c.Model.Seed = 42
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Pipeline.SequenceLength < 2 {
		return fmt.Errorf("pipeline.sequence_length must be at least 2, got %d", c.Pipeline.SequenceLength)
	}
	if c.Pipeline.Contamination <= 0 || c.Pipeline.Contamination >= 0.5 {
		return fmt.Errorf("pipeline.contamination must be in (0, 0.5), got %v", c.Pipeline.Contamination)
	}
	if c.Model.ValFraction <= 0 || c.Model.ValFraction >= 1 {
		return fmt.Errorf("model.val_fraction must be in (0, 1), got %v", c.Model.ValFraction)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
