package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"5s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst" default:"5"`
			PerSecond float64 `yaml:"per_second" default:"0.5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logging struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"finscope.logs"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finscope"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		SeriesTable      string        `yaml:"series_table" default:"series_rows"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Host      string        `yaml:"host" default:"localhost"`
		Port      int           `yaml:"port" default:"6379"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		Prefix    string        `yaml:"prefix" default:"finscope"`
		ReportTTL time.Duration `yaml:"report_ttl" default:"1h"`
		LockTTL   time.Duration `yaml:"lock_ttl" default:"5m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		ReportTopic  string   `yaml:"report_topic" default:"finscope.reports"`
		RequestTopic string   `yaml:"request_topic" default:"finscope.analysis-requests"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"finscope-analysis"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Analysis      Analysis            `yaml:"analysis"`
	FeatureGroups map[string][]string `yaml:"feature_groups"`
	TimeWindows   TimeWindows         `yaml:"time_windows"`
	RiskParams    RiskParams          `yaml:"risk_params"`
	SignalParams  SignalParams        `yaml:"signal_params"`
}

// Analysis holds the inputs of the predictive-power pipeline.
type Analysis struct {
	DefaultSymbol        string        `yaml:"default_symbol" default:"BTC-USD"`
	TargetColumn         string        `yaml:"target_column" default:"close" validate:"required"`
	Horizons             []int         `yaml:"horizons" validate:"required,min=1,dive,gte=1"`
	CorrelationThreshold float64       `yaml:"correlation_threshold" default:"0.1" validate:"gte=0,lt=1"`
	PValueThreshold      float64       `yaml:"pvalue_threshold" default:"0.05" validate:"gt=0,lte=1"`
	TopN                 int           `yaml:"top_n" default:"15" validate:"gte=1"`
	RedundancyThreshold  float64       `yaml:"redundancy_threshold" default:"0.7" validate:"gt=0,lte=1"`
	Groups               []string      `yaml:"groups"`
	Enrich               bool          `yaml:"enrich"`
	OutputDir            string        `yaml:"output_dir" default:"analysis_output"`
	Timeout              time.Duration `yaml:"timeout" default:"2m"`
}

// TimeWindows mirrors the training/validation windows of the research notebooks.
// Informational only.
type TimeWindows struct {
	Training   int `yaml:"training" default:"252"`
	Validation int `yaml:"validation" default:"63"`
	Test       int `yaml:"test" default:"21"`
	Prediction int `yaml:"prediction" default:"5"`
}

// RiskParams are configuration constants only; nothing enforces them.
type RiskParams struct {
	MaxPositionSize  float64 `yaml:"max_position_size" default:"0.05"`
	MaxCorrelation   float64 `yaml:"max_correlation" default:"0.7"`
	StopLoss         float64 `yaml:"stop_loss" default:"0.02"`
	TakeProfit       float64 `yaml:"take_profit" default:"0.05"`
	MaxDrawdown      float64 `yaml:"max_drawdown" default:"0.15"`
	RiskFreeRate     float64 `yaml:"risk_free_rate" default:"0.02"`
	TargetVolatility float64 `yaml:"target_volatility" default:"0.15"`
}

// SignalParams are configuration constants only; nothing enforces them.
type SignalParams struct {
	MinConfidence       float64 `yaml:"min_confidence" default:"0.7"`
	LookbackPeriods     int     `yaml:"lookback_periods" default:"20"`
	MomentumThreshold   float64 `yaml:"momentum_threshold" default:"0.02"`
	VolatilityThreshold float64 `yaml:"volatility_threshold" default:"1.5"`
	VolumeThreshold     float64 `yaml:"volume_threshold" default:"2.0"`
}

var validate = validator.New()

// DefaultHorizons are the forward-return horizons used when none are configured.
var DefaultHorizons = []int{1, 3, 5, 10}

// DefaultFeatureGroups maps indicator groups to their column names.
var DefaultFeatureGroups = map[string][]string{
	"trend": {
		"trend_sma_fast", "trend_sma_slow",
		"trend_ema_fast", "trend_ema_slow",
		"trend_adx", "trend_vortex_ind_pos",
		"trend_vortex_ind_neg", "trend_trix",
		"trend_macd", "trend_macd_signal",
	},
	"momentum": {
		"momentum_rsi", "momentum_stoch_rsi",
		"momentum_stoch", "momentum_tsi",
		"momentum_uo", "momentum_stoch_signal",
		"momentum_wr", "momentum_ao",
	},
	"volatility": {
		"volatility_bbm", "volatility_bbh",
		"volatility_bbl", "volatility_bbw",
		"volatility_kcc", "volatility_kch",
		"volatility_kcl", "volatility_dcl",
		"volatility_dch", "volatility_dcm",
		"volatility_atr",
	},
	"volume": {
		"volume_em", "volume_sma_em",
		"volume_vwap", "volume_nvi",
		"volume_vpt", "volume_fi",
		"volume_mfi", "volume_adi",
		"volume_obv",
	},
}

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Analysis.Horizons) == 0 {
		c.Analysis.Horizons = append([]int(nil), DefaultHorizons...)
	}
	if len(c.FeatureGroups) == 0 {
		c.FeatureGroups = make(map[string][]string, len(DefaultFeatureGroups))
		for g, cols := range DefaultFeatureGroups {
			c.FeatureGroups[g] = append([]string(nil), cols...)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_DATABASE"); v != "" {
		c.ClickHouse.Database = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("ANALYSIS_SYMBOL"); v != "" {
		c.Analysis.DefaultSymbol = v
	}
	if v := os.Getenv("ANALYSIS_HORIZONS"); v != "" {
		if hs, err := ParseHorizons(v); err == nil {
			c.Analysis.Horizons = hs
		}
	}
	if v := os.Getenv("ANALYSIS_OUTPUT_DIR"); v != "" {
		c.Analysis.OutputDir = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// GroupOf returns the first feature group, by name, that lists column, or ""
// when none does.
func (c *Config) GroupOf(column string) string {
	groups := make([]string, 0, len(c.FeatureGroups))
	for g := range c.FeatureGroups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, group := range groups {
		for _, col := range c.FeatureGroups[group] {
			if col == column {
				return group
			}
		}
	}
	return ""
}

// ParseHorizons parses "1,3,5" into a horizon list.
func ParseHorizons(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		h, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("horizon %q: %w", p, err)
		}
		out = append(out, h)
	}
	return out, nil
}
