package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/recon-cli/internal/reconcile"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Reconcile  ReconcileConfig  `yaml:"reconcile" mapstructure:"reconcile"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ExtractModel   string `yaml:"extract_model" mapstructure:"extract_model"`
	VerifyModel    string `yaml:"verify_model" mapstructure:"verify_model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxSourceChars int    `yaml:"max_source_chars" mapstructure:"max_source_chars"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// OCRConfig configures source document text extraction.
type OCRConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// NotionConfig holds Notion API credentials for the review queue.
type NotionConfig struct {
	Token    string  `yaml:"token" mapstructure:"token"`
	ReviewDB string  `yaml:"review_db" mapstructure:"review_db"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownSecs   int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
}

// ReconcileConfig holds the engine thresholds. They are converted into
// explicit reconcile.Options; the engine never reads configuration itself.
type ReconcileConfig struct {
	RulesPath            string  `yaml:"rules_path" mapstructure:"rules_path"`
	AreaToleranceFloor   float64 `yaml:"area_tolerance_floor" mapstructure:"area_tolerance_floor"`
	AreaToleranceRatio   float64 `yaml:"area_tolerance_ratio" mapstructure:"area_tolerance_ratio"`
	IncomeToleranceFloor float64 `yaml:"income_tolerance_floor" mapstructure:"income_tolerance_floor"`
	IncomeToleranceRatio float64 `yaml:"income_tolerance_ratio" mapstructure:"income_tolerance_ratio"`
	MinBuiltYear         int     `yaml:"min_built_year" mapstructure:"min_built_year"`
	FutureYearSlack      int     `yaml:"future_year_slack" mapstructure:"future_year_slack"`
	ReviewBelow          float64 `yaml:"review_below" mapstructure:"review_below"`
}

// ResilienceConfig configures retries and the circuit breaker around the
// model service.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Keys must have a default to be picked up from the environment by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "recon.db")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.extract_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.verify_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.timeout_secs", 180)
	v.SetDefault("anthropic.max_source_chars", 200000)
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.review_db", "")
	v.SetDefault("notion.rps", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 5)
	v.SetDefault("server.rate_limit_burst", 10)
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_secs", 15)
	v.SetDefault("reconcile.rules_path", "")
	v.SetDefault("reconcile.area_tolerance_floor", 10)
	v.SetDefault("reconcile.area_tolerance_ratio", 0.02)
	v.SetDefault("reconcile.income_tolerance_floor", 1000)
	v.SetDefault("reconcile.income_tolerance_ratio", 0.02)
	v.SetDefault("reconcile.min_built_year", 1800)
	v.SetDefault("reconcile.future_year_slack", 10)
	v.SetDefault("reconcile.review_below", 75)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 30000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 60)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// ReconcileOptions converts the configured thresholds into engine options,
// loading field-rule overrides from RulesPath when set.
func (c *Config) ReconcileOptions(now time.Time) (reconcile.Options, error) {
	opts := reconcile.DefaultOptions(now)
	r := c.Reconcile
	opts.Audit.AreaToleranceFloor = r.AreaToleranceFloor
	opts.Audit.AreaToleranceRatio = r.AreaToleranceRatio
	opts.Audit.IncomeToleranceFloor = r.IncomeToleranceFloor
	opts.Audit.IncomeToleranceRatio = r.IncomeToleranceRatio
	opts.Audit.MinBuiltYear = r.MinBuiltYear
	opts.Audit.FutureYearSlack = r.FutureYearSlack

	rules, err := reconcile.LoadRules(r.RulesPath)
	if err != nil {
		return opts, eris.Wrap(err, "config: load rules")
	}
	opts.Rules = rules
	return opts, nil
}

// Validate checks that the configuration is usable for mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, fmt.Sprintf("batch.concurrency must be between 1 and 64 (got %d)", c.Batch.Concurrency))
	}
	if c.Reconcile.AreaToleranceFloor < 0 || c.Reconcile.IncomeToleranceFloor < 0 {
		errs = append(errs, "reconcile tolerance floors must be >= 0")
	}
	if c.Reconcile.AreaToleranceRatio < 0 || c.Reconcile.AreaToleranceRatio > 1 ||
		c.Reconcile.IncomeToleranceRatio < 0 || c.Reconcile.IncomeToleranceRatio > 1 {
		errs = append(errs, "reconcile tolerance ratios must be between 0 and 1")
	}

	switch mode {
	case "offline":
		// Engine-only commands need nothing else.
	case "verify":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		errs = append(errs, c.storeErrors()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, fmt.Sprintf("server.port must be > 0 (got %d)", c.Server.Port))
		}
		if c.Server.RateLimitRPS <= 0 {
			errs = append(errs, "server.rate_limit_rps must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		errs = append(errs, c.storeErrors()...)
	case "store":
		errs = append(errs, c.storeErrors()...)
	case "review":
		if c.Notion.Token == "" || c.Notion.ReviewDB == "" {
			errs = append(errs, "notion.token and notion.review_db are required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for the sqlite driver"}
		}
	default:
		return []string{fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver)}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
