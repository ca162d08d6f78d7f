// Package config loads the construction-time configuration for the
// memory store from a YAML/JSON file, KG_-prefixed environment
// variables, or both, via github.com/spf13/viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

// StoreConfig configures the persistence engine's backend and pool.
type StoreConfig struct {
	URI             string
	LogContent      bool
	PoolSize        int
	PoolOverflow    int
	PoolTimeoutSecs int
	PoolRecycleSecs int
}

// SchedulerConfig overrides the default FSRS-style weights; leaving
// all 21 at zero means "use the library defaults".
type SchedulerConfig struct {
	Weights [21]float64
}

// ContextConfig configures the §4.5 recency windows and world-fact cap.
type ContextConfig struct {
	StanceWindowMinutes int
	StanceWindowDays    int
	WorldFactsLimit     int
}

// ExtractionConfig selects and configures the §4.7 strategy.
type ExtractionConfig struct {
	Strategy   string // "fast", "llm", "none"
	LLMModel   string
	LLMAPIKey  string
	LLMBaseURL string
	MaxRetries int
	Timeout    time.Duration

	// SentimentThresholds tunes the Fast strategy's relation choice.
	SentimentSupport float64
	SentimentOppose  float64
	SentimentLike    float64
	SentimentDislike float64
}

// LoggingConfig configures the zap logger every component shares.
type LoggingConfig struct {
	Level string // "debug", "info", "warn", "error"
	JSON  bool
}

// Config is the complete construction-time configuration.
type Config struct {
	Store      StoreConfig
	Scheduler  SchedulerConfig
	Context    ContextConfig
	Extraction ExtractionConfig
	Logging    LoggingConfig
}

// Default returns a configuration usable with no external input: an
// in-process SQLite store and the Fast extraction strategy.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			URI:             "mnemokit.db",
			LogContent:      false,
			PoolSize:        5,
			PoolOverflow:    10,
			PoolTimeoutSecs: 30,
			PoolRecycleSecs: 3600,
		},
		Context: ContextConfig{
			StanceWindowMinutes: 60,
			StanceWindowDays:    60,
			WorldFactsLimit:     10,
		},
		Extraction: ExtractionConfig{
			Strategy:         "fast",
			MaxRetries:       3,
			Timeout:          30 * time.Second,
			SentimentSupport: 0.6,
			SentimentOppose:  -0.6,
			SentimentLike:    0.15,
			SentimentDislike: -0.15,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  true,
		},
	}
}

// Load builds a Config from defaults, then an optional config file
// (path may be empty to skip), then KG_-prefixed environment
// variables, in increasing priority order.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, kgerrors.Configuration("config_file", err.Error())
		}
	}

	cfg := &Config{
		Store: StoreConfig{
			URI:             v.GetString("store.uri"),
			LogContent:      v.GetBool("store.logcontent"),
			PoolSize:        v.GetInt("store.poolsize"),
			PoolOverflow:    v.GetInt("store.pooloverflow"),
			PoolTimeoutSecs: v.GetInt("store.pooltimeoutsecs"),
			PoolRecycleSecs: v.GetInt("store.poolrecyclesecs"),
		},
		Context: ContextConfig{
			StanceWindowMinutes: v.GetInt("context.stancewindowminutes"),
			StanceWindowDays:    v.GetInt("context.stancewindowdays"),
			WorldFactsLimit:     v.GetInt("context.worldfactslimit"),
		},
		Extraction: ExtractionConfig{
			Strategy:         v.GetString("extraction.strategy"),
			LLMModel:         v.GetString("extraction.llmmodel"),
			LLMAPIKey:        v.GetString("extraction.llmapikey"),
			LLMBaseURL:       v.GetString("extraction.llmbaseurl"),
			MaxRetries:       v.GetInt("extraction.maxretries"),
			Timeout:          v.GetDuration("extraction.timeout"),
			SentimentSupport: v.GetFloat64("extraction.sentimentsupport"),
			SentimentOppose:  v.GetFloat64("extraction.sentimentoppose"),
			SentimentLike:    v.GetFloat64("extraction.sentimentlike"),
			SentimentDislike: v.GetFloat64("extraction.sentimentdislike"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("logging.level"),
			JSON:  v.GetBool("logging.json"),
		},
	}

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store.uri", d.Store.URI)
	v.SetDefault("store.logcontent", d.Store.LogContent)
	v.SetDefault("store.poolsize", d.Store.PoolSize)
	v.SetDefault("store.pooloverflow", d.Store.PoolOverflow)
	v.SetDefault("store.pooltimeoutsecs", d.Store.PoolTimeoutSecs)
	v.SetDefault("store.poolrecyclesecs", d.Store.PoolRecycleSecs)
	v.SetDefault("context.stancewindowminutes", d.Context.StanceWindowMinutes)
	v.SetDefault("context.stancewindowdays", d.Context.StanceWindowDays)
	v.SetDefault("context.worldfactslimit", d.Context.WorldFactsLimit)
	v.SetDefault("extraction.strategy", d.Extraction.Strategy)
	v.SetDefault("extraction.maxretries", d.Extraction.MaxRetries)
	v.SetDefault("extraction.timeout", d.Extraction.Timeout)
	v.SetDefault("extraction.sentimentsupport", d.Extraction.SentimentSupport)
	v.SetDefault("extraction.sentimentoppose", d.Extraction.SentimentOppose)
	v.SetDefault("extraction.sentimentlike", d.Extraction.SentimentLike)
	v.SetDefault("extraction.sentimentdislike", d.Extraction.SentimentDislike)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.json", d.Logging.JSON)
}

// Validate checks required fields, returning a ConfigurationInvalid
// error naming the offending field.
func (c *Config) Validate() error {
	if c.Store.URI == "" {
		return kgerrors.Configuration("store.uri", "must not be empty")
	}
	switch c.Extraction.Strategy {
	case "fast", "llm", "none":
	default:
		return kgerrors.Configuration("extraction.strategy", "must be one of fast, llm, none")
	}
	if c.Extraction.Strategy == "llm" && c.Extraction.LLMAPIKey == "" {
		return kgerrors.Configuration("extraction.llmapikey", "required when extraction.strategy is llm")
	}
	if c.Store.PoolSize < 0 || c.Store.PoolOverflow < 0 {
		return kgerrors.Configuration("store.poolsize", "must not be negative")
	}
	return nil
}
