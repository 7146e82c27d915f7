// Package config loads and validates newsgate configuration from a YAML
// file, environment variables, and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        App        `mapstructure:"app"`
	AI         AI         `mapstructure:"ai"`
	Reference  Reference  `mapstructure:"reference"`
	Gate       Gate       `mapstructure:"gate"`
	Metrics    Metrics    `mapstructure:"metrics"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration.
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// AI holds the generative backend configuration.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Gemini model-chain configuration. Model is the primary;
// FallbackModels are tried in order when the primary is exhausted.
type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	FallbackModels  []string      `mapstructure:"fallback_models"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
	PrimaryAttempts int           `mapstructure:"primary_attempts"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxTokens       int32         `mapstructure:"max_tokens"`
}

// Reference holds Reference Acquisitor configuration.
type Reference struct {
	SearchFeedURL    string        `mapstructure:"search_feed_url"`     // %s is the query placeholder
	TopStoriesURL    string        `mapstructure:"top_stories_url"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	FetchAttempts    int           `mapstructure:"fetch_attempts"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"` // batch fan-out bound
	DefaultLimit     int           `mapstructure:"default_limit"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// Gate holds the validation thresholds. The similarity thresholds are product
// tunables; they are configuration, never hardcoded at call sites.
type Gate struct {
	TitleMaxChars       int     `mapstructure:"title_max_chars"`
	DraftMaxChars       int     `mapstructure:"draft_max_chars"`
	LongformMinSentence int     `mapstructure:"longform_min_sentences"`
	DraftSlotsMin       int     `mapstructure:"draft_slots_min"`
	DraftSlotsMax       int     `mapstructure:"draft_slots_max"`
	LongformSlotsMin    int     `mapstructure:"longform_slots_min"`
	LongformSlotsMax    int     `mapstructure:"longform_slots_max"`
	TitleJaccard        float64 `mapstructure:"title_jaccard"`
	LeadJaccard         float64 `mapstructure:"lead_jaccard"`
	LeadComposite       float64 `mapstructure:"lead_composite"`
	CopiedSpanLength    int     `mapstructure:"copied_span_length"`
	CopiedSpanStep      int     `mapstructure:"copied_span_step"`
	GroundingMinTokens  int     `mapstructure:"grounding_min_tokens"`
	GroundingJaccard    float64 `mapstructure:"grounding_jaccard"`
	NewsBatchSize       int     `mapstructure:"news_batch_size"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// Metrics holds ops counter persistence configuration.
type Metrics struct {
	SnapshotPath  string        `mapstructure:"snapshot_path"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// Logging holds logging configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads configuration from .env, the config file, and environment
// variables. The loaded config is cached process-wide.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsgate")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it with defaults if needed.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Test hook.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".newsgate")

	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.fallback_models", []string{"gemini-2.0-flash"})
	viper.SetDefault("ai.gemini.attempt_timeout", "30s")
	viper.SetDefault("ai.gemini.primary_attempts", 2)
	viper.SetDefault("ai.gemini.temperature", 0.7)
	viper.SetDefault("ai.gemini.max_tokens", 8192)

	viper.SetDefault("reference.search_feed_url", "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en")
	viper.SetDefault("reference.top_stories_url", "https://news.google.com/rss?hl=en-US&gl=US&ceid=US:en")
	viper.SetDefault("reference.fetch_timeout", "10s")
	viper.SetDefault("reference.fetch_attempts", 2)
	viper.SetDefault("reference.cache_ttl", "30m")
	viper.SetDefault("reference.max_concurrent", 4)
	viper.SetDefault("reference.default_limit", 5)
	viper.SetDefault("reference.user_agent", "Newsgate/1.0")

	viper.SetDefault("gate.title_max_chars", 120)
	viper.SetDefault("gate.draft_max_chars", 4000)
	viper.SetDefault("gate.longform_min_sentences", 18)
	viper.SetDefault("gate.draft_slots_min", 1)
	viper.SetDefault("gate.draft_slots_max", 3)
	viper.SetDefault("gate.longform_slots_min", 2)
	viper.SetDefault("gate.longform_slots_max", 6)
	viper.SetDefault("gate.title_jaccard", 0.52)
	viper.SetDefault("gate.lead_jaccard", 0.38)
	viper.SetDefault("gate.lead_composite", 0.44)
	viper.SetDefault("gate.copied_span_length", 18)
	viper.SetDefault("gate.copied_span_step", 3)
	viper.SetDefault("gate.grounding_min_tokens", 2)
	viper.SetDefault("gate.grounding_jaccard", 0.08)
	viper.SetDefault("gate.news_batch_size", 3)
	viper.SetDefault("gate.request_timeout", "40s")

	viper.SetDefault("metrics.snapshot_path", ".newsgate/counters.db")
	viper.SetDefault("metrics.flush_interval", "350ms")

	viper.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})
}

func bindEnvKeys(configKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(configKey, value)
			return
		}
	}
}

func validate(c *Config) error {
	if c.AI.Gemini.PrimaryAttempts < 1 {
		return fmt.Errorf("ai.gemini.primary_attempts must be >= 1, got %d", c.AI.Gemini.PrimaryAttempts)
	}
	if c.Reference.MaxConcurrent < 1 || c.Reference.MaxConcurrent > 10 {
		return fmt.Errorf("reference.max_concurrent must be in [1,10], got %d", c.Reference.MaxConcurrent)
	}
	if c.Gate.CopiedSpanLength < 16 || c.Gate.CopiedSpanLength > 24 {
		return fmt.Errorf("gate.copied_span_length must be in [16,24], got %d", c.Gate.CopiedSpanLength)
	}
	if c.Gate.TitleJaccard <= 0 || c.Gate.TitleJaccard > 1 {
		return fmt.Errorf("gate.title_jaccard must be in (0,1], got %f", c.Gate.TitleJaccard)
	}
	return nil
}

// GateConstraints converts the gate config into per-mode core constraints.
func (c *Config) GateConstraints(mode string) (title, body, sentences, slotsMin, slotsMax int) {
	switch mode {
	case "longform":
		return c.Gate.TitleMaxChars, 0, c.Gate.LongformMinSentence, c.Gate.LongformSlotsMin, c.Gate.LongformSlotsMax
	default:
		return c.Gate.TitleMaxChars, c.Gate.DraftMaxChars, 0, c.Gate.DraftSlotsMin, c.Gate.DraftSlotsMax
	}
}
