package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	DBHost      string `mapstructure:"db_host"`
	DBPort      int    `mapstructure:"db_port"`
	DBUser      string `mapstructure:"db_user"`
	DBPassword  string `mapstructure:"db_password"`
	DBName      string `mapstructure:"db_name"`

	HTTPAddr    string `mapstructure:"http_addr"`
	CORSOrigins string `mapstructure:"cors_origins"`
	JWTSecret   string `mapstructure:"jwt_secret"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	LLMProvider          string `mapstructure:"llm_provider"`
	OpenAIKey            string `mapstructure:"openai_api_key"`
	OpenAIModel          string `mapstructure:"openai_model"`
	OpenAIBaseURL        string `mapstructure:"openai_base_url"`
	OpenAIEmbeddingModel string `mapstructure:"openai_embedding_model"`
	AnthropicKey         string `mapstructure:"anthropic_api_key"`
	AnthropicModel       string `mapstructure:"anthropic_model"`

	PerplexityKey     string `mapstructure:"perplexity_api_key"`
	PerplexityModel   string `mapstructure:"perplexity_model"`
	PerplexityBaseURL string `mapstructure:"perplexity_base_url"`

	RedisURL string `mapstructure:"redis_url"`

	RosterAliasesFile string `mapstructure:"roster_aliases_file"`

	VectorPrimaryThreshold    float64 `mapstructure:"vector_primary_threshold"`
	VectorKeywordThreshold    float64 `mapstructure:"vector_keyword_threshold"`
	VectorContextualThreshold float64 `mapstructure:"vector_contextual_threshold"`
	VectorFallbackThreshold   float64 `mapstructure:"vector_fallback_threshold"`
	VectorMatchCount          int     `mapstructure:"vector_match_count"`
	VectorTargetResults       int     `mapstructure:"vector_target_results"`
	VectorFallbackTarget      int     `mapstructure:"vector_fallback_target"`
	VectorPhaseStopAt         int     `mapstructure:"vector_phase_stop_at"`
	VectorMaxIterations       int     `mapstructure:"vector_max_iterations"`

	DedupThreshold float64 `mapstructure:"dedup_threshold"`
}

var defaults = map[string]any{
	"database_url": "",
	"db_host":      "localhost",
	"db_port":      5432,
	"db_user":      "",
	"db_password":  "",
	"db_name":      "",

	"http_addr":    ":8080",
	"cors_origins": "*",
	"jwt_secret":   "",

	"log_level":  "info",
	"log_pretty": false,

	"llm_provider":           "openai",
	"openai_api_key":         "",
	"openai_model":           "gpt-4o-mini",
	"openai_base_url":        "",
	"openai_embedding_model": "text-embedding-3-small",
	"anthropic_api_key":      "",
	"anthropic_model":        "claude-3-5-haiku-latest",

	"perplexity_api_key":  "",
	"perplexity_model":    "sonar",
	"perplexity_base_url": "https://api.perplexity.ai",

	"redis_url": "",

	"roster_aliases_file": "configs/aliases.yaml",

	"vector_primary_threshold":    0.35,
	"vector_keyword_threshold":    0.25,
	"vector_contextual_threshold": 0.2,
	"vector_fallback_threshold":   0.1,
	"vector_match_count":          20,
	"vector_target_results":       3,
	"vector_fallback_target":      2,
	"vector_phase_stop_at":        8,
	"vector_max_iterations":       4,

	"dedup_threshold": 0.85,
}

// Load reads configuration from the environment. A .env file, if any, must be
// loaded by the caller beforehand.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.DatabaseURL == "" && (c.DBName == "" || c.DBUser == "") {
		errs = append(errs, errors.New("DATABASE_URL or DB_NAME/DB_USER is required"))
	}
	if c.LLMProvider == "anthropic" && c.AnthropicKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic"))
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		errs = append(errs, fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1], got %v", c.DedupThreshold))
	}
	if c.VectorMaxIterations < 1 {
		errs = append(errs, fmt.Errorf("VECTOR_MAX_ITERATIONS must be at least 1, got %d", c.VectorMaxIterations))
	}
	return errors.Join(errs...)
}

func (c *Config) ConnString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// Origins splits CORS_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
