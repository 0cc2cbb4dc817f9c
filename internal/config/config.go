package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/quayside-labs/deskrag/internal/domain"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Document tree and derived files. Corpus and metrics are plain JSONL
	// so they stay inspectable with standard shell tools.
	DataDir     string `envconfig:"DATA_DIR" default:"data"`
	CorpusPath  string `envconfig:"CORPUS_PATH" default:"data/index/corpus.jsonl"`
	MetricsPath string `envconfig:"METRICS_PATH" default:"data/metrics.jsonl"`
	PricesPath  string `envconfig:"PRICES_PATH" default:"prices_stub/prices.json"`
	PromptPath  string `envconfig:"PROMPT_PATH" default:"prompts/answer_system.txt"`

	ChunkWindow  int `envconfig:"CHUNK_WINDOW" default:"600"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"120"`

	HybridAlpha    float64 `envconfig:"HYBRID_ALPHA" default:"0.65"`
	BM25K1         float64 `envconfig:"BM25_K1" default:"1.5"`
	BM25B          float64 `envconfig:"BM25_B" default:"0.75"`
	DefaultK       int     `envconfig:"DEFAULT_K" default:"5"`
	MaxK           int     `envconfig:"MAX_K" default:"20"`
	MaxAnswerChars int     `envconfig:"MAX_ANSWER_CHARS" default:"4000"`

	LLMProvider          string        `envconfig:"LLM_PROVIDER" default:"off"`
	LLMModel             string        `envconfig:"LLM_MODEL"`
	LLMTimeout           time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`
	LLMRequestsPerMinute int           `envconfig:"LLM_REQUESTS_PER_MINUTE" default:"60"`
	OllamaBaseURL        string        `envconfig:"OLLAMA_BASE_URL"`
	OpenAIAPIKey         string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL        string        `envconfig:"OPENAI_BASE_URL"`

	// Watch re-ingests on filesystem changes; ReindexInterval re-ingests on
	// a timer. Zero disables the timer.
	Watch           bool          `envconfig:"WATCH" default:"false"`
	WatchDebounce   time.Duration `envconfig:"WATCH_DEBOUNCE" default:"2s"`
	ReindexInterval time.Duration `envconfig:"REINDEX_INTERVAL" default:"0"`

	// When set, documents are read from an S3-compatible bucket instead of
	// DataDir.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Prefix    string `envconfig:"S3_PREFIX"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DESKRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings the services would refuse at request time, so a
// bad deployment fails on boot instead of on the first question.
func (c *Config) Validate() error {
	if c.ChunkWindow <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkWindow {
		return domain.ErrInvalidChunkConfig
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		return fmt.Errorf("hybrid alpha must be between 0 and 1, got %v", c.HybridAlpha)
	}
	switch c.LLMProvider {
	case "off", "ollama", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (want off, ollama or openai)", c.LLMProvider)
	}
	if c.LLMProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("llm provider openai requires an api key")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != ""
}

func (c *Config) HasLLM() bool {
	return c.LLMProvider != "" && c.LLMProvider != "off"
}

func (c *Config) WatchEnabled() bool {
	return c.Watch
}
