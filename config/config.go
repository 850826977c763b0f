package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is parsed once in main and handed to every constructor that needs it.
type Config struct {
	GoEnv    string `env:"GO_ENV"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver                 string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser                   string `env:"DB_USER"`
	DBPassword               string `env:"DB_PASSWORD"`
	DBHost                   string `env:"DB_HOST" envDefault:"localhost"`
	DBPort                   string `env:"DB_PORT" envDefault:"3306"`
	DBName                   string `env:"DB_NAME" envDefault:"matrax_tyres"`
	SqlitePath               string `env:"SQLITE_PATH" envDefault:"matrax_tyres.db"`
	DBMaxOpenConns           int    `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	DBMaxIdleConns           int    `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	DBConnMaxLifetimeSeconds int    `env:"DB_CONN_MAX_LIFETIME_SECONDS" envDefault:"300"`
	SkipMigrations           bool   `env:"SKIP_MIGRATIONS"`

	RedisAddress           string   `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	RedisPassword          string   `env:"REDIS_PASSWORD"`
	RateLimitEnabled       bool     `env:"RATE_LIMIT_ENABLED"`
	RateLimitMaxRequests   int64    `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"600"`
	RateLimitWindowSeconds int64    `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	CorsAllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	LLMProvider          string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey         string `env:"GEMINI_API_KEY"`
	GeminiBaseURL        string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel          string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiEmbeddingModel string `env:"GEMINI_EMBEDDING_MODEL" envDefault:"models/gemini-embedding-001"`
	OllamaURL            string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaModel          string `env:"OLLAMA_MODEL" envDefault:"llama3.1"`
	OllamaEmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	LLMTimeoutSeconds    int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`

	Retriever          string `env:"RETRIEVER" envDefault:"qdrant"`
	QdrantURL          string `env:"QDRANT_URL" envDefault:"http://localhost:6333"`
	QdrantAPIKey       string `env:"QDRANT_API_KEY"`
	EmbeddingDimension int    `env:"EMBEDDING_DIMENSION" envDefault:"3072"`
	RetrievalLimit     int    `env:"RETRIEVAL_LIMIT" envDefault:"5"`

	OutboxEnabled         bool   `env:"OUTBOX_ENABLED"`
	PubSubProjectId       string `env:"PUBSUB_PROJECT_ID"`
	PubSubTopic           string `env:"PUBSUB_TOPIC" envDefault:"tyre-assistant-events"`
	PubSubCredentialsJSON string `env:"PUBSUB_CREDENTIALS_JSON"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.Retriever = strings.ToLower(strings.TrimSpace(cfg.Retriever))
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = 5
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.GoEnv), "production")
}

func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
