package types

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config is the full environment-driven configuration surface, shared by
// the API server and the loader. Invalid chunking parameters must kill the
// process at startup, silently wrong chunking is worse than no chunking.
type Config struct {
	ServerAddr string

	PgHost   string `validate:"required"`
	PgPort   int    `validate:"gt=0"`
	PgUser   string `validate:"required"`
	PgPass   string
	PgDBName string `validate:"required"`

	Collection   string `validate:"required,alphanum"`
	EmbeddingDim int    `validate:"gt=0"`

	EmbeddingURL   string `validate:"required,url"`
	EmbeddingModel string `validate:"required"`
	LLMURL         string `validate:"required,url"`
	LLMModel       string `validate:"required"`

	SourceDir  string `validate:"required"`
	LedgerPath string `validate:"required"`

	ChunkSize    int `validate:"gt=0"`
	ChunkOverlap int `validate:"gte=0,ltfield=ChunkSize"`

	BatchSize        int `validate:"gt=0"`
	EmbedConcurrency int `validate:"gt=0"`
	LLMConcurrency   int `validate:"gt=0"`

	OverFetch int `validate:"gt=0,gtefield=TopK"`
	TopK      int `validate:"gt=0"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		PgHost:   getEnv("PG_HOST", "localhost"),
		PgPort:   getEnvInt("PG_PORT", 5432),
		PgUser:   getEnv("PG_USER", "postgres"),
		PgPass:   os.Getenv("PG_PASS"),
		PgDBName: getEnv("PG_DB_NAME", "rag"),

		Collection:   getEnv("COLLECTION_NAME", "documents"),
		EmbeddingDim: getEnvInt("EMBEDDING_DIM", 768),

		EmbeddingURL:   getEnv("OLLAMA_EMBEDDING_URL", "http://localhost:11434/api/embeddings"),
		EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		LLMURL:         getEnv("LLM_URL", "http://localhost:11434/api/generate"),
		LLMModel:       getEnv("LLM_MODEL", "llama3"),

		SourceDir:  getEnv("LOADER_SOURCE_DIR", "./data"),
		LedgerPath: getEnv("LEDGER_PATH", "hashes.json"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),

		BatchSize:        getEnvInt("BATCH_SIZE", 64),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
		LLMConcurrency:   getEnvInt("LLM_CONCURRENCY", 5),

		OverFetch: getEnvInt("OVERFETCH", 20),
		TopK:      getEnvInt("TOP_K", 5),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// PostgresDSN builds the connection string the way the server expects it.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PgHost, c.PgPort, c.PgUser, c.PgPass, c.PgDBName)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
