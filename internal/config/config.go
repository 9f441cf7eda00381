package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RAGConfig
	Ingest   IngestConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins string
	StaticDir          string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
	OtelSampleRatio    float64
}

type DatabaseConfig struct {
	VectorStore string // "pgvector" or "chromem"
	Connection  string
	ChromemPath string // empty keeps the chromem collection in memory
}

type AIConfig struct {
	OllamaBaseURL       string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingCache      string // "memory", "redis" or "none"
	LLMProvider         string
	LLMModel            string
	LLMTemperature      float64
	LLMMaxTokens        int
}

type RAGConfig struct {
	ChunkSize              int
	ChunkOverlap           int
	ChunkBoundaryWindow    int
	RetrievalK             int
	EmbedTimeout           time.Duration
	StoreTimeout           time.Duration
	GenerationTimeout      time.Duration
	GenerationIdleTimeout  time.Duration
	MaxInflightGenerations int
	SlotWaitTimeout        time.Duration
}

type IngestConfig struct {
	DocsPath       string
	DocsGlob       string
	EmbedBatchSize int
	EmbedRate      float64 // batches per second, 0 disables throttling
	MaxAttempts    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/docubot.log"),
			LogLevel:           getEnv("LOG_LEVEL", ""),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			StaticDir:          getEnv("STATIC_DIR", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			OtelSampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
		Database: DatabaseConfig{
			VectorStore: getEnv("VECTOR_STORE", "chromem"),
			Connection:  getEnv("DB_CONNECTION_STRING", ""),
			ChromemPath: getEnv("CHROMEM_PATH", "./chroma_db"),
		},
		Ai: AIConfig{
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:      getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			EmbeddingCache:      getEnv("EMBEDDING_CACHE", "memory"),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3.2:1b"),
			LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 0),
		},
		Rag: RAGConfig{
			ChunkSize:              getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:           getEnvAsInt("CHUNK_OVERLAP", 200),
			ChunkBoundaryWindow:    getEnvAsInt("CHUNK_BOUNDARY_WINDOW", 0),
			RetrievalK:             getEnvAsInt("RETRIEVAL_K", 5),
			EmbedTimeout:           getEnvAsDuration("EMBED_TIMEOUT", 30*time.Second),
			StoreTimeout:           getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
			GenerationTimeout:      getEnvAsDuration("GENERATION_TIMEOUT", 3*time.Minute),
			GenerationIdleTimeout:  getEnvAsDuration("GENERATION_IDLE_TIMEOUT", 60*time.Second),
			MaxInflightGenerations: getEnvAsInt("MAX_INFLIGHT_GENERATIONS", 2),
			SlotWaitTimeout:        getEnvAsDuration("SLOT_WAIT_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			DocsPath:       getEnv("DOCS_PATH", "./docs"),
			DocsGlob:       getEnv("DOCS_GLOB", "**/*.txt"),
			EmbedBatchSize: getEnvAsInt("EMBED_BATCH_SIZE", 200),
			EmbedRate:      getEnvAsFloat("INGEST_EMBED_RATE", 0),
			MaxAttempts:    getEnvAsInt("INGEST_MAX_ATTEMPTS", 5),
		},
	}
}

// Validate reports the first setting that would break chunking, retrieval or
// the timeout guarantees.
func (c *Config) Validate() error {
	if c.Rag.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.Rag.ChunkSize)
	}
	if c.Rag.ChunkOverlap < 0 || c.Rag.ChunkOverlap >= c.Rag.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.Rag.ChunkOverlap)
	}
	if c.Rag.RetrievalK < 1 {
		return fmt.Errorf("RETRIEVAL_K must be at least 1, got %d", c.Rag.RetrievalK)
	}
	if c.Rag.MaxInflightGenerations < 1 {
		return fmt.Errorf("MAX_INFLIGHT_GENERATIONS must be at least 1, got %d", c.Rag.MaxInflightGenerations)
	}
	timeouts := map[string]time.Duration{
		"EMBED_TIMEOUT":           c.Rag.EmbedTimeout,
		"STORE_TIMEOUT":           c.Rag.StoreTimeout,
		"GENERATION_TIMEOUT":      c.Rag.GenerationTimeout,
		"GENERATION_IDLE_TIMEOUT": c.Rag.GenerationIdleTimeout,
		"SLOT_WAIT_TIMEOUT":       c.Rag.SlotWaitTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Ai.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.Ai.EmbeddingDimensions)
	}
	switch c.Database.VectorStore {
	case "pgvector":
		if c.Database.Connection == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required when VECTOR_STORE=pgvector")
		}
	case "chromem":
	default:
		return fmt.Errorf("unsupported VECTOR_STORE: %s", c.Database.VectorStore)
	}
	if c.Ingest.EmbedBatchSize < 1 {
		return fmt.Errorf("EMBED_BATCH_SIZE must be at least 1, got %d", c.Ingest.EmbedBatchSize)
	}
	if c.Ingest.MaxAttempts < 1 {
		return fmt.Errorf("INGEST_MAX_ATTEMPTS must be at least 1, got %d", c.Ingest.MaxAttempts)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
