package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docubot-be/internal/config"
	"docubot-be/internal/controller"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/repository/contract"
	"docubot-be/internal/repository/implementation"
	"docubot-be/internal/repository/memory"
	"docubot-be/internal/service"
	"docubot-be/pkg/database"
	"docubot-be/pkg/embedding"
	"docubot-be/pkg/events"
	"docubot-be/pkg/llm/factory"
	"docubot-be/pkg/rag/chunker"
	"docubot-be/pkg/rag/ingest"
	"docubot-be/pkg/rag/response"
	"docubot-be/pkg/rag/search"

	pktNats "docubot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const (
	module = "Bootstrap"

	IngestTopic         = "ingest.documents"
	questionEmbedTTL    = 30 * time.Minute
	healthDurablePrefix = "docubot-health-"
)

type Container struct {
	Config *config.Config
	Logger logger.ILogger

	// Controllers
	AskController    controller.IAskController
	HealthController controller.IHealthController

	// Services
	IngestService service.IIngestService
	AnswerService service.IAnswerService
	HealthService service.IHealthService
	IngestStatus  *service.IngestStatus

	Store contract.PassageRepository

	natsSub *pktNats.Subscriber
	closers []func()
}

func NewContainer(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Config: cfg, Logger: sysLogger}

	// 1. Vector store
	store, err := c.openStore(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = store

	// 2. Models
	ollama := embedding.NewOllamaProvider(embedding.OllamaConfig{
		BaseURL:    cfg.Ai.OllamaBaseURL,
		Model:      cfg.Ai.EmbeddingModel,
		Dimensions: cfg.Ai.EmbeddingDimensions,
		Timeout:    cfg.Rag.EmbedTimeout,
	})
	questionEmbedder := c.withQuestionCache(ctx, ollama, cfg)

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:    cfg.Ai.LLMProvider,
		Model:       cfg.Ai.LLMModel,
		BaseURL:     cfg.Ai.OllamaBaseURL,
		Temperature: cfg.Ai.LLMTemperature,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info(module, "Models configured", map[string]interface{}{
		"embedding_model": ollama.ModelName(),
		"dimensions":      ollama.Dimensions(),
		"llm_provider":    cfg.Ai.LLMProvider,
		"llm_model":       llmProvider.ModelName(),
	})

	// 3. RAG components
	chk, err := chunker.New(chunker.Config{
		ChunkSize:      cfg.Rag.ChunkSize,
		ChunkOverlap:   cfg.Rag.ChunkOverlap,
		BoundaryWindow: cfg.Rag.ChunkBoundaryWindow,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	pipeline := ingest.NewPipeline(chk, ollama, store, ingest.Config{
		BatchSize:    cfg.Ingest.EmbedBatchSize,
		EmbedRate:    cfg.Ingest.EmbedRate,
		MaxAttempts:  cfg.Ingest.MaxAttempts,
		EmbedTimeout: cfg.Rag.EmbedTimeout,
	}, sysLogger)

	retriever := search.NewRetriever(questionEmbedder, store, search.Config{
		DefaultK:     cfg.Rag.RetrievalK,
		EmbedTimeout: cfg.Rag.EmbedTimeout,
		StoreTimeout: cfg.Rag.StoreTimeout,
	}, sysLogger)

	streamer := response.NewStreamer(llmProvider, response.Config{
		MaxInflight:       cfg.Rag.MaxInflightGenerations,
		SlotWaitTimeout:   cfg.Rag.SlotWaitTimeout,
		GenerationTimeout: cfg.Rag.GenerationTimeout,
		IdleTimeout:       cfg.Rag.GenerationIdleTimeout,
		MaxTokens:         cfg.Ai.LLMMaxTokens,
	}, sysLogger)

	// 4. Event bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var publisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn(module, "NATS publisher unavailable, ingest events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}

		natsSub, err := pktNats.NewSubscriber(ctx, cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(module, "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			c.natsSub = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 5. Services
	c.IngestStatus = service.NewIngestStatus()
	c.IngestService = service.NewIngestService(pubSub, IngestTopic, pipeline, publisher, sysLogger)
	c.AnswerService = service.NewAnswerService(retriever, streamer, cfg.Rag.RetrievalK, sysLogger)
	c.HealthService = service.NewHealthService(store, ollama, c.IngestStatus, cfg.Rag.StoreTimeout, sysLogger)

	// 6. Controllers
	c.AskController = controller.NewAskController(c.AnswerService, sysLogger)
	c.HealthController = controller.NewHealthController(c.HealthService)

	return c, nil
}

func (c *Container) openStore(cfg *config.Config) (contract.PassageRepository, error) {
	switch cfg.Database.VectorStore {
	case "pgvector":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, fmt.Errorf("%w: connect: %v", contract.ErrStoreUnavailable, err)
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, func() { _ = sqlDB.Close() })
		}
		c.Logger.Info(module, "Using pgvector store", nil)
		return implementation.NewPassageRepository(db), nil
	default:
		repo, err := memory.OpenPassageRepository(cfg.Database.ChromemPath)
		if err != nil {
			return nil, fmt.Errorf("%w: open chromem: %v", contract.ErrStoreUnavailable, err)
		}
		c.Logger.Info(module, "Using chromem store", map[string]interface{}{"path": cfg.Database.ChromemPath})
		return repo, nil
	}
}

// withQuestionCache wraps the embedder used at question time. Ingest always
// talks to the model directly.
func (c *Container) withQuestionCache(ctx context.Context, p embedding.EmbeddingProvider, cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingCache {
	case "redis":
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			c.Logger.Warn(module, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.Logger.Warn(module, "Redis unreachable, question embeddings will not be cached", map[string]interface{}{"error": err.Error()})
		}
		return embedding.NewCachedProvider(p, embedding.NewRedisCache(rdb, questionEmbedTTL))
	case "none":
		return p
	default:
		return embedding.NewCachedProvider(p, embedding.NewMemoryCache(questionEmbedTTL))
	}
}

// StartSubscribers feeds ingest events from the bus into IngestStatus. It is
// a no-op without NATS.
func (c *Container) StartSubscribers(ctx context.Context) error {
	if c.natsSub == nil {
		return nil
	}
	for _, eventType := range []string{events.TypeCorpusIngested, events.TypeCorpusIngestFailed} {
		durable := healthDurablePrefix + strings.ReplaceAll(eventType, ".", "_") // durable names may not contain dots
		if err := c.natsSub.Subscribe(ctx, eventType, durable, c.IngestStatus.Record); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	c.Logger.Info(module, "Listening for ingest events", nil)
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
