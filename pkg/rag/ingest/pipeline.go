// Package ingest turns one document into stored, embedded passages.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"docubot-be/internal/entity"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/repository/contract"
	"docubot-be/pkg/embedding"
	"docubot-be/pkg/rag/chunker"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

const module = "Ingest"

// ErrIngestionFailure is returned when a document could not be stored after
// all retries. Earlier batches of the same document may already be stored.
var ErrIngestionFailure = errors.New("ingestion failure")

// Document is the raw text of one corpus file. SourcePath is slash-separated
// and relative to the corpus root.
type Document struct {
	SourcePath string
	Text       string
}

type Config struct {
	// BatchSize is the number of passages embedded per request. Default 200.
	BatchSize int
	// EmbedRate caps embedding requests per second; zero means unlimited.
	EmbedRate float64
	// MaxAttempts bounds tries per batch, including the first. Default 5.
	MaxAttempts int
	// EmbedTimeout bounds each embedding request. Default 30s.
	EmbedTimeout time.Duration
	// RetryInitialInterval seeds the exponential backoff. Default 500ms.
	RetryInitialInterval time.Duration
}

type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embedding.EmbeddingProvider
	store    contract.PassageWriter
	limiter  *rate.Limiter
	cfg      Config
	logger   logger.ILogger
}

func NewPipeline(c *chunker.Chunker, embedder embedding.EmbeddingProvider, store contract.PassageWriter, cfg Config, log logger.ILogger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.EmbedRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRate), 1)
	}

	return &Pipeline{
		chunker:  c,
		embedder: embedder,
		store:    store,
		limiter:  limiter,
		cfg:      cfg,
		logger:   log,
	}
}

// IngestDocument chunks, embeds and upserts doc, then prunes passages left
// over from a longer previous version. It returns the number of passages the
// document now has in the store. Running it twice on the same document leaves
// the store unchanged.
func (p *Pipeline) IngestDocument(ctx context.Context, doc Document) (int, error) {
	passages := p.buildPassages(doc)

	for start := 0; start < len(passages); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		if err := p.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrIngestionFailure, doc.SourcePath, err)
		}

		if err := p.embedBatch(ctx, doc.SourcePath, batch); err != nil {
			return 0, fmt.Errorf("%w: %s: embed passages %d-%d: %v", ErrIngestionFailure, doc.SourcePath, start, end-1, err)
		}

		if err := p.upsertBatch(ctx, batch); err != nil {
			return 0, fmt.Errorf("%w: %s: store passages %d-%d: %v", ErrIngestionFailure, doc.SourcePath, start, end-1, err)
		}

		p.logger.Debug(module, "Stored batch", map[string]interface{}{
			"source": doc.SourcePath,
			"from":   start,
			"to":     end - 1,
		})
	}

	removed, err := retry(ctx, p.cfg, "prune", p.logger, func() (int64, error) {
		n, err := p.store.PruneSource(ctx, doc.SourcePath, len(passages))
		return n, retryableStore(err)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: prune stale passages: %v", ErrIngestionFailure, doc.SourcePath, err)
	}
	if removed > 0 {
		p.logger.Info(module, "Pruned stale passages", map[string]interface{}{
			"source":  doc.SourcePath,
			"removed": removed,
		})
	}

	return len(passages), nil
}

func (p *Pipeline) buildPassages(doc Document) []*entity.Passage {
	spans := p.chunker.Split(doc.Text)
	passages := make([]*entity.Passage, len(spans))
	for i, span := range spans {
		passages[i] = &entity.Passage{
			Id:         entity.NewPassageID(doc.SourcePath, span.Index),
			SourcePath: doc.SourcePath,
			ChunkIndex: span.Index,
			Start:      span.Start,
			End:        span.End,
			Text:       span.Text,
			Metadata: map[string]string{
				"source":      doc.SourcePath,
				"chunk_index": strconv.Itoa(span.Index),
				"start":       strconv.Itoa(span.Start),
				"end":         strconv.Itoa(span.End),
			},
		}
	}
	return passages
}

func (p *Pipeline) embedBatch(ctx context.Context, source string, batch []*entity.Passage) error {
	texts := make([]string, len(batch))
	for i, passage := range batch {
		texts[i] = passage.Text
	}

	vectors, err := retry(ctx, p.cfg, "embed", p.logger, func() ([][]float32, error) {
		embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
		defer cancel()

		v, err := p.embedder.GenerateBatch(embedCtx, texts)
		if err != nil && !embedding.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d passages of %s", len(vectors), len(batch), source)
	}

	for i := range batch {
		batch[i].Embedding = vectors[i]
	}
	return nil
}

func (p *Pipeline) upsertBatch(ctx context.Context, batch []*entity.Passage) error {
	_, err := retry(ctx, p.cfg, "upsert", p.logger, func() (struct{}, error) {
		return struct{}{}, retryableStore(p.store.Upsert(ctx, batch))
	})
	return err
}

// retryableStore marks everything except an unreachable store as permanent.
func retryableStore(err error) error {
	if err == nil || errors.Is(err, contract.ErrStoreUnavailable) {
		return err
	}
	return backoff.Permanent(err)
}

func retry[T any](ctx context.Context, cfg Config, op string, log logger.ILogger, fn backoff.Operation[T]) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryInitialInterval

	return backoff.Retry(ctx, fn,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn(module, "Retrying "+op, map[string]interface{}{
				"error": err.Error(),
				"wait":  wait.String(),
			})
		}),
	)
}
