package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/repository/contract"
	"docubot-be/pkg/embedding"
)

const module = "Retriever"

// ErrRetrievalUnavailable means the question could not be searched at all.
// It is never returned for a search that simply found nothing.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// RetrievedContext holds the passages found for one question, most similar
// first. Ties are broken by passage id so equal inputs give equal order.
type RetrievedContext struct {
	Passages []*contract.ScoredPassage
}

// Grounded reports whether any documentation was found.
func (rc *RetrievedContext) Grounded() bool {
	return rc != nil && len(rc.Passages) > 0
}

// Sources lists the distinct source paths in passage order.
func (rc *RetrievedContext) Sources() []string {
	if rc == nil {
		return nil
	}
	seen := make(map[string]bool, len(rc.Passages))
	sources := make([]string, 0, len(rc.Passages))
	for _, p := range rc.Passages {
		if seen[p.Passage.SourcePath] {
			continue
		}
		seen[p.Passage.SourcePath] = true
		sources = append(sources, p.Passage.SourcePath)
	}
	return sources
}

type Config struct {
	DefaultK     int
	EmbedTimeout time.Duration
	StoreTimeout time.Duration
}

// Retriever embeds a question and returns its nearest passages.
type Retriever struct {
	embedder embedding.EmbeddingProvider
	store    contract.PassageReader
	cfg      Config
	logger   logger.ILogger
}

func NewRetriever(embedder embedding.EmbeddingProvider, store contract.PassageReader, cfg Config, log logger.ILogger) *Retriever {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 5
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		logger:   log,
	}
}

// Retrieve returns at most k passages for question; k <= 0 selects the
// configured default. Any embedder or store failure yields an error wrapping
// ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (*RetrievedContext, error) {
	if k <= 0 {
		k = r.cfg.DefaultK
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.EmbedTimeout)
	vector, err := r.embedder.Generate(embedCtx, question)
	cancel()
	if err != nil {
		r.logger.Error(module, "Question embedding failed", map[string]interface{}{"error": err})
		return nil, fmt.Errorf("%w: embed question: %v", ErrRetrievalUnavailable, err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	scored, err := r.store.Query(storeCtx, vector, k)
	cancel()
	if err != nil {
		r.logger.Error(module, "Vector search failed", map[string]interface{}{"error": err})
		return nil, fmt.Errorf("%w: query store: %v", ErrRetrievalUnavailable, err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Passage.Id.String() < scored[j].Passage.Id.String()
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	r.logger.Debug(module, "Retrieved passages", map[string]interface{}{
		"k":     k,
		"found": len(scored),
	})

	return &RetrievedContext{Passages: scored}, nil
}
