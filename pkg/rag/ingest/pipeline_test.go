package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"

	"docubot-be/internal/entity"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/repository/contract"
	"docubot-be/internal/repository/memory"
	"docubot-be/pkg/embedding"
	"docubot-be/pkg/rag/chunker"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder maps text to a deterministic 8-dim vector.
type hashEmbedder struct {
	mu       sync.Mutex
	batches  []int
	failures int
	err      error
}

func (e *hashEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	v, err := e.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *hashEmbedder) GenerateBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failures > 0 {
		e.failures--
		return nil, e.err
	}
	e.batches = append(e.batches, len(texts))
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text)
	}
	return out, nil
}

func (e *hashEmbedder) Dimensions() int   { return 8 }
func (e *hashEmbedder) ModelName() string { return "hash" }

func hashVector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum64()
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32((sum>>(i*8))&0xff) + 1
	}
	return vec
}

type failingStore struct {
	contract.PassageWriter
	err error
}

func (s failingStore) Upsert(context.Context, []*entity.Passage) error { return s.err }

func newPipeline(t *testing.T, e embedding.EmbeddingProvider, store contract.PassageWriter, batch int) *Pipeline {
	t.Helper()
	c, err := chunker.New(chunker.Config{ChunkSize: 40, ChunkOverlap: 8})
	require.NoError(t, err)
	return NewPipeline(c, e, store, Config{
		BatchSize:            batch,
		MaxAttempts:          3,
		RetryInitialInterval: time.Millisecond,
	}, logger.NewNopLogger())
}

func newStore(t *testing.T) *memory.PassageRepository {
	t.Helper()
	repo, err := memory.NewPassageRepository(chromem.NewDB(), "ingest")
	require.NoError(t, err)
	return repo
}

func longText() string {
	return strings.Repeat("Goroutines are cheap. Channels connect them.\n", 10)
}

func TestIngestDocumentStoresEveryPassageInBatches(t *testing.T) {
	store := newStore(t)
	emb := &hashEmbedder{}
	p := newPipeline(t, emb, store, 3)

	n, err := p.IngestDocument(context.Background(), Document{SourcePath: "go/intro.txt", Text: longText()})

	require.NoError(t, err)
	require.Greater(t, n, 3)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
	for _, size := range emb.batches {
		assert.LessOrEqual(t, size, 3)
	}
}

func TestIngestDocumentIsIdempotent(t *testing.T) {
	store := newStore(t)
	p := newPipeline(t, &hashEmbedder{}, store, 200)
	doc := Document{SourcePath: "go/intro.txt", Text: longText()}

	first, err := p.IngestDocument(context.Background(), doc)
	require.NoError(t, err)
	second, err := p.IngestDocument(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(first), count)
}

func TestIngestDocumentPrunesShrunkenDocument(t *testing.T) {
	store := newStore(t)
	p := newPipeline(t, &hashEmbedder{}, store, 200)
	ctx := context.Background()

	_, err := p.IngestDocument(ctx, Document{SourcePath: "doc.txt", Text: longText()})
	require.NoError(t, err)

	n, err := p.IngestDocument(ctx, Document{SourcePath: "doc.txt", Text: "Now it is short."})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestDocumentEmptyTextStoresNothing(t *testing.T) {
	store := newStore(t)
	p := newPipeline(t, &hashEmbedder{}, store, 200)

	n, err := p.IngestDocument(context.Background(), Document{SourcePath: "blank.txt", Text: " \n\n "})

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestDocumentRetriesTransientEmbedFailures(t *testing.T) {
	store := newStore(t)
	emb := &hashEmbedder{failures: 2, err: embedding.ErrServiceUnavailable}
	p := newPipeline(t, emb, store, 200)

	n, err := p.IngestDocument(context.Background(), Document{SourcePath: "doc.txt", Text: "The sky is blue."})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestDocumentGivesUpAfterMaxAttempts(t *testing.T) {
	emb := &hashEmbedder{failures: 10, err: embedding.ErrTimeout}
	p := newPipeline(t, emb, newStore(t), 200)

	_, err := p.IngestDocument(context.Background(), Document{SourcePath: "doc.txt", Text: "The sky is blue."})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIngestionFailure)
	assert.Equal(t, 7, emb.failures, "three attempts were made")
}

func TestIngestDocumentDoesNotRetryPermanentErrors(t *testing.T) {
	emb := &hashEmbedder{failures: 10, err: embedding.ErrDimensionMismatch}
	p := newPipeline(t, emb, newStore(t), 200)

	_, err := p.IngestDocument(context.Background(), Document{SourcePath: "doc.txt", Text: "The sky is blue."})

	assert.ErrorIs(t, err, ErrIngestionFailure)
	assert.Equal(t, 9, emb.failures)
}

func TestIngestDocumentReportsStoreFailure(t *testing.T) {
	store := failingStore{err: errors.New("disk full")}
	p := newPipeline(t, &hashEmbedder{}, store, 200)

	_, err := p.IngestDocument(context.Background(), Document{SourcePath: "doc.txt", Text: "The sky is blue."})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIngestionFailure)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPassageIDsAreStable(t *testing.T) {
	assert.Equal(t, entity.NewPassageID("a.txt", 0), entity.NewPassageID("a.txt", 0))
	assert.NotEqual(t, entity.NewPassageID("a.txt", 0), entity.NewPassageID("a.txt", 1))
	assert.NotEqual(t, entity.NewPassageID("a.txt", 1), entity.NewPassageID("b.txt", 1))
}
