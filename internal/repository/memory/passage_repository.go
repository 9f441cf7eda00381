package memory

import (
	"context"
	"fmt"
	"strconv"

	"docubot-be/internal/entity"
	"docubot-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

const DefaultCollection = "docs"

const (
	metaSource     = "source"
	metaChunkIndex = "chunk_index"
	metaStart      = "start"
	metaEnd        = "end"
)

// PassageRepository keeps passages in an embedded chromem-go collection,
// optionally persisted to disk.
type PassageRepository struct {
	collection *chromem.Collection
}

var _ contract.PassageRepository = (*PassageRepository)(nil)

// NewPassageRepository opens the collection in db, creating it on first use.
func NewPassageRepository(db *chromem.DB, name string) (*PassageRepository, error) {
	if name == "" {
		name = DefaultCollection
	}
	metadata := map[string]string{
		"hnsw:space": "cosine",
	}
	// embeddings are always supplied, so no embedding func is needed
	collection, err := db.GetOrCreateCollection(name, metadata, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}
	return &PassageRepository{collection: collection}, nil
}

// OpenPassageRepository opens a persistent store at path, or an in-memory one
// when path is empty.
func OpenPassageRepository(path string) (*PassageRepository, error) {
	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", contract.ErrStoreUnavailable, path, err)
		}
	}
	return NewPassageRepository(db, DefaultCollection)
}

func (r *PassageRepository) Upsert(ctx context.Context, passages []*entity.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	ids := make([]string, len(passages))
	vectors := make([][]float32, len(passages))
	metadatas := make([]map[string]string, len(passages))
	contents := make([]string, len(passages))

	for i, p := range passages {
		if len(p.Embedding) == 0 {
			return fmt.Errorf("passage %s has no embedding", p.Id)
		}
		meta := make(map[string]string, len(p.Metadata)+4)
		for k, v := range p.Metadata {
			meta[k] = v
		}
		meta[metaSource] = p.SourcePath
		meta[metaChunkIndex] = strconv.Itoa(p.ChunkIndex)
		meta[metaStart] = strconv.Itoa(p.Start)
		meta[metaEnd] = strconv.Itoa(p.End)

		ids[i] = p.Id.String()
		vectors[i] = p.Embedding
		metadatas[i] = meta
		contents[i] = p.Text
	}

	// chromem replaces documents that share an id
	if err := r.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("%w: upsert %d passages: %v", contract.ErrStoreUnavailable, len(passages), err)
	}
	return nil
}

// PruneSource walks the deterministic ids of sourcePath from keep upwards.
// Every ingest writes indexes 0..n-1 before pruning, so the stale tail is
// contiguous and the walk stops at the first missing id.
func (r *PassageRepository) PruneSource(ctx context.Context, sourcePath string, keep int) (int64, error) {
	var removed int64
	for i := keep; ; i++ {
		if err := ctx.Err(); err != nil {
			return removed, fmt.Errorf("%w: prune %s: %v", contract.ErrStoreUnavailable, sourcePath, err)
		}
		id := entity.NewPassageID(sourcePath, i).String()
		if _, err := r.collection.GetByID(ctx, id); err != nil {
			return removed, nil
		}
		if err := r.collection.Delete(ctx, nil, nil, id); err != nil {
			return removed, fmt.Errorf("%w: prune %s: %v", contract.ErrStoreUnavailable, sourcePath, err)
		}
		removed++
	}
}

func (r *PassageRepository) Count(_ context.Context) (int64, error) {
	return int64(r.collection.Count()), nil
}

func (r *PassageRepository) Query(ctx context.Context, vector []float32, k int) ([]*contract.ScoredPassage, error) {
	if k < 1 {
		return nil, contract.ErrInvalidK
	}

	// chromem rejects nResults above the collection size
	n := r.collection.Count()
	if n == 0 {
		return []*contract.ScoredPassage{}, nil
	}
	if k < n {
		n = k
	}

	results, err := r.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", contract.ErrStoreUnavailable, err)
	}

	scored := make([]*contract.ScoredPassage, 0, len(results))
	for _, res := range results {
		scored = append(scored, &contract.ScoredPassage{
			Passage:    toEntity(res.ID, res.Content, res.Embedding, res.Metadata),
			Similarity: float64(res.Similarity),
		})
	}
	return scored, nil
}

func toEntity(id, content string, embedding []float32, meta map[string]string) *entity.Passage {
	p := &entity.Passage{
		Text:      content,
		Embedding: embedding,
		Metadata:  make(map[string]string, len(meta)),
	}
	if parsed, err := uuid.Parse(id); err == nil {
		p.Id = parsed
	}
	for k, v := range meta {
		switch k {
		case metaSource:
			p.SourcePath = v
		case metaChunkIndex:
			p.ChunkIndex, _ = strconv.Atoi(v)
		case metaStart:
			p.Start, _ = strconv.Atoi(v)
		case metaEnd:
			p.End, _ = strconv.Atoi(v)
		default:
			p.Metadata[k] = v
		}
	}
	return p
}
