package contract

import (
	"context"
	"errors"

	"docubot-be/internal/entity"
)

var (
	// ErrStoreUnavailable wraps any failure to reach or query the vector store.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrInvalidK         = errors.New("k must be at least 1")
)

// ScoredPassage wraps Passage with its cosine similarity to the query
type ScoredPassage struct {
	Passage    *entity.Passage
	Similarity float64 // 1.0 = identical direction
}

type PassageReader interface {
	// Query returns up to k passages nearest to vector, most similar first.
	// Fewer than k come back only when the store holds fewer than k.
	Query(ctx context.Context, vector []float32, k int) ([]*ScoredPassage, error)
	Count(ctx context.Context) (int64, error)
}

type PassageWriter interface {
	// Upsert inserts passages or overwrites the ones whose id already exists.
	Upsert(ctx context.Context, passages []*entity.Passage) error
	// PruneSource deletes the passages of sourcePath with chunk index >= keep
	// and returns how many were removed.
	PruneSource(ctx context.Context, sourcePath string, keep int) (int64, error)
}

type PassageRepository interface {
	PassageReader
	PassageWriter
}
