package embedding

import (
	"context"
	"errors"
)

var (
	// ErrServiceUnavailable means the embedding backend could not be reached
	// or answered with a server error. Callers may retry.
	ErrServiceUnavailable = errors.New("embedding service unavailable")

	// ErrTimeout means no response arrived within the configured wait.
	ErrTimeout = errors.New("embedding service timeout")

	// ErrDimensionMismatch means the backend returned a vector whose length
	// differs from the configured model dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EmbeddingProvider defines the interface for generating text embeddings.
// The same provider is used for passages at ingest time and for questions at
// query time so that both live in the same vector space.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	// GenerateBatch returns one vector per text, in input order.
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// IsRetryable reports whether err is a transient backend failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
}
