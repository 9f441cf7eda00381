package embedding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingProvider) Generate(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := p.Generate(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *countingProvider) Dimensions() int   { return 2 }
func (p *countingProvider) ModelName() string { return "counting" }

func TestCachedProviderReusesQuestionEmbedding(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, NewMemoryCache(time.Minute))
	ctx := context.Background()

	first, err := p.Generate(ctx, "what colour is the sky?")
	require.NoError(t, err)
	second, err := p.Generate(ctx, "what colour is the sky?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = p.Generate(ctx, "another question")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: ErrServiceUnavailable}
	p := NewCachedProvider(inner, NewMemoryCache(time.Minute))
	ctx := context.Background()

	_, err := p.Generate(ctx, "q")
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	inner.err = nil
	_, err = p.Generate(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProviderBatchBypassesCache(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, NewMemoryCache(time.Minute))

	_, err := p.GenerateBatch(context.Background(), []string{"a", "a"})
	require.NoError(t, err)
	_, err = p.GenerateBatch(context.Background(), []string{"a", "a"})
	require.NoError(t, err)

	assert.Equal(t, 4, inner.calls)
	assert.Equal(t, 2, p.Dimensions())
	assert.Equal(t, "counting", p.ModelName())
}

func TestCacheKeyDependsOnModel(t *testing.T) {
	assert.NotEqual(t, cacheKey("a", "text"), cacheKey("b", "text"))
	assert.Equal(t, cacheKey("a", "text"), cacheKey("a", "text"))
}
