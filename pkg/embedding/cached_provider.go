package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// VectorCache stores question embeddings keyed by an opaque string.
// Implementations must be safe for concurrent use.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// CachedProvider decorates a provider so that repeated single-text lookups
// (typically user questions) skip the model. Batches go straight through.
type CachedProvider struct {
	next  EmbeddingProvider
	cache VectorCache
}

var _ EmbeddingProvider = (*CachedProvider)(nil)

func NewCachedProvider(next EmbeddingProvider, c VectorCache) *CachedProvider {
	return &CachedProvider{next: next, cache: c}
}

func (p *CachedProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(p.next.ModelName(), text)
	if vec, ok := p.cache.Get(ctx, key); ok && len(vec) == p.next.Dimensions() {
		return vec, nil
	}

	vec, err := p.next.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, key, vec)
	return vec, nil
}

func (p *CachedProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.next.GenerateBatch(ctx, texts)
}

func (p *CachedProvider) Dimensions() int {
	return p.next.Dimensions()
}

func (p *CachedProvider) ModelName() string {
	return p.next.ModelName()
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// MemoryCache keeps vectors in process.
type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	// purge expired items every 10 minutes
	return &MemoryCache{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	if x, found := m.cache.Get(key); found {
		return x.([]float32), true
	}
	return nil, false
}

func (m *MemoryCache) Set(_ context.Context, key string, vec []float32) {
	m.cache.Set(key, vec, cache.DefaultExpiration)
}

// RedisCache shares vectors between server instances. Redis errors are
// treated as misses so the cache never fails a request.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (r *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = r.rdb.Set(ctx, key, raw, r.ttl).Err()
}
