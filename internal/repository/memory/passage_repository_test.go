package memory

import (
	"context"
	"testing"

	"docubot-be/internal/entity"
	"docubot-be/internal/repository/contract"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *PassageRepository {
	t.Helper()
	repo, err := NewPassageRepository(chromem.NewDB(), "test")
	require.NoError(t, err)
	return repo
}

func passage(source string, index int, text string, vec ...float32) *entity.Passage {
	return &entity.Passage{
		Id:         entity.NewPassageID(source, index),
		SourcePath: source,
		ChunkIndex: index,
		Start:      index * 10,
		End:        index*10 + len(text),
		Text:       text,
		Embedding:  vec,
	}
}

func TestQueryOrdersBySimilarity(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []*entity.Passage{
		passage("sky.txt", 0, "The sky is blue.", 1, 0, 0),
		passage("grass.txt", 0, "Grass is green.", 0, 1, 0),
		passage("sea.txt", 0, "The sea is deep.", 0.8, 0.2, 0),
	}))

	got, err := repo.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "The sky is blue.", got[0].Passage.Text)
	assert.Equal(t, "sky.txt", got[0].Passage.SourcePath)
	assert.Equal(t, "sea.txt", got[1].Passage.SourcePath)
	assert.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-5)
}

func TestQueryReturnsAllWhenStoreIsSmallerThanK(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, []*entity.Passage{passage("a.txt", 0, "a", 1, 0)}))

	got, err := repo.Query(ctx, []float32{1, 0}, 5)

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestQueryEmptyStore(t *testing.T) {
	repo := newRepo(t)

	got, err := repo.Query(context.Background(), []float32{1, 0}, 3)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryRejectsNonPositiveK(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Query(context.Background(), []float32{1, 0}, 0)

	assert.ErrorIs(t, err, contract.ErrInvalidK)
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	batch := []*entity.Passage{
		passage("doc.txt", 0, "first", 1, 0),
		passage("doc.txt", 1, "second", 0, 1),
	}

	require.NoError(t, repo.Upsert(ctx, batch))
	require.NoError(t, repo.Upsert(ctx, batch))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// overwrite keeps the id and replaces the content
	require.NoError(t, repo.Upsert(ctx, []*entity.Passage{passage("doc.txt", 0, "first, revised", 1, 0)}))
	got, err := repo.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first, revised", got[0].Passage.Text)
	assert.Equal(t, entity.NewPassageID("doc.txt", 0), got[0].Passage.Id)
}

func TestPruneSourceRemovesStaleTail(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, []*entity.Passage{
		passage("doc.txt", 0, "zero", 1, 0),
		passage("doc.txt", 1, "one", 0, 1),
		passage("doc.txt", 2, "two", 1, 1),
		passage("other.txt", 0, "other", 1, 0),
	}))

	removed, err := repo.PruneSource(ctx, "doc.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	removed, err = repo.PruneSource(ctx, "doc.txt", 1)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
