package implementation

import (
	"context"
	"fmt"

	"docubot-be/internal/entity"
	"docubot-be/internal/mapper"
	"docubot-be/internal/model"
	"docubot-be/internal/repository/contract"
	"docubot-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 100

// Re-ingesting a passage rewrites everything but its id and created_at.
var upsertColumns = []string{
	"source_path", "chunk_index", "start_offset", "end_offset",
	"content", "embedding", "metadata", "updated_at",
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}
}

type PassageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PassageMapper
}

func NewPassageRepository(db *gorm.DB) contract.PassageRepository {
	return &PassageRepositoryImpl{
		db:     db,
		mapper: mapper.NewPassageMapper(),
	}
}

func (r *PassageRepositoryImpl) Upsert(ctx context.Context, passages []*entity.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	models := r.mapper.ToModels(passages)

	err := r.db.WithContext(ctx).
		Clauses(upsertClause()).
		CreateInBatches(models, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("%w: upsert %d passages: %v", contract.ErrStoreUnavailable, len(passages), err)
	}
	return nil
}

func (r *PassageRepositoryImpl) PruneSource(ctx context.Context, sourcePath string, keep int) (int64, error) {
	query := specification.Apply(r.db.WithContext(ctx),
		specification.BySourcePath{Path: sourcePath},
		specification.ChunkIndexAtLeast{Index: keep},
	)
	res := query.Delete(&model.Passage{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: prune %s: %v", contract.ErrStoreUnavailable, sourcePath, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PassageRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Passage{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count: %v", contract.ErrStoreUnavailable, err)
	}
	return count, nil
}

// Query ranks by pgvector cosine distance; similarity is 1 - distance.
func (r *PassageRepositoryImpl) Query(ctx context.Context, vector []float32, k int) ([]*contract.ScoredPassage, error) {
	if k < 1 {
		return nil, contract.ErrInvalidK
	}

	type result struct {
		model.Passage
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	err := r.db.WithContext(ctx).
		Table(model.Passage{}.TableName()).
		Select("passages.*, 1 - (embedding <=> ?) AS similarity", queryVector).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{queryVector}}}).
		Order("id ASC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", contract.ErrStoreUnavailable, err)
	}

	scored := make([]*contract.ScoredPassage, len(results))
	for i := range results {
		scored[i] = &contract.ScoredPassage{
			Passage:    r.mapper.ToEntity(&results[i].Passage),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
