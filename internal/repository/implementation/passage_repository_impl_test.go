package implementation

import (
	"testing"

	"docubot-be/internal/entity"
	"docubot-be/internal/mapper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestUpsertClauseKeepsCreatedAt(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost dbname=docubot"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	models := mapper.NewPassageMapper().ToModels([]*entity.Passage{{
		Id:         entity.NewPassageID("sky.txt", 0),
		SourcePath: "sky.txt",
		Text:       "The sky is blue.",
		End:        16,
		Embedding:  []float32{1, 0},
	}})

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(upsertClause()).Create(models)
	})

	assert.Contains(t, sql, `ON CONFLICT ("id") DO UPDATE SET`)
	assert.Contains(t, sql, `"content"="excluded"."content"`)
	assert.Contains(t, sql, `"updated_at"="excluded"."updated_at"`)
	assert.NotContains(t, sql, `"created_at"="excluded"."created_at"`)
}
