package specification

import (
	"testing"

	"docubot-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost dbname=docubot"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestApplyChainsPredicates(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return Apply(tx.Model(&model.Passage{}),
			BySourcePath{Path: "guides/setup.md"},
			nil,
			ChunkIndexAtLeast{Index: 4},
		).Delete(&model.Passage{})
	})

	assert.Contains(t, sql, `source_path = 'guides/setup.md'`)
	assert.Contains(t, sql, "chunk_index >= 4")
}
