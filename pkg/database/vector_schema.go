package database

import (
	"fmt"

	"gorm.io/gorm"
)

// VectorSchemaStatements returns the SQL that pins the passages table to a
// fixed embedding width and indexes it for cosine search. Each statement is
// idempotent.
func VectorSchemaStatements(dimensions int) []string {
	return []string{
		fmt.Sprintf(`ALTER TABLE passages ALTER COLUMN embedding TYPE vector(%d);`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_passages_embedding_hnsw ON passages USING hnsw (embedding vector_cosine_ops);`,
	}
}

// EnableVectorExtension installs pgvector if the role is allowed to.
func EnableVectorExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error
}

// MigrateVectorSchema creates the tables for models that do not exist yet,
// then applies the vector column width and index. Existing tables are left to
// the ALTER statements so AutoMigrate never widens the column back to an
// untyped vector.
func MigrateVectorSchema(db *gorm.DB, dimensions int, models ...interface{}) error {
	if dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}
	if err := EnableVectorExtension(db); err != nil {
		return fmt.Errorf("enable vector extension: %w", err)
	}
	for _, m := range models {
		if db.Migrator().HasTable(m) {
			continue
		}
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}
	for _, stmt := range VectorSchemaStatements(dimensions) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	return nil
}
