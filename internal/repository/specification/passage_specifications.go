package specification

import "gorm.io/gorm"

type BySourcePath struct {
	Path string
}

func (s BySourcePath) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_path = ?", s.Path)
}

// ChunkIndexAtLeast selects the tail of a document from Index onwards
type ChunkIndexAtLeast struct {
	Index int
}

func (s ChunkIndexAtLeast) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chunk_index >= ?", s.Index)
}
