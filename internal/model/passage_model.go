package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Passage rows are hard-deleted when a document shrinks, so there is no DeletedAt.
type Passage struct {
	Id          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	SourcePath  string            `gorm:"type:text;not null;index:idx_passages_source_chunk,priority:1"`
	ChunkIndex  int               `gorm:"not null;default:0;index:idx_passages_source_chunk,priority:2"`
	StartOffset int               `gorm:"not null;default:0"`
	EndOffset   int               `gorm:"not null;default:0"`
	Content     string            `gorm:"type:text;not null"`
	Embedding   pgvector.Vector   `gorm:"type:vector"` // dimension is fixed by cmd/migrate
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime"`
}

func (Passage) TableName() string {
	return "passages"
}
