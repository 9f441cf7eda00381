package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// passageNamespace scopes passage ids so they cannot collide with other UUIDv5 users.
var passageNamespace = uuid.MustParse("6f1c0a3e-4b8d-5e27-9a61-2d0f3c8b7e45")

// Passage is one indexed chunk of a source document.
type Passage struct {
	Id         uuid.UUID
	SourcePath string
	ChunkIndex int
	// Start and End are rune offsets into the source text, End exclusive.
	Start     int
	End       int
	Text      string
	Embedding []float32
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NewPassageID derives the stable id of the index-th passage of sourcePath.
// Re-ingesting the same document therefore addresses the same rows.
func NewPassageID(sourcePath string, index int) uuid.UUID {
	return uuid.NewSHA1(passageNamespace, []byte(fmt.Sprintf("%s#%d", sourcePath, index)))
}
