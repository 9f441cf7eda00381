package mapper

import (
	"fmt"
	"time"

	"docubot-be/internal/entity"
	"docubot-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type PassageMapper struct{}

func NewPassageMapper() *PassageMapper {
	return &PassageMapper{}
}

func (m *PassageMapper) ToEntity(p *model.Passage) *entity.Passage {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]string
	if len(p.Metadata) > 0 {
		metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			metadata[k] = fmt.Sprint(v)
		}
	}

	return &entity.Passage{
		Id:         p.Id,
		SourcePath: p.SourcePath,
		ChunkIndex: p.ChunkIndex,
		Start:      p.StartOffset,
		End:        p.EndOffset,
		Text:       p.Content,
		Embedding:  p.Embedding.Slice(),
		Metadata:   metadata,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *PassageMapper) ToModel(p *entity.Passage) *model.Passage {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	var metadata datatypes.JSONMap
	if len(p.Metadata) > 0 {
		metadata = make(datatypes.JSONMap, len(p.Metadata))
		for k, v := range p.Metadata {
			metadata[k] = v
		}
	}

	return &model.Passage{
		Id:          p.Id,
		SourcePath:  p.SourcePath,
		ChunkIndex:  p.ChunkIndex,
		StartOffset: p.Start,
		EndOffset:   p.End,
		Content:     p.Text,
		Embedding:   pgvector.NewVector(p.Embedding),
		Metadata:    metadata,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *PassageMapper) ToModels(passages []*entity.Passage) []*model.Passage {
	models := make([]*model.Passage, len(passages))
	for i, p := range passages {
		models[i] = m.ToModel(p)
	}
	return models
}
