package prompt

import (
	"strings"
	"testing"

	"docubot-be/internal/entity"
	"docubot-be/internal/repository/contract"
	"docubot-be/pkg/rag/search"

	"github.com/stretchr/testify/assert"
)

func scored(source, text string, sim float64) *contract.ScoredPassage {
	return &contract.ScoredPassage{
		Passage:    &entity.Passage{Id: entity.NewPassageID(source, 0), SourcePath: source, Text: text},
		Similarity: sim,
	}
}

func TestAssembleGroundedPrompt(t *testing.T) {
	rc := &search.RetrievedContext{Passages: []*contract.ScoredPassage{
		scored("sky.txt", "The sky is blue.", 0.9),
		scored("sun.txt", "The sun is a star.", 0.4),
	}}
	question := "What color is the sky?"

	p := Assemble(question, rc)

	assert.True(t, p.Grounded)
	assert.Equal(t, []string{"sky.txt", "sun.txt"}, p.Sources)
	assert.Contains(t, p.Text, question)
	assert.Contains(t, p.Text, FallbackAnswer)
	assert.Contains(t, p.Text, "[Passage 1 | sky.txt]\nThe sky is blue.")

	sky := strings.Index(p.Text, "The sky is blue.")
	sun := strings.Index(p.Text, "The sun is a star.")
	q := strings.LastIndex(p.Text, question)
	assert.True(t, sky < sun, "passages keep their order")
	assert.True(t, sun < q, "question comes after the context")
	assert.True(t, strings.HasSuffix(p.Text, "Answer:"))
}

func TestAssembleWithoutContext(t *testing.T) {
	for _, rc := range []*search.RetrievedContext{nil, {}} {
		p := Assemble("What is the capital of France?", rc)

		assert.False(t, p.Grounded)
		assert.Empty(t, p.Sources)
		assert.Contains(t, p.Text, "No relevant documentation was found")
		assert.Contains(t, p.Text, "Reply with exactly: "+FallbackAnswer)
		assert.NotContains(t, p.Text, "[Passage")
	}
}

func TestAssembleKeepsQuestionVerbatim(t *testing.T) {
	question := "  How do I use `<context>` tags?\nAnd ünïcode?  "

	p := Assemble(question, &search.RetrievedContext{})

	assert.Contains(t, p.Text, "<question>\n"+question+"\n</question>")
}

func TestAssembleIsDeterministic(t *testing.T) {
	rc := &search.RetrievedContext{Passages: []*contract.ScoredPassage{scored("a.txt", "alpha", 1)}}

	assert.Equal(t, Assemble("q", rc), Assemble("q", rc))
}
