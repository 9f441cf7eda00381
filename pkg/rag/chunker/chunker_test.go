package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, cfg Config) *Chunker {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero size", cfg: Config{ChunkSize: 0}},
		{name: "negative overlap", cfg: Config{ChunkSize: 10, ChunkOverlap: -1}},
		{name: "overlap equals size", cfg: Config{ChunkSize: 10, ChunkOverlap: 10}},
		{name: "overlap above size", cfg: Config{ChunkSize: 10, ChunkOverlap: 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 50, ChunkOverlap: 10})

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\n\t  "))
}

func TestSplitShortTextIsOnePassage(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 50, ChunkOverlap: 10})

	spans := c.Split("The sky is blue.")

	require.Len(t, spans, 1)
	assert.Equal(t, Span{Index: 0, Start: 0, End: 16, Text: "The sky is blue."}, spans[0])
}

func TestSplitHardCutWithoutBreaks(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 50, ChunkOverlap: 10})

	spans := c.Split(strings.Repeat("a", 120))

	require.Len(t, spans, 3)
	assert.Equal(t, [2]int{0, 50}, [2]int{spans[0].Start, spans[0].End})
	assert.Equal(t, [2]int{40, 90}, [2]int{spans[1].Start, spans[1].End})
	assert.Equal(t, [2]int{80, 120}, [2]int{spans[2].Start, spans[2].End})
}

func TestSplitPrefersSentenceEnd(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 50, ChunkOverlap: 5, BoundaryWindow: 10})
	text := "Alpha beta gamma delta epsilon zeta eta theta. Iota kappa lambda mu nu xi omicron pi rho sigma."

	spans := c.Split(text)

	require.NotEmpty(t, spans)
	assert.Equal(t, "Alpha beta gamma delta epsilon zeta eta theta. ", spans[0].Text)
	assert.Equal(t, 42, spans[1].Start)
}

func TestSplitPrefersParagraphOverSentence(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 50, ChunkOverlap: 0, BoundaryWindow: 15})
	text := strings.Repeat("x", 38) + ". yy\n\n" + strings.Repeat("z", 60)

	spans := c.Split(text)

	require.NotEmpty(t, spans)
	assert.Equal(t, 44, spans[0].End)
	assert.True(t, strings.HasSuffix(spans[0].Text, "\n\n"))
}

func TestSplitNeverExceedsChunkSize(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 64, ChunkOverlap: 16})

	for _, span := range c.Split(sampleDocument()) {
		assert.LessOrEqual(t, len([]rune(span.Text)), 64)
		assert.Equal(t, span.End-span.Start, len([]rune(span.Text)))
	}
}

func TestSplitCoversEveryCharacter(t *testing.T) {
	configs := []Config{
		{ChunkSize: 1, ChunkOverlap: 0},
		{ChunkSize: 7, ChunkOverlap: 3},
		{ChunkSize: 40, ChunkOverlap: 0},
		{ChunkSize: 40, ChunkOverlap: 39},
		{ChunkSize: 100, ChunkOverlap: 20, BoundaryWindow: 30},
		{ChunkSize: 1000, ChunkOverlap: 200},
	}
	docs := []string{
		sampleDocument(),
		"héllo wörld. ünïcode täxt\n\nnext paragraph… with 日本語の文。もう一つ！",
		strings.Repeat("word ", 300),
	}

	for _, cfg := range configs {
		c := mustNew(t, cfg)
		for _, doc := range docs {
			runes := []rune(doc)
			covered := make([]bool, len(runes))

			spans := c.Split(doc)
			for i, span := range spans {
				assert.Equal(t, i, span.Index)
				assert.Equal(t, string(runes[span.Start:span.End]), span.Text)
				for p := span.Start; p < span.End; p++ {
					covered[p] = true
				}
				if i > 0 {
					prev := spans[i-1]
					assert.Greater(t, span.Start, prev.Start, "spans must advance")
					assert.LessOrEqual(t, prev.End-span.Start, cfg.ChunkOverlap)
					assert.LessOrEqual(t, span.Start, prev.End, "gap between spans %d and %d", i-1, i)
				}
			}

			for p, r := range runes {
				assert.Truef(t, covered[p], "rune %d (%q) not covered with %+v", p, r, cfg)
			}
		}
	}
}

func TestSplitFoldsWhitespaceRuns(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want [][2]int
	}{
		{name: "inner run", doc: "ab" + strings.Repeat(" ", 12) + "cd", want: [][2]int{{0, 14}, {14, 16}}},
		{name: "leading run", doc: strings.Repeat(" ", 12) + "abcd", want: [][2]int{{0, 15}, {15, 16}}},
		{name: "trailing run", doc: "abcd" + strings.Repeat(" ", 12), want: [][2]int{{0, 16}}},
	}

	c := mustNew(t, Config{ChunkSize: 5, ChunkOverlap: 0, BoundaryWindow: 1})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runes := []rune(tt.doc)
			spans := c.Split(tt.doc)

			var got [][2]int
			for i, span := range spans {
				got = append(got, [2]int{span.Start, span.End})
				assert.Equal(t, string(runes[span.Start:span.End]), span.Text)
				assert.NotEmpty(t, strings.TrimSpace(span.Text))
				if span.End-span.Start > 5 {
					extra := strings.TrimSpace(span.Text)
					assert.LessOrEqual(t, len([]rune(extra)), 5, "span %d grew by more than whitespace", i)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	c := mustNew(t, Config{ChunkSize: 80, ChunkOverlap: 20})
	doc := sampleDocument()

	assert.Equal(t, c.Split(doc), c.Split(doc))
}

func sampleDocument() string {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("Goroutines are lightweight threads managed by the Go runtime. ")
		b.WriteString("Channels let them communicate! Do they share memory? No.\n")
		if i%3 == 2 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
