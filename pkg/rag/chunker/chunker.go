// Package chunker splits document text into overlapping passages that fit an
// embedding model and a prompt context window.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrInvalidConfig = errors.New("invalid chunker config")

// Config is measured in runes, not bytes.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	// BoundaryWindow is how far back from the hard cut a natural break may be
	// taken. Zero means ChunkSize/10.
	BoundaryWindow int
}

// Span is a contiguous [Start, End) rune range of the source text.
type Span struct {
	Index int
	Start int
	End   int
	Text  string
}

type Chunker struct {
	size    int
	overlap int
	window  int
}

func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, cfg.ChunkOverlap, cfg.ChunkSize)
	}

	window := cfg.BoundaryWindow
	if window <= 0 {
		window = cfg.ChunkSize / 10
	}
	if window < 1 {
		window = 1
	}
	if window > cfg.ChunkSize {
		window = cfg.ChunkSize
	}

	return &Chunker{
		size:    cfg.ChunkSize,
		overlap: cfg.ChunkOverlap,
		window:  window,
	}, nil
}

// Split returns the passages of text in order. The spans cover every rune with
// no gap and consecutive spans share up to ChunkOverlap runes. A window holding
// only whitespace is folded into its neighbour instead of becoming a passage,
// so a span can run past ChunkSize by whitespace alone.
// Calling Split again with the same text yields the same spans.
func (c *Chunker) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)

	if total <= c.size {
		return []Span{{Index: 0, Start: 0, End: total, Text: text}}
	}

	var spans []Span
	start := 0
	for start < total {
		end := start + c.size
		if end >= total {
			spans = appendSpan(spans, runes, start, total)
			break
		}

		cut := c.findBreak(runes, start, end)
		spans = appendSpan(spans, runes, start, cut)

		// cut > start+overlap, so this always moves forward
		start = cut - c.overlap
	}

	return spans
}

// findBreak picks the cut for the window starting at start whose hard limit is
// end. The cut must leave more than overlap runes so the next window advances.
func (c *Chunker) findBreak(runes []rune, start, end int) int {
	lo := end - c.window
	if floor := start + c.overlap + 1; lo < floor {
		lo = floor
	}
	if lo > end {
		return end
	}

	for _, match := range []func([]rune, int) bool{isParagraphBreak, isLineBreak, isSentenceEnd, isSpace} {
		for cut := end; cut >= lo; cut-- {
			if match(runes, cut) {
				return cut
			}
		}
	}

	return end
}

// The matchers report whether a cut right before runes[cut] lands after a
// break of that kind.

func isParagraphBreak(runes []rune, cut int) bool {
	return cut >= 2 && runes[cut-1] == '\n' && runes[cut-2] == '\n'
}

func isLineBreak(runes []rune, cut int) bool {
	return cut >= 1 && runes[cut-1] == '\n'
}

func isSentenceEnd(runes []rune, cut int) bool {
	if cut < 2 || !unicode.IsSpace(runes[cut-1]) {
		return false
	}
	switch runes[cut-2] {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isSpace(runes []rune, cut int) bool {
	return cut >= 1 && unicode.IsSpace(runes[cut-1])
}

func appendSpan(spans []Span, runes []rune, start, end int) []Span {
	text := string(runes[start:end])
	if strings.TrimSpace(text) == "" {
		if n := len(spans); n > 0 && end > spans[n-1].End {
			prev := &spans[n-1]
			prev.End = end
			prev.Text = string(runes[prev.Start:end])
		}
		return spans
	}
	// everything before the first kept window was whitespace
	if len(spans) == 0 && start > 0 {
		start = 0
		text = string(runes[:end])
	}
	return append(spans, Span{
		Index: len(spans),
		Start: start,
		End:   end,
		Text:  text,
	})
}
