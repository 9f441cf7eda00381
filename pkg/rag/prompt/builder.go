package prompt

import (
	"fmt"
	"strings"

	"docubot-be/pkg/rag/search"
)

// FallbackAnswer is the exact reply the model is told to give when the
// documentation does not cover the question.
const FallbackAnswer = "I do not have that information in my documentation."

// Prompt is the model input for one question. Grounded is false when no
// documentation was retrieved; callers should use it instead of inspecting
// the generated text.
type Prompt struct {
	Text     string
	Grounded bool
	Sources  []string
}

// Assemble builds the prompt for question from rc. Passages appear in the
// order given, and the question is embedded verbatim.
func Assemble(question string, rc *search.RetrievedContext) Prompt {
	var prompt strings.Builder

	writeInstructions(&prompt)
	writeContext(&prompt, rc)
	writeQuestion(&prompt, question)

	return Prompt{
		Text:     prompt.String(),
		Grounded: rc.Grounded(),
		Sources:  rc.Sources(),
	}
}

func writeInstructions(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a documentation assistant. Answer the question using only the documentation context below.\n")
	prompt.WriteString("Do not use outside knowledge and do not guess.\n")
	prompt.WriteString("If the context does not contain the answer, reply with exactly this sentence and nothing else:\n")
	prompt.WriteString(FallbackAnswer)
	prompt.WriteString("\n</task>\n\n")
}

func writeContext(prompt *strings.Builder, rc *search.RetrievedContext) {
	prompt.WriteString("<context>\n")
	if !rc.Grounded() {
		prompt.WriteString("No relevant documentation was found for this question.\n")
		prompt.WriteString("Reply with exactly: ")
		prompt.WriteString(FallbackAnswer)
		prompt.WriteString("\n</context>\n\n")
		return
	}

	for i, p := range rc.Passages {
		fmt.Fprintf(prompt, "[Passage %d | %s]\n", i+1, p.Passage.SourcePath)
		prompt.WriteString(strings.TrimSpace(p.Passage.Text))
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</context>\n\n")
}

func writeQuestion(prompt *strings.Builder, question string) {
	prompt.WriteString("<question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</question>\n\n")
	prompt.WriteString("Answer:")
}
