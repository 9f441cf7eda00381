package factory

import (
	"errors"
	"fmt"
	"strings"

	"docubot-be/pkg/llm"
	"docubot-be/pkg/llm/ollama"
)

const ProviderOllama = "ollama"

var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	Temperature float64
}

// NewLLMProvider builds the generation backend named by cfg.Provider.
// An empty name means Ollama.
func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("LLM model name is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama, "":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
