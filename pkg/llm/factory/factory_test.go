package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{Provider: "Ollama", Model: "llama3.2", BaseURL: "http://ollama:11434"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", p.ModelName())

	p, err = NewLLMProvider(Config{Model: "llama3.2"})
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = NewLLMProvider(Config{Provider: "openai", Model: "gpt"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = NewLLMProvider(Config{Provider: ProviderOllama})
	assert.Error(t, err)
}
