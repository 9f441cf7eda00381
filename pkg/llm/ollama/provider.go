package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docubot-be/pkg/llm"
)

const DefaultBaseURL = "http://localhost:11434"

type OllamaProvider struct {
	BaseURL     string
	Model       string
	Temperature float64
	Client      *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, temperature float64) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OllamaProvider{
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: temperature,
		Client: &http.Client{
			// No overall timeout: a long answer is bounded by the caller's ctx.
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 2 * time.Minute,
			},
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateChunk is one NDJSON line of a streaming /api/generate response.
type generateChunk struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) ModelName() string {
	return o.Model
}

func (o *OllamaProvider) Stream(ctx context.Context, prompt string, opts ...llm.Option) (<-chan llm.Fragment, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: o.Temperature, Model: o.Model}, opts...)

	payload := generateRequest{
		Model:  options.Model,
		Prompt: prompt,
		Stream: true,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(body))
	}

	out := make(chan llm.Fragment)
	go o.pump(ctx, resp.Body, out)
	return out, nil
}

// pump decodes NDJSON lines from body onto out until the model reports done,
// the body fails, or ctx is cancelled. It owns and closes both body and out.
func (o *OllamaProvider) pump(ctx context.Context, body io.ReadCloser, out chan<- llm.Fragment) {
	defer close(out)
	defer body.Close()

	send := func(f llm.Fragment) bool {
		select {
		case out <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			send(llm.Fragment{Err: fmt.Errorf("decode stream chunk: %w", err)})
			return
		}
		if chunk.Error != "" {
			send(llm.Fragment{Err: fmt.Errorf("ollama: %s", chunk.Error)})
			return
		}
		if chunk.Response != "" {
			if !send(llm.Fragment{Text: chunk.Response}) {
				return
			}
		}
		if chunk.Done {
			return
		}
	}

	err := scanner.Err()
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = llm.ErrIncompleteStream
	} else {
		err = fmt.Errorf("%w: %v", llm.ErrIncompleteStream, err)
	}
	send(llm.Fragment{Err: err})
}
