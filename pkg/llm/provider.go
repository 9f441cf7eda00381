package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrIncompleteStream is reported when the backend closes the stream without
// signalling completion.
var ErrIncompleteStream = errors.New("generation stream ended before completion")

// Fragment is one piece of generated text, or a terminal error. A fragment
// carrying Err is always the last value on the channel.
type Fragment struct {
	Text string
	Err  error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Stream starts a generation and returns its fragments in order. The
	// channel is closed when generation ends; cancelling ctx stops the
	// backend request and closes the channel.
	Stream(ctx context.Context, prompt string, options ...Option) (<-chan Fragment, error)

	ModelName() string
}

// Collect drains a stream into a single string.
func Collect(ctx context.Context, p LLMProvider, prompt string, options ...Option) (string, error) {
	ch, err := p.Stream(ctx, prompt, options...)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for frag := range ch {
		if frag.Err != nil {
			return sb.String(), frag.Err
		}
		sb.WriteString(frag.Text)
	}
	return sb.String(), nil
}
