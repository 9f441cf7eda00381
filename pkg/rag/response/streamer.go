package response

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"docubot-be/internal/pkg/logger"
	"docubot-be/pkg/llm"

	"golang.org/x/sync/semaphore"
)

const module = "Streamer"

var (
	// ErrGenerationFailure marks a stream that ended without completing.
	// Fragments delivered before the failure stay delivered.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrGenerationBusy means every generation slot stayed taken for the
	// whole wait period.
	ErrGenerationBusy = errors.New("generation capacity exhausted")

	ErrIdleTimeout = errors.New("model stopped producing output")
)

type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sink receives fragments as they arrive. An error means the consumer is
// gone and generation should stop.
type Sink interface {
	WriteFragment(text string) error
}

type SinkFunc func(text string) error

func (f SinkFunc) WriteFragment(text string) error {
	return f(text)
}

// Outcome is the terminal record of one stream.
type Outcome struct {
	State     State
	Fragments int
	Text      string
	Err       error
}

// Slot is a reserved generation. Release is safe to call more than once.
type Slot struct {
	once    sync.Once
	release func()
}

func (s *Slot) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}

type Config struct {
	MaxInflight       int
	SlotWaitTimeout   time.Duration
	GenerationTimeout time.Duration
	IdleTimeout       time.Duration
	// MaxTokens caps the answer length; zero leaves it to the model.
	MaxTokens int
}

type Streamer struct {
	llm    llm.LLMProvider
	sem    *semaphore.Weighted
	cfg    Config
	logger logger.ILogger
}

func NewStreamer(provider llm.LLMProvider, cfg Config, log logger.ILogger) *Streamer {
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 2
	}
	if cfg.SlotWaitTimeout <= 0 {
		cfg.SlotWaitTimeout = 30 * time.Second
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 3 * time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &Streamer{
		llm:    provider,
		sem:    semaphore.NewWeighted(int64(cfg.MaxInflight)),
		cfg:    cfg,
		logger: log,
	}
}

// Reserve waits up to SlotWaitTimeout for a free generation slot.
func (s *Streamer) Reserve(ctx context.Context) (*Slot, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.SlotWaitTimeout)
	defer cancel()

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn(module, "No generation slot available", map[string]interface{}{
			"max_inflight": s.cfg.MaxInflight,
			"waited":       s.cfg.SlotWaitTimeout.String(),
		})
		return nil, ErrGenerationBusy
	}
	return &Slot{release: func() { s.sem.Release(1) }}, nil
}

// Stream generates an answer for prompt and forwards every fragment to sink
// in arrival order. It releases slot before returning. The returned Outcome
// is either StateCompleted or StateFailed.
func (s *Streamer) Stream(ctx context.Context, slot *Slot, prompt string, sink Sink) *Outcome {
	defer slot.Release()

	out := &Outcome{State: StateIdle}
	var text strings.Builder

	fail := func(cause error) *Outcome {
		out.State = StateFailed
		out.Text = text.String()
		out.Err = fmt.Errorf("%w: %w", ErrGenerationFailure, cause)
		s.logger.Warn(module, "Generation failed", map[string]interface{}{
			"error":     cause.Error(),
			"fragments": out.Fragments,
		})
		return out
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	var opts []llm.Option
	if s.cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.cfg.MaxTokens))
	}
	fragments, err := s.llm.Stream(genCtx, prompt, opts...)
	if err != nil {
		return fail(err)
	}
	out.State = StateStreaming

	// stop the producer and let it drain whatever it was about to send
	abandon := func() {
		cancel()
		go func() {
			for range fragments {
			}
		}()
	}

	idle := time.NewTimer(s.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case frag, ok := <-fragments:
			if !ok {
				if err := genCtx.Err(); err != nil {
					return fail(err)
				}
				out.State = StateCompleted
				out.Text = text.String()
				s.logger.Info(module, "Generation completed", map[string]interface{}{
					"fragments": out.Fragments,
					"chars":     text.Len(),
				})
				return out
			}
			if frag.Err != nil {
				abandon()
				return fail(frag.Err)
			}
			idle.Reset(s.cfg.IdleTimeout)
			if frag.Text == "" {
				continue
			}
			if err := sink.WriteFragment(frag.Text); err != nil {
				abandon()
				return fail(fmt.Errorf("deliver fragment: %w", err))
			}
			text.WriteString(frag.Text)
			out.Fragments++

		case <-idle.C:
			abandon()
			return fail(fmt.Errorf("%w after %s", ErrIdleTimeout, s.cfg.IdleTimeout))

		case <-genCtx.Done():
			abandon()
			return fail(genCtx.Err())
		}
	}
}
