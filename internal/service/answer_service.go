package service

import (
	"context"

	"docubot-be/internal/pkg/logger"
	"docubot-be/pkg/rag/prompt"
	"docubot-be/pkg/rag/response"
	"docubot-be/pkg/rag/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const answerModule = "AnswerService"

var tracer = otel.Tracer("docubot/answer")

// Retriever is satisfied by *search.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) (*search.RetrievedContext, error)
}

// Generator is satisfied by *response.Streamer.
type Generator interface {
	Reserve(ctx context.Context) (*response.Slot, error)
	Stream(ctx context.Context, slot *response.Slot, prompt string, sink response.Sink) *response.Outcome
}

// PreparedAnswer is a question that has been searched and holds a generation
// slot. Either Stream it or Release it.
type PreparedAnswer struct {
	Question string
	Prompt   prompt.Prompt
	slot     *response.Slot
}

func (p *PreparedAnswer) Grounded() bool {
	return p.Prompt.Grounded
}

func (p *PreparedAnswer) Release() {
	p.slot.Release()
}

type IAnswerService interface {
	// Prepare retrieves context for question, builds the prompt and reserves
	// a generation slot. Errors wrap search.ErrRetrievalUnavailable or
	// response.ErrGenerationBusy.
	Prepare(ctx context.Context, question string) (*PreparedAnswer, error)
	// Stream generates the answer into sink and releases the slot.
	Stream(ctx context.Context, prepared *PreparedAnswer, sink response.Sink) *response.Outcome
}

type answerService struct {
	retriever Retriever
	generator Generator
	topK      int
	logger    logger.ILogger
}

func NewAnswerService(retriever Retriever, generator Generator, topK int, log logger.ILogger) IAnswerService {
	return &answerService{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		logger:    log,
	}
}

func (s *answerService) Prepare(ctx context.Context, question string) (*PreparedAnswer, error) {
	ctx, span := tracer.Start(ctx, "answer.prepare")
	defer span.End()

	rc, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval unavailable")
		return nil, err
	}

	p := prompt.Assemble(question, rc)
	span.SetAttributes(
		attribute.Int("rag.passages", len(rc.Passages)),
		attribute.Bool("rag.grounded", p.Grounded),
	)
	if !p.Grounded {
		s.logger.Info(answerModule, "No relevant documentation found", map[string]interface{}{"question_len": len(question)})
	}

	slot, err := s.generator.Reserve(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no generation slot")
		return nil, err
	}

	return &PreparedAnswer{Question: question, Prompt: p, slot: slot}, nil
}

func (s *answerService) Stream(ctx context.Context, prepared *PreparedAnswer, sink response.Sink) *response.Outcome {
	ctx, span := tracer.Start(ctx, "answer.generate")
	defer span.End()

	outcome := s.generator.Stream(ctx, prepared.slot, prepared.Prompt.Text, sink)

	span.SetAttributes(
		attribute.String("rag.state", outcome.State.String()),
		attribute.Int("rag.fragments", outcome.Fragments),
		attribute.Bool("rag.grounded", prepared.Prompt.Grounded),
	)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "generation failed")
	}
	return outcome
}
