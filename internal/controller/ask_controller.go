package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"docubot-be/internal/dto"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/pkg/serverutils"
	"docubot-be/internal/service"
	"docubot-be/pkg/rag/response"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	askModule = "AskController"

	HeaderAnswerGrounded = "X-Answer-Grounded"

	EventMeta  = "meta"
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

type IAskController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
}

type askController struct {
	answerService service.IAnswerService
	logger        logger.ILogger
}

func NewAskController(answerService service.IAnswerService, log logger.ILogger) IAskController {
	return &askController{
		answerService: answerService,
		logger:        log,
	}
}

func (c *askController) RegisterRoutes(r fiber.Router) {
	r.Post("/ask", c.Ask)
}

// Ask answers one question as a server-sent event stream. Anything that goes
// wrong before the first byte is an ordinary JSON error; after that the
// stream ends with an error event instead of done.
func (c *askController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	prepared, err := c.answerService.Prepare(ctx.UserContext(), req.Question)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")
	ctx.Set(HeaderAnswerGrounded, strconv.FormatBool(prepared.Grounded()))

	// the fiber ctx is recycled once this handler returns
	parent := context.WithoutCancel(ctx.UserContext())

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		c.stream(parent, w, prepared)
	}))
	return nil
}

func (c *askController) stream(parent context.Context, w *bufio.Writer, prepared *service.PreparedAnswer) {
	streamCtx, cancel := context.WithCancel(parent)
	defer cancel()

	meta := dto.AskMetaEvent{Grounded: prepared.Grounded(), Sources: prepared.Prompt.Sources}
	if meta.Sources == nil {
		meta.Sources = []string{}
	}
	if err := writeEvent(w, EventMeta, meta); err != nil {
		prepared.Release()
		c.logger.Warn(askModule, "Client left before the answer started", map[string]interface{}{"error": err.Error()})
		return
	}

	clientGone := false
	sink := response.SinkFunc(func(text string) error {
		if err := writeEvent(w, EventToken, dto.AskTokenEvent{Text: text}); err != nil {
			clientGone = true
			return err
		}
		return nil
	})
	outcome := c.answerService.Stream(streamCtx, prepared, sink)

	if outcome.Err == nil {
		_ = writeEvent(w, EventDone, dto.AskDoneEvent{Grounded: prepared.Grounded()})
		return
	}

	details := map[string]interface{}{
		"state":     outcome.State.String(),
		"fragments": outcome.Fragments,
		"error":     outcome.Err.Error(),
	}
	if clientGone || errors.Is(outcome.Err, context.Canceled) {
		c.logger.Info(askModule, "Client disconnected during answer", details)
		return
	}
	c.logger.Error(askModule, "Answer stream failed", details)
	_ = writeEvent(w, EventError, dto.AskErrorEvent{Message: "answer generation failed"})
}

// writeEvent frames one SSE event and flushes it. A flush error means the
// client disconnected.
func writeEvent(w *bufio.Writer, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return w.Flush()
}
