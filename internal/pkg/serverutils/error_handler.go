package serverutils

import (
	"errors"
	"strconv"

	"docubot-be/internal/pkg/logger"
	"docubot-be/pkg/rag/response"
	"docubot-be/pkg/rag/search"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	MessageRetrievalUnavailable = "cannot search documentation right now"
	MessageGenerationBusy       = "too many answers in progress, try again shortly"
	retryAfterSeconds           = 5
)

// ErrorHandlerMiddleware turns handler errors into JSON error responses.
// Errors returned after a stream has started never reach it.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := classify(err)
		if code == fiber.StatusServiceUnavailable && errors.Is(err, response.ErrGenerationBusy) {
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", message, map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": code,
				"error":  err.Error(),
			})
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		return fiber.StatusBadRequest, ValidationMessage(validationErrs)
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, search.ErrRetrievalUnavailable):
		return fiber.StatusServiceUnavailable, MessageRetrievalUnavailable
	case errors.Is(err, response.ErrGenerationBusy):
		return fiber.StatusServiceUnavailable, MessageGenerationBusy
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
