package controller

import (
	"docubot-be/internal/pkg/serverutils"
	"docubot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	healthService service.IHealthService
}

func NewHealthController(healthService service.IHealthService) IHealthController {
	return &healthController{
		healthService: healthService,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := c.healthService.Check(ctx.UserContext())
	if res.Status == service.HealthDegraded {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(&serverutils.Response{
			Success: false,
			Code:    fiber.StatusServiceUnavailable,
			Message: "Dependencies unreachable",
			Data:    res,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Health", res))
}
