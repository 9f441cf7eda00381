package server

import (
	"context"
	"time"

	"docubot-be/internal/bootstrap"
	"docubot-be/internal/config"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const module = "Server"

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
	logger    logger.ILogger
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             64 * 1024,
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Type, X-Answer-Grounded, Retry-After",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	registerRoutes(app, container)

	// front-end, when one is shipped alongside
	if cfg.App.StaticDir != "" {
		app.Static("/", cfg.App.StaticDir)
	}

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
		logger:    container.Logger,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.logger.Info(module, "Server is running", map[string]interface{}{"addr": "http://localhost:" + s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown stops accepting requests and waits for open streams up to the
// generation timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Rag.GenerationTimeout+5*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.AskController.RegisterRoutes(api)
	c.HealthController.RegisterRoutes(api)
}
