package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"docubot-be/internal/bootstrap"
	"docubot-be/internal/config"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/server"
	"docubot-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	sysLogger := logger.NewZapLogger(logger.Options{
		FilePath:   cfg.App.LogFilePath,
		Production: cfg.IsProduction(),
		Level:      cfg.App.LogLevel,
	})
	defer sysLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(tracer.Config{
		Enabled:     cfg.App.OtelEnabled,
		ServiceName: "docubot",
		Environment: cfg.App.Environment,
		Endpoint:    cfg.App.OtelEndpoint,
		SampleRatio: cfg.App.OtelSampleRatio,
	}, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg, sysLogger)
	if err != nil {
		return err
	}
	defer container.Close()

	if err := container.StartSubscribers(ctx); err != nil {
		sysLogger.Warn("Main", "Ingest events unavailable", map[string]interface{}{"error": err.Error()})
	}

	// 4. Serve until signalled
	srv := server.New(cfg, container)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		sysLogger.Info("Main", "Shutting down", nil)
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
