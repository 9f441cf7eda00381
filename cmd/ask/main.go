package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docubot-be/internal/bootstrap"
	"docubot-be/internal/cli"
	"docubot-be/internal/config"
	"docubot-be/internal/pkg/logger"
	"docubot-be/internal/service"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(2)
	}

	// file only, so log lines never interleave with the answer
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var container *bootstrap.Container
	cmd := cli.NewAskCommand(func() (service.IAnswerService, error) {
		var err error
		container, err = bootstrap.NewContainer(ctx, cfg, sysLogger)
		if err != nil {
			return nil, err
		}
		return container.AnswerService, nil
	})

	err := cmd.ExecuteContext(ctx)
	if container != nil {
		container.Close()
	}
	stop()
	_ = sysLogger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
