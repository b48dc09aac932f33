package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/coursechat/pkg/config"
	"github.com/dmitrymomot/coursechat/pkg/logger"
)

func main() {
	var cfg Config
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithTextFormatter(),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithOutput(os.Stderr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, log); err != nil {
		log.Error("chat client stopped", logger.Error(err))
		os.Exit(1)
	}
}
