package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"ragchat/internal/logging"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.New(os.Stderr, "info", false).Error("ragchat failed", "err", err)
		stop()
		os.Exit(1)
	}
}
