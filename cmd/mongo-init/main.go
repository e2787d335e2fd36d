package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"VectorInit/internal/config"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// the password file is read in PersistentPreRunE, after --password-file
	cfg, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("mongo-init failed")
		stop()
		os.Exit(1)
	}
}
