package main

import (
	"context"
	"os"

	"VectorInit/internal/config"
	"VectorInit/internal/ingest"
	"VectorInit/internal/logx"
	mdb "VectorInit/internal/mongo"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err == nil {
		err = logx.Setup(cfg.LogLevel)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.UsesPlaceholderPassword() {
		log.Warn().Str("user", cfg.AppUser).Msg("using the development placeholder password")
	}

	ctx := context.Background()
	mc, err := mdb.NewClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}

	if _, err := ingest.RunAll(ctx, cfg, mc); err != nil {
		mc.Close(ctx)
		log.Error().Err(err).Msg("bootstrap failed")
		os.Exit(1)
	}
	mc.Close(ctx)
	log.Info().Msg("bootstrap done")
}
