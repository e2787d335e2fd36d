package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"VectorInit/internal/config"
	apphttp "VectorInit/internal/http"
	"VectorInit/internal/ingest"
	mdb "VectorInit/internal/mongo"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the user and fixtures converged on a schedule",
		Long: `Keep the user and fixtures converged on a schedule.

Runs the bootstrap in idempotent mode once at start and then on every tick
of the cron schedule. A failed tick is logged and reported on /healthz; the
next tick tries again.

Example:
  mongo-init watch
  mongo-init watch --schedule "@every 15m" --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), *cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron spec for re-applying fixtures")
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "Port for /healthz")
	return cmd
}

func watch(ctx context.Context, cfg config.Config) error {
	cfg.Idempotent = true

	mc, err := mdb.NewClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer mc.Close(context.Background())

	return serveWatch(ctx, cfg, mc, &apphttp.RunState{})
}

// serveWatch runs the bootstrap once, then on every schedule tick, and
// serves /healthz from st until ctx is done.
func serveWatch(ctx context.Context, cfg config.Config, mc *mdb.Client, st *apphttp.RunState) error {
	job := func() {
		rep, err := ingest.RunAll(ctx, cfg, mc)
		st.Record(rep, err)
		if err != nil {
			log.Error().Err(err).Msg("reseed failed")
			return
		}
		log.Info().Msg("reseed completed")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})), cron.WithLogger(cronLogger{}))
	if _, err := c.AddFunc(cfg.Schedule, job); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	job()
	c.Start()
	defer func() { <-c.Stop().Done() }()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apphttp.NewRouter(mc, st),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("schedule", cfg.Schedule).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron-" + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron-" + msg)
}
