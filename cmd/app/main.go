package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/ecommerce-backend/internal/auth"
	"github.com/wichananm65/ecommerce-backend/internal/config"
	"github.com/wichananm65/ecommerce-backend/internal/logger"
	"github.com/wichananm65/ecommerce-backend/internal/server"
	"github.com/wichananm65/ecommerce-backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	l := logger.New(logger.Options{Service: "ecommerce-backend", Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create token issuer")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	stores, err := store.Open(connectCtx, cfg, l)
	cancel()
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}

	app := server.New(cfg, l, stores, issuer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info().Str("addr", cfg.Addr()).Str("base_path", cfg.APIBasePath).Bool("auth_required", cfg.AuthRequired).Msg("starting server")
		return app.Listen(cfg.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Msg("server stopped with error")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stores.Close(closeCtx); err != nil {
		l.Error().Err(err).Msg("failed to close store")
	}
	l.Info().Msg("server exited")
}
