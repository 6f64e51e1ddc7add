package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceTwin/internal/adapters/credential"
	"github.com/dkeye/VoiceTwin/internal/adapters/feed"
	router "github.com/dkeye/VoiceTwin/internal/adapters/http"
	"github.com/dkeye/VoiceTwin/internal/adapters/media"
	sig "github.com/dkeye/VoiceTwin/internal/adapters/signal"
	"github.com/dkeye/VoiceTwin/internal/app"
	"github.com/dkeye/VoiceTwin/internal/app/orch"
	"github.com/dkeye/VoiceTwin/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.DefaultContextLogger = &log.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	reg := app.NewRegistry(app.SimplePolicy{})
	limiter := app.NewStartLimiter(cfg.StartLimit.Limit, cfg.StartLimit.Interval)

	mgr := orch.NewSessionManager(
		credential.NewFetcher(cfg.Backend.SessionURL, cfg.Backend.Timeout),
		media.NewPipeline(cfg.Media),
		sig.NewNegotiator(cfg.Realtime.URL, cfg.Realtime.Model, cfg.Realtime.DataChannel, cfg.Realtime.ICEServers),
		feed.Publisher{Registry: reg},
	)
	feedCtl := feed.NewController(mgr, reg, limiter, cfg.Feed)

	r := router.SetupRouter(ctx, cfg, mgr, feedCtl, limiter)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("model", cfg.Realtime.Model).Msg("VoiceTwin server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	mgr.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
