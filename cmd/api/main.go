package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"energy-sizing/internal/api"
	"energy-sizing/internal/api/handlers"
	"energy-sizing/internal/config"
	"energy-sizing/internal/logging"
	"energy-sizing/internal/store"
	"energy-sizing/internal/study"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("SIZING_CONFIG"), "Path to YAML config")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := study.NewCache(cfg.Server.CacheTTL)
	go cache.Run(ctx, 5*time.Minute)

	var st *store.Store
	if cfg.Store.Enabled {
		st, err = store.Open(ctx, cfg.Store.DSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open study store")
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("create study schema")
		}
	}

	scenarioDir := handlers.ScenarioDir()
	if wd, err := os.Getwd(); err == nil {
		logger.Info().Str("working_directory", wd).Str("scenario_dir", scenarioDir).Msg("paths")
	}

	router := api.NewRouter(api.Deps{
		Config:      *cfg,
		ScenarioDir: scenarioDir,
		Cache:       cache,
		Store:       st,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("backend", cfg.Solver.Backend).Bool("store", st != nil).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
