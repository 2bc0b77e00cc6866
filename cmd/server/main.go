package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizrally/trivia-backend/internal/config"
	"github.com/quizrally/trivia-backend/internal/httpapi"
	"github.com/quizrally/trivia-backend/internal/hub"
	"github.com/quizrally/trivia-backend/internal/quizgen"
	"github.com/quizrally/trivia-backend/internal/store"
	"github.com/quizrally/trivia-backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open postgres", zap.Error(err))
		}
		st = pg
		logger.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Warn("no DATABASE_URL set, rooms will not survive restarts")
	}

	api := &httpapi.API{
		Hub:     hub.NewHub(ctx, st, logger),
		Store:   st,
		Catalog: quizgen.NewCatalog(),
		Log:     logger,
	}
	if cfg.OpenAIKey != "" {
		api.AI = quizgen.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel, logger)
	} else {
		logger.Warn("no OPENAI_API_KEY set, only pack-sourced rooms are available")
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      httpapi.SetupRoutes(api, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shut down cleanly")
}
