package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/config"
	"github.com/prudhvi1709/hypoforge/internal/handler"
	analysisService "github.com/prudhvi1709/hypoforge/internal/service/analysis"
	"github.com/prudhvi1709/hypoforge/internal/service/llm"
	"github.com/prudhvi1709/hypoforge/internal/service/loader"
	"github.com/prudhvi1709/hypoforge/internal/service/sandbox"
	sessionService "github.com/prudhvi1709/hypoforge/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	store, err := sessionService.NewStore(logger)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}
	defer store.Close()

	ldr := loader.New(logger)
	runner := sandbox.NewRunner(cfg.Sandbox.Timeout(), logger)

	var gateway *llm.Client
	if cfg.LLM.Enabled() {
		gateway = llm.NewClient(cfg.LLM, logger)
		logger.Info("completion gateway initialized", zap.String("model", cfg.LLM.Model))
	} else {
		logger.Warn("completion service credentials missing; hypothesis workflows disabled")
	}

	analysisSvc := analysisService.NewService(store, runner, gateway, logger)
	router := handler.NewRouter(cfg, store, ldr, analysisSvc, logger)

	startServer(ctx, cfg, router, logger)
}

func startServer(ctx context.Context, cfg *config.Config, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("server listening",
		zap.String("addr", srv.Addr),
		zap.String("title", cfg.App.Title),
		zap.String("version", cfg.App.Version))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
