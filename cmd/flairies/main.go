// Package main запускает HTTP-сервер маркетплейса Flairies.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Maithiliii/Flairies/internal/config"
	"github.com/Maithiliii/Flairies/internal/handler"
	"github.com/Maithiliii/Flairies/internal/middleware"
	"github.com/Maithiliii/Flairies/internal/notification"
	"github.com/Maithiliii/Flairies/internal/payout"
	"github.com/Maithiliii/Flairies/internal/repository"
	"github.com/Maithiliii/Flairies/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var provider service.PayoutProvider
	if cfg.PayoutProviderAddress != "" {
		provider = payout.NewClient(cfg.PayoutProviderAddress, cfg.PayoutKeyID, cfg.PayoutKeySecret)
	}

	notifier := notification.NewDispatcher(cfg.PushGatewayAddress, logger)

	svc := service.NewService(repo, provider, notifier, cfg.Settings, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, cfg.AdminToken)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой пакетной обработки выплат
	g.Go(func() error {
		svc.StartPayoutWorker(ctx, cfg.PayoutInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting flairies server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
