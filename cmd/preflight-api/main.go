// Preflight API — принимает запросы на проверку и webhook review host.
//
// Запрос сохраняется как PENDING run и публикуется в RabbitMQ;
// pipeline выполняет preflight-orchestrator.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Preflight/internal/api"
	"github.com/shaiso/Preflight/internal/config"
	"github.com/shaiso/Preflight/internal/mq"
	"github.com/shaiso/Preflight/internal/repo"
	"github.com/shaiso/Preflight/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting preflight-api")

	cfg, err := config.LoadSettings()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	handlerCfg := api.Config{
		Runs:          repo.NewRunRepo(pool),
		WebhookSecret: cfg.WebhookSecret,
		Logger:        logger,
	}

	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, runs will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		handlerCfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	api.NewHandler(handlerCfg).RegisterRoutes(mux)

	addr := ":" + cfg.APIPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
