// Preflight Orchestrator — выполняет validation runs.
//
// Orchestrator:
//   - получает запросы на проверку из RabbitMQ
//   - подхватывает PENDING runs из БД (polling fallback)
//   - выполняет validation pipeline и записывает итог
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Preflight/internal/app"
	"github.com/shaiso/Preflight/internal/config"
	"github.com/shaiso/Preflight/internal/mq"
	"github.com/shaiso/Preflight/internal/orchestrator"
	"github.com/shaiso/Preflight/internal/repo"
	"github.com/shaiso/Preflight/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting preflight-orchestrator")

	// Отсутствие учётных данных — фатальная ошибка старта
	cfg, err := config.Load()
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
	logger.Info("database connected")

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	runner, err := app.BuildRunner(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build validation pipeline", "error", err)
		os.Exit(1)
	}

	orchCfg := orchestrator.Config{
		Store:        repo.NewRunRepo(pool),
		Validator:    runner,
		PollInterval: cfg.Orchestrator.PollInterval,
		BatchSize:    cfg.Orchestrator.BatchSize,
		RunTimeout:   cfg.Orchestrator.RunTimeout,
		Logger:       logger,
	}

	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		orchCfg.Conn = mqConn
	}

	orch, err := orchestrator.New(orchCfg)
	if err != nil {
		logger.Error("failed to create orchestrator", "error", err)
		os.Exit(1)
	}

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := ":" + cfg.MetricsPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	orch.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("preflight-orchestrator stopped")
}
