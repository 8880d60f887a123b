package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/projector"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/telemetry"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-projector"

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.AppEnv, service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := telemetry.Setup(ctx, cfg.OTelEnabled, cfg.OTelEndpoint, service, version)
	if err != nil {
		logger.Fatal("otel setup", zap.Error(err))
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := projector.NewService(
		&redisx.StatusCache{RDB: rdb},
		projector.RedisDedup{RDB: rdb, Service: "projector"},
		logger.Named("projector"),
	)

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, projector.Topics, cfg.ProjectorWorkers, logger.Named("consumer"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("projector consumer started",
			zap.String("group", cfg.ProjectorGroup),
			zap.Strings("topics", projector.Topics),
			zap.Int("workers", cfg.ProjectorWorkers),
		)
		if err := cons.Start(ctx, svc.Handle); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
	<-done // Start menunggu worker yang masih jalan

	if err := shutdownOTel(context.Background()); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
}
