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

	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/httpx"
	"github.com/ariefcatur/go-marketplace/internal/inventory"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/telemetry"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.AppEnv, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := telemetry.Setup(ctx, cfg.OTelEnabled, cfg.OTelEndpoint, cfg.ServiceName, version)
	if err != nil {
		logger.Fatal("otel setup", zap.Error(err))
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer; tanpa broker event di-skip
	var (
		prod *kafkax.Producer
		pub  orders.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("producer"))
		prod.Start(ctx)
		pub = prod
	} else {
		logger.Warn("KAFKA_BROKERS empty, order events disabled")
	}

	// Services
	catalogSvc := catalog.NewService(&catalog.Repo{DB: db}, logger.Named("catalog"))
	orderSvc := orders.NewService(orders.Deps{
		Store:     &orders.Repo{DB: db},
		Ledger:    inventory.NewLedger(logger.Named("inventory")),
		Publisher: pub,
		Policy: orders.Policy{
			StrictTransitions: cfg.Orders.StrictTransitions,
			RestockOnCancel:   cfg.Orders.RestockOnCancel,
		},
		Producer: cfg.ServiceName,
		Log:      logger.Named("orders"),
	})

	// HTTP
	router := httpx.NewRouter(logger, map[string]httpx.Check{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	authn := httpx.Authenticate(auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), logger)
	(&httpx.CatalogHandler{Catalog: catalogSvc, Log: logger, Timeout: cfg.RequestTimeout}).Register(router, authn)
	(&httpx.OrdersHandler{
		Orders:  orderSvc,
		Idem:    &redisx.Idempotency{RDB: rdb, PendingTTL: redisx.PendingTTLFor(cfg.RequestTimeout)},
		Status:  &redisx.StatusCache{RDB: rdb},
		Log:     logger,
		Timeout: cfg.RequestTimeout,
	}).Register(router, authn)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	cancel()
	if err := shutdownOTel(ctx2); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
}
