package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/auth"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	delivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/inproc"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/platform/observability"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

type eventBus interface {
	messaging.Publisher
	messaging.Subscriber
	io.Closer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	if cfg.UsesOtel() {
		otelShutdown, err := observability.Setup(ctx, cfg)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer done()
			_ = otelShutdown(shutdownCtx)
		}()
		if err != nil {
			return err
		}
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.UsesOtel())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// --- Storage ---
	uow, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Messaging ---
	var bus eventBus
	if cfg.UsesKafka() {
		bus = kafka.NewBroker(cfg.KafkaBrokers, config.ServiceName, otel.GetTracerProvider(), logger)
		logger.Info("publishing events to Kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		bus = inproc.NewBus(logger)
		logger.Info("publishing events in process")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("failed to close event bus", zap.Error(err))
		}
	}()

	// --- Services ---
	orderSvc := service.NewOrderService(uow, bus, logger)
	inventorySvc := service.NewInventoryService(uow, bus, logger)

	// --- HTTP API ---
	handler := delivery.NewHandler(orderSvc, inventorySvc, auth.HeaderProvider{}, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           delivery.EnableCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start everything ---
	var wg sync.WaitGroup
	for _, topic := range []string{messaging.TopicOrders, messaging.TopicInventory} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumeEvents(ctx, bus, topic, logger)
		}()
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}
	wg.Wait()
	return nil
}

// openStore picks Postgres when a database is configured and the in-memory
// store otherwise, seeding demo data into either.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UnitOfWork, func(), error) {
	seed := demoData(time.Now().UTC())

	if !cfg.UsesPostgres() {
		store := memory.NewStore()
		if cfg.SeedDemoData {
			store.Seed(seed)
		}
		logger.Info("using in-memory storage")
		return store, func() {}, nil
	}

	db, err := postgres.InitDB(ctx, cfg.DatabaseURL, cfg.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}
	if cfg.SeedDemoData {
		if err := seedPostgres(ctx, db, seed, logger); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	logger.Info("using Postgres storage")
	return postgres.NewUnitOfWork(db), closeDB, nil
}

func seedPostgres(ctx context.Context, db *sql.DB, seed repository.SeedData, logger *zap.Logger) error {
	if err := postgres.Seed(ctx, db, seed); err != nil {
		return err
	}
	logger.Info("seeded demo data",
		zap.Int("tenants", len(seed.Tenants)),
		zap.Int("products", len(seed.Products)),
	)
	return nil
}

// consumeEvents logs every event published on topic. It blocks until ctx is
// cancelled.
func consumeEvents(ctx context.Context, sub messaging.Subscriber, topic string, logger *zap.Logger) {
	err := sub.Consume(ctx, topic, config.ServiceName+"-event-log", func(ctx context.Context, msg messaging.Message) error {
		logger.Info("event received",
			zap.String("topic", msg.Topic),
			zap.String("key", msg.Key),
			zap.String("event_type", msg.EventType),
			zap.ByteString("payload", msg.Payload),
		)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", zap.String("topic", topic), zap.Error(err))
	}
}
