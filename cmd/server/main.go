package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/retail-fulfillment/internal/adapter/carrier"
	"github.com/rl1809/retail-fulfillment/internal/adapter/handler"
	"github.com/rl1809/retail-fulfillment/internal/adapter/messaging"
	"github.com/rl1809/retail-fulfillment/internal/adapter/storage"
	"github.com/rl1809/retail-fulfillment/internal/config"
	"github.com/rl1809/retail-fulfillment/internal/core/service"
	"github.com/rl1809/retail-fulfillment/internal/platform/logging"
	"github.com/rl1809/retail-fulfillment/internal/platform/observability"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

const carrierAccount = "default"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint, config.ServiceName, config.ServiceVersion)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	redisAdapter := storage.NewRedisAdapter(rdb)

	var tokens port.TokenStore
	if cfg.CarrierTokenStore == "memory" {
		tokens = storage.NewMemoryTokenStore()
	} else {
		tokens = redisAdapter.TokenStore(carrierAccount)
	}

	// Initialize event publisher
	var events port.EventPublisher
	var kafkaWriter interface{ Close() error }
	if len(cfg.KafkaBrokers) > 0 {
		w := messaging.NewWriter(cfg.KafkaBrokers)
		kafkaWriter = w
		events = messaging.NewKafkaPublisher(w, cfg.KafkaTopic, logger)
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		events = messaging.NewLogPublisher(logger)
	}

	if cfg.CarrierEmail == "" || cfg.CarrierPassword == "" {
		logger.Warn("carrier credentials not set, dispatch will fail")
	}
	if cfg.CarrierPickupLocation == "" {
		logger.Warn("carrier pickup location not set, dispatch will fail")
	}

	// Initialize services
	carrierClient := carrier.NewClient(cfg.CarrierBaseURL, cfg.CarrierTimeout, logger)
	session := service.NewCarrierSession(carrierClient, tokens, service.CarrierCredentials{
		Email:    cfg.CarrierEmail,
		Password: cfg.CarrierPassword,
	}, logger)
	packer := service.NewPackageAggregator(mysqlAdapter, logger)
	dispatcher := service.NewShipmentDispatcher(session, carrierClient, mysqlAdapter, packer, cfg.CarrierPickupLocation, logger)

	checker := service.NewAvailabilityChecker(mysqlAdapter)
	ledger := service.NewStockLedger(mysqlAdapter, checker, logger)

	orderService := service.NewOrderService(service.OrderServiceDeps{
		Checker:    checker,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Orders:     mysqlAdapter,
		Locks:      redisAdapter,
		Events:     events,
		Logger:     logger,
	}, cfg.DispatchQueueSize, cfg.DispatchLockTTL)

	// Start dispatch worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.DispatchWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, orderService.GetDispatchQueue(), orderService, cfg.DispatchTimeout, logger)
		}(i)
	}
	logger.Info("started dispatch workers", zap.Int("count", cfg.DispatchWorkers))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(checker, ledger, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, ledger, checker, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close dispatch queue and wait for workers
	orderService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown", zap.Error(err))
	}

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

// workerLoop dispatches confirmed orders off the queue. A failed dispatch
// leaves the order confirmed so it can be retried through the API.
func workerLoop(id int, queue <-chan string, orders *service.OrderService, timeout time.Duration, logger *zap.Logger) {
	log := logger.With(zap.Int("worker", id))
	for orderID := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)

		record, err := orders.DispatchOrder(ctx, orderID)
		switch {
		case err == nil:
			log.Info("order dispatched",
				zap.String("order_id", orderID),
				zap.String("shipment_id", record.ShipmentID),
				zap.String("awb", record.AWBNumber),
			)
		case service.IsClientError(err):
			log.Warn("order not dispatched", zap.String("order_id", orderID), zap.Error(err))
		default:
			log.Error("dispatch failed", zap.String("order_id", orderID), zap.Error(err))
		}

		cancel()
	}
}
