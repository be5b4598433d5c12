package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-variant-service/config"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/variant/cache"
	"github.com/fekuna/omnipos-variant-service/internal/variant/event"
	variantH "github.com/fekuna/omnipos-variant-service/internal/variant/handler"
	variantListenerPkg "github.com/fekuna/omnipos-variant-service/internal/variant/listener"
	variantRepoPkg "github.com/fekuna/omnipos-variant-service/internal/variant/repository"
	"github.com/fekuna/omnipos-variant-service/internal/variant/search"
	variantUCPkg "github.com/fekuna/omnipos-variant-service/internal/variant/usecase"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to Database
	db, err := sqlx.Connect(cfg.Database.Driver, cfg.Database.DataSourceName())
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second)

	if err := variantRepoPkg.ApplySchema(ctx, db); err != nil {
		appLogger.Fatal("Could not apply schema", zap.Error(err))
	}
	appLogger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	// 4. Initialize Repository
	variantRepo := variantRepoPkg.NewSQLRepository(db)

	// 5. Initialize Redis
	var variantCache *cache.VariantCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis (variant listings are not cached)", zap.Error(err))
		} else {
			defer redisClient.Close()
			variantCache = cache.NewVariantCache(redisClient, cfg.Redis.TTL, appLogger)
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 5.5 Initialize Kafka Publisher
	var publisher *event.Publisher
	if cfg.Kafka.Enabled {
		publisher = event.NewKafkaPublisher(&event.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, appLogger)
		defer publisher.Close()
		appLogger.Info("Kafka publisher ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 5.8 Initialize Elasticsearch
	var indexer *search.Indexer
	if cfg.Elastic.Enabled {
		indexer, err = search.NewIndexer(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
			Index:     cfg.Elastic.Index,
		}, appLogger)
		if err == nil {
			err = indexer.Ping(ctx)
		}
		if err == nil {
			err = indexer.EnsureIndex(ctx)
		}
		if err != nil {
			// The service keeps running without search.
			appLogger.Warn("Could not connect to Elasticsearch (variant search is disabled)", zap.Error(err))
			indexer = nil
		} else {
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 6. Initialize UseCase
	variantUC := variantUCPkg.NewVariantUseCase(variantRepo, variantCache, publisher, indexer, appLogger, cfg.Wizard.RegenerateDelay)

	// 6.5 Initialize Listener
	if cfg.Kafka.Enabled {
		consumer := variantListenerPkg.NewConsumer(&variantListenerPkg.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.VerificationTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer consumer.Close()
		verificationListener := variantListenerPkg.NewVerificationListener(consumer, variantUC, appLogger)
		go verificationListener.Start(ctx)
	}

	// 7. Initialize Handler
	variantHandler := variantH.NewVariantHandler(variantUC, appLogger)

	// 8. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer()
	variantH.RegisterVariantServiceServer(grpcServer, variantHandler)
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
