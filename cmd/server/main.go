package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/buffet-service/config"
	"github.com/fekuna/buffet-service/migrations"
	"github.com/fekuna/buffet-service/pkg/broker"
	"github.com/fekuna/buffet-service/pkg/cache"
	"github.com/fekuna/buffet-service/pkg/database/postgres"
	"github.com/fekuna/buffet-service/pkg/i18n"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/fekuna/buffet-service/pkg/middleware"
	"github.com/fekuna/buffet-service/pkg/search"

	"github.com/fekuna/buffet-service/internal/auth"
	"github.com/fekuna/buffet-service/internal/notification"
	"github.com/fekuna/buffet-service/internal/order"
	"github.com/fekuna/buffet-service/internal/product"
	"github.com/fekuna/buffet-service/internal/server"

	catH "github.com/fekuna/buffet-service/internal/category/handler"
	catRepoPkg "github.com/fekuna/buffet-service/internal/category/repository"
	catUCPkg "github.com/fekuna/buffet-service/internal/category/usecase"

	orderH "github.com/fekuna/buffet-service/internal/order/handler"
	orderListenerPkg "github.com/fekuna/buffet-service/internal/order/listener"
	orderRepoPkg "github.com/fekuna/buffet-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/buffet-service/internal/order/usecase"

	prodH "github.com/fekuna/buffet-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/buffet-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/buffet-service/internal/product/usecase"

	reportH "github.com/fekuna/buffet-service/internal/report/handler"
	reportRepoPkg "github.com/fekuna/buffet-service/internal/report/repository"
	reportUCPkg "github.com/fekuna/buffet-service/internal/report/usecase"

	uploadH "github.com/fekuna/buffet-service/internal/upload/handler"
	uploadStorage "github.com/fekuna/buffet-service/internal/upload/storage"
	uploadUCPkg "github.com/fekuna/buffet-service/internal/upload/usecase"

	userH "github.com/fekuna/buffet-service/internal/user/handler"
	userRepoPkg "github.com/fekuna/buffet-service/internal/user/repository"
	userUCPkg "github.com/fekuna/buffet-service/internal/user/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// 2. Initialize i18n
	translator, err := i18n.New()
	if err != nil {
		log.Fatalf("failed to load locales: %v", err)
	}
	if cfg.Server.I18nDir != "" {
		files, _ := filepath.Glob(filepath.Join(cfg.Server.I18nDir, "*.json"))
		for _, f := range files {
			if err := translator.Load(f); err != nil {
				log.Printf("failed to load locale %s: %v", f, err)
			}
		}
	}

	// 3. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     !cfg.Server.IsProduction(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	// 4. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.AutoMigrate {
		applied, err := postgres.Migrate(ctx, db, migrations.FS)
		if err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		if len(applied) > 0 {
			appLogger.Info("Applied migrations", zap.Strings("versions", applied))
		}
	}

	// 5. Initialize Repositories
	userRepo := userRepoPkg.NewPGRepository(db)
	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	reportRepo := reportRepoPkg.NewPGRepository(db)

	// 6. Optional infrastructure. Each one degrades to an in-process fallback.
	var limiter userUCPkg.LoginLimiter
	var guard notification.OnceGuard
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis (login limiting disabled)", zap.Error(err))
		} else {
			defer redisClient.Close()
			limiter, guard = redisClient, redisClient
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var indexer product.Indexer
	if len(cfg.Elastic.Addresses) > 0 {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch (search falls back to SQL)", zap.Error(err))
		} else {
			indexer = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	var mailer notification.Mailer = notification.NewLogMailer(appLogger)
	if cfg.Mail.Host != "" {
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: "Campus Buffet",
		})
	}

	qr := notification.NewQRGenerator(256)
	notifier := notification.NewNotifier(qr, mailer, guard, appLogger)

	// 7. Order events: Kafka when brokers are configured, in-process otherwise
	var consumer *broker.KafkaConsumer
	var publisher order.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		brokerCfg := &broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}
		consumer = broker.NewConsumer(brokerCfg)
		defer consumer.Close()
		producer := broker.NewProducer(brokerCfg)
		defer producer.Close()
		publisher = producer
		appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	orderListener := orderListenerPkg.NewNotificationListener(consumer, orderRepo, notifier, appLogger)
	if publisher == nil {
		publisher = orderListener
	}
	go orderListener.Start(ctx)

	disk, err := uploadStorage.NewDisk(cfg.Upload.Dir)
	if err != nil {
		appLogger.Fatal("Could not prepare upload directory", zap.String("dir", cfg.Upload.Dir), zap.Error(err))
	}

	// 8. Initialize UseCases
	tokens := auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.TTL)
	userUC := userUCPkg.NewUserUseCase(userRepo, tokens, limiter, userUCPkg.Options{
		MaxAttempts:   cfg.Redis.LoginAttempts,
		AttemptWindow: cfg.Redis.LoginWindow,
	}, appLogger)
	catUC := catUCPkg.NewCategoryUseCase(catRepo, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, catUC, indexer, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(orderRepo, prodRepo, qr, publisher, orderUCPkg.Options{
		CancelWindow: cfg.Order.CancelWindow,
	}, appLogger)
	reportUC := reportUCPkg.NewReportUseCase(reportRepo, orderRepo, appLogger)
	uploadUC := uploadUCPkg.NewUploadUseCase(disk, userUC, uploadUCPkg.Options{
		BaseURL:         cfg.Upload.BaseURL,
		MaxProductImage: cfg.Upload.MaxProductImage,
		MaxAvatar:       cfg.Upload.MaxAvatar,
	}, appLogger)

	// 9. Initialize Handlers
	handlers := server.Handlers{
		Users:      userH.NewUserHandler(userUC, appLogger),
		Categories: catH.NewCategoryHandler(catUC, appLogger),
		Products:   prodH.NewProductHandler(prodUC, catUC, appLogger),
		Orders:     orderH.NewOrderHandler(orderUC, appLogger),
		Reports:    reportH.NewReportHandler(reportUC, appLogger),
		Uploads:    uploadH.NewUploadHandler(uploadUC, appLogger),
	}

	// 10. Start HTTP Server
	httpServer := server.New(server.Config{
		Address:        normalizePort(cfg.Server.HTTPPort),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Production:     cfg.Server.IsProduction(),
		UploadDir:      disk.Dir(),
		UploadBaseURL:  cfg.Upload.BaseURL,
	}, server.Deps{
		Auth:       auth.NewAuthenticator(tokens, userRepo, appLogger),
		Translator: translator,
		DB:         db,
		Logger:     appLogger,
	}, handlers)

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 11. Start gRPC health endpoint
	grpcPort := normalizePort(cfg.Server.GRPCPort)
	lis, err := net.Listen("tcp", grpcPort)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.String("port", grpcPort), zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware.ContextInterceptor(appLogger)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		appLogger.Info("Starting gRPC health server", zap.String("port", grpcPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}

func normalizePort(port string) string {
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
