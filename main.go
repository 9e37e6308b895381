package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/consumer"
	"github.com/yashrajoria/pharmacy-agent/controllers"
	"github.com/yashrajoria/pharmacy-agent/database"
	"github.com/yashrajoria/pharmacy-agent/logger"
	"github.com/yashrajoria/pharmacy-agent/middleware"
	"github.com/yashrajoria/pharmacy-agent/models"
	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"github.com/yashrajoria/pharmacy-agent/routes"
	"github.com/yashrajoria/pharmacy-agent/sender"
	"github.com/yashrajoria/pharmacy-agent/services"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "pharmacy-agent"

func main() {
	log := logger.Initialize(os.Getenv("APP_ENV"), nil)

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	ctx := context.Background()
	awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatal("AWS config load failed", zap.Error(err))
	}

	// CloudWatch Logs (non-fatal)
	if cfg.CloudWatchEnabled && cfg.CloudWatchLogGroup != "" {
		cwWriter, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Warn("CloudWatch logs init failed (non-fatal)", zap.Error(err))
			log = logger.Initialize(cfg.AppEnv, nil)
		} else {
			log = logger.Initialize(cfg.AppEnv, io.Writer(cwWriter))
		}
	} else {
		log = logger.Initialize(cfg.AppEnv, nil)
	}
	defer log.Sync()

	metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	var metrics services.MetricsRecorder
	if metricsClient.IsEnabled() {
		metrics = metricsClient
	}

	// Stores
	inventory, err := buildInventory(cfg, awsCfg)
	if err != nil {
		log.Fatal("Inventory store init failed", zap.Error(err))
	}

	var (
		sessions    repository.SessionRepository = repository.NewMemorySessionRepository()
		runHistory  repository.RunRepository     = repository.NewMemoryRunRepository()
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		sessions = repository.NewRedisSessionRepository(redisClient)
		runHistory = repository.NewRedisRunRepository(redisClient)
	} else {
		log.Warn("REDIS_URL not set, sessions and run history are kept in memory")
	}

	var (
		archive     repository.RunArchive
		mongoClient *mongo.Client
	)
	if cfg.MongoURI != "" {
		mongoClient, err = database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal("MongoDB connection failed", zap.Error(err))
		}
		mongoArchive := repository.NewMongoRunArchive(mongoClient.Database(cfg.MongoDB))
		if err := mongoArchive.EnsureIndexes(ctx); err != nil {
			log.Warn("Run archive index creation failed", zap.Error(err))
		}
		archive = mongoArchive
	}

	var (
		notificationLogs repository.NotificationRepository
		pgDB             *gorm.DB
	)
	if cfg.Postgres.Host != "" {
		pgDB, err = database.ConnectPostgres(cfg.Postgres, log, &models.NotificationLog{})
		if err != nil {
			log.Fatal("Postgres connection failed", zap.Error(err))
		}
		notificationLogs = repository.NewNotificationRepository(pgDB)
	}

	// Messaging
	var publisher awspkg.SNSPublisher
	if cfg.OrderEventsTopicArn != "" || cfg.InvoiceTopicArn != "" {
		publisher = awspkg.NewSNSClient(awsCfg)
	}

	var emailSender sender.EmailSender
	if cfg.SMTP.Host != "" {
		smtpSender, err := sender.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Fatal("Failed to init SMTP sender", zap.Error(err))
		}
		emailSender = smtpSender
	}

	notifierCfg := services.InvoiceNotifierConfig{
		Email:   emailSender,
		Logs:    notificationLogs,
		Timeout: cfg.NotifyTimeout,
		Metrics: metrics,
	}
	if cfg.InvoiceTopicArn != "" {
		notifierCfg.Publisher = publisher
		notifierCfg.TopicArn = cfg.InvoiceTopicArn
	}
	notifier, err := services.NewEmailInvoiceNotifier(notifierCfg, log)
	if err != nil {
		log.Fatal("Failed to init invoice notifier", zap.Error(err))
	}

	// Dependency injection
	catalog := services.NewCatalogCache(inventory, cfg.CatalogMaxAge, metrics, log)
	ledger := services.NewRunLedger(runHistory, archive, metrics, log)

	checkoutDeps := services.CheckoutDeps{
		Sessions:  sessions,
		Committer: inventory,
		Ledger:    ledger,
		Notifier:  notifier,
		Catalog:   catalog,
		Metrics:   metrics,
	}
	if cfg.OrderEventsTopicArn != "" {
		checkoutDeps.Events = publisher
	}
	machine := services.NewCheckoutMachine(checkoutDeps, services.CheckoutConfig{
		SessionTTL:          cfg.SessionTTL,
		CommitTimeout:       cfg.CommitTimeout,
		OrderEventsTopicArn: cfg.OrderEventsTopicArn,
	}, log)

	var primary, fallback services.DecisionEngine = services.NewLocalDecisionEngine(inventory), nil
	if cfg.PolicyServiceURL != "" {
		fallback = primary
		primary = services.NewRemoteDecisionEngine(cfg.PolicyServiceURL)
	}
	orchestrator := services.NewOrchestrator(catalog, primary, fallback, machine, log)

	var transcriber services.Transcriber = services.DisabledTranscriber{}
	if cfg.STTURL != "" {
		transcriber = services.NewHTTPTranscriber(cfg.STTURL, log)
	}
	var audioArchive controllers.AudioArchive
	if cfg.VoiceArchiveBucket != "" {
		audioArchive = awspkg.NewS3Uploader(awsCfg, cfg.VoiceArchiveBucket)
	}

	passwordHash := cfg.AdminPasswordHash
	if passwordHash == "" {
		passwordHash, err = services.HashPassword(cfg.AdminPassword)
		if err != nil {
			log.Fatal("Failed to hash admin password", zap.Error(err))
		}
	}
	authService, err := services.NewAuthService(cfg.JWTSecret, passwordHash, cfg.TokenTTL)
	if err != nil {
		log.Fatal("Failed to init auth service", zap.Error(err))
	}
	dashboard := services.NewDashboardService(ledger, inventory, inventory)

	ctrl := routes.Controllers{
		Chat:     controllers.NewChatController(orchestrator, transcriber, audioArchive, log),
		Checkout: controllers.NewCheckoutController(orchestrator, log),
		Catalog:  controllers.NewCatalogController(catalog, inventory, log),
		Admin:    controllers.NewAdminController(authService, ledger, dashboard, notificationLogs, log),
	}

	if err := catalog.Refresh(ctx); err != nil {
		log.Warn("Initial catalog load failed", zap.Error(err))
	}

	// Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst, 10*time.Minute)
	stopSweeper := make(chan struct{})
	limiter.StartSweeper(stopSweeper)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.RateLimitMiddleware(limiter),
		middleware.RequestLogger(log),
		middleware.MetricsMiddleware(metricsClient, serviceName),
		middleware.RequestTimeout(30*time.Second),
		apperrors.ErrorMiddleware(),
	)
	routes.RegisterRoutes(r, ctrl, []byte(cfg.JWTSecret))

	// Catalog events consumer
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if cfg.CatalogEventsQueue != "" {
		poller := awspkg.NewSQSConsumer(awsCfg, cfg.CatalogEventsQueue, log)
		go consumer.NewCatalogEventsConsumer(poller, catalog, log).Start(consumerCtx)
	}

	// HTTP server
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("Pharmacy agent started", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	consumerCancel()
	close(stopSweeper)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", zap.Error(err))
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", zap.Error(err))
		}
	}
	if pgDB != nil {
		if sqlDB, err := pgDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("Postgres close error", zap.Error(err))
			}
		}
	}

	log.Info("Pharmacy agent stopped gracefully")
}

func buildInventory(cfg *Config, awsCfg sdkaws.Config) (repository.InventoryRepository, error) {
	if cfg.StoreBackend == StoreDynamo {
		return repository.NewDynamoInventoryRepository(database.NewDynamoClient(awsCfg), cfg.ProductsTable, cfg.OrdersTable), nil
	}

	var products []models.Product
	if cfg.SeedCatalogCSV != "" {
		f, err := os.Open(cfg.SeedCatalogCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if products, err = repository.ReadProductsCSV(f); err != nil {
			return nil, err
		}
	}
	return repository.NewMemoryInventoryRepository(products...), nil
}
