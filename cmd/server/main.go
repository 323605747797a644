package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	activityusecase "github.com/EMe-U/plotsure/internal/activity/usecase"
	grpcAdapter "github.com/EMe-U/plotsure/internal/adapter/grpc"
	"github.com/EMe-U/plotsure/internal/adapter/http/handler"
	"github.com/EMe-U/plotsure/internal/adapter/http/middleware"
	"github.com/EMe-U/plotsure/internal/adapter/http/router"
	natsAdapter "github.com/EMe-U/plotsure/internal/adapter/messaging/nats"
	"github.com/EMe-U/plotsure/internal/adapter/repository/cache"
	mongoRepo "github.com/EMe-U/plotsure/internal/adapter/repository/mongodb"
	"github.com/EMe-U/plotsure/internal/adapter/storage/s3"
	"github.com/EMe-U/plotsure/internal/auth/token"
	"github.com/EMe-U/plotsure/internal/config"
	inquiryusecase "github.com/EMe-U/plotsure/internal/inquiry/usecase"
	listingusecase "github.com/EMe-U/plotsure/internal/listing/usecase"
	"github.com/EMe-U/plotsure/internal/mailer"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"github.com/EMe-U/plotsure/internal/platform/tracer"
	"github.com/EMe-U/plotsure/internal/upload"
	userusecase "github.com/EMe-U/plotsure/internal/user/usecase"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	shutdownTimeout     = 15 * time.Second
	listingStatsTTL     = time.Minute
	dependencyInterval  = 30 * time.Second
	startupTimeout      = 20 * time.Second
	activityPruneBudget = 5 * time.Minute
)

// eventPublisher is satisfied by both the NATS publisher and its no-op stand-in.
type eventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger.Info("Application starting...", zap.String("service_name", cfg.ServiceName))

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)
	metricsServer := metrics.NewMetricsServer(cfg.PrometheusMetricsPort, appLogger, metricsManager.Registry)
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Prometheus metrics server failed", zap.Error(err))
			}
		}()
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStart()

	mongoClient, err := mongoRepo.Connect(startCtx, cfg.MongoURI, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.MongoDatabase)

	redisClient, err := cache.NewClient(startCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher eventPublisher
	natsPublisher, err := natsAdapter.NewPublisher(cfg.NATSURL, appLogger, cfg.ServiceName)
	if err != nil {
		appLogger.Warn("NATS is unavailable, domain events will be dropped", zap.String("url", cfg.NATSURL), zap.Error(err))
		publisher = natsAdapter.NewNopPublisher(appLogger)
	} else {
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	objectStore, err := s3.NewS3Storage(startCtx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
		cfg.MinioBucket, cfg.MinioUseSSL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Repositories and adapters
	userRepo := mongoRepo.NewUserRepository(db, appLogger)
	listingRepo := mongoRepo.NewListingRepository(db, appLogger)
	inquiryRepo := mongoRepo.NewInquiryRepository(db, appLogger)
	contactRepo := mongoRepo.NewContactRepository(db, appLogger)
	activityRepo := mongoRepo.NewActivityRepository(db, appLogger)

	listingCache := cache.NewListingCache(redisClient, cfg.CacheTTL, listingStatsTTL, appLogger)
	denylist := cache.NewTokenDenylist(redisClient, cfg.JWTExpiresIn, appLogger)
	limiter := cache.NewRateLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow, appLogger)
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.ServiceName)
	files := upload.NewService(objectStore, metricsManager, appLogger)
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, appLogger)
	recorder := activityusecase.NewRecorder(activityRepo, appLogger)

	// Usecases
	userUC := userusecase.NewUserUsecase(userRepo, tokens, denylist, publisher, recorder, mail, metricsManager, appLogger)
	twoFactorUC := userusecase.NewTwoFactorUsecase(userRepo, recorder, cfg.TOTPIssuer, appLogger)
	listingUC := listingusecase.NewListingUsecase(listingRepo, listingCache, publisher, recorder, files, metricsManager, appLogger)
	inquiryUC := inquiryusecase.NewInquiryUsecase(inquiryRepo, listingRepo, userRepo, publisher, recorder,
		mail, cfg.NotifyEmail, metricsManager, appLogger)
	contactUC := inquiryusecase.NewContactUsecase(contactRepo, publisher, recorder, mail, cfg.NotifyEmail, metricsManager, appLogger)
	reportUC := activityusecase.NewReportUsecase(activityRepo, recorder, userUC, listingUC, inquiryUC, contactUC, appLogger)

	if cfg.SeedDefaultUsers {
		if err := userUC.EnsureDefaultUsers(startCtx, userusecase.DefaultAccounts); err != nil {
			appLogger.Error("Failed to create default users", zap.Error(err))
		}
	}

	// Dependency checks shared by the HTTP health endpoint and gRPC health
	pingMongo := func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	pingRedis := func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

	httpChecks := map[string]handler.Checker{
		"mongodb": pingMongo,
		"redis":   pingRedis,
		"storage": objectStore.Ping,
	}
	grpcChecks := map[string]grpcAdapter.Checker{
		"mongodb": pingMongo,
		"redis":   pingRedis,
	}
	if natsPublisher != nil {
		pingNATS := func(context.Context) error { return natsPublisher.Ping() }
		httpChecks["nats"] = pingNATS
		grpcChecks["nats"] = pingNATS
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		appLogger.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}

	// HTTP API
	apiHandler := router.New(router.Deps{
		Auth:           handler.NewAuthHandler(userUC, appLogger),
		TwoFactor:      handler.NewTwoFactorHandler(twoFactorUC, appLogger),
		Listings:       handler.NewListingHandler(listingUC, appLogger),
		Inquiries:      handler.NewInquiryHandler(inquiryUC, appLogger),
		Contacts:       handler.NewContactHandler(contactUC, appLogger),
		Reports:        handler.NewReportHandler(reportUC, appLogger),
		Health:         handler.NewHealthHandler(cfg.ServiceName, httpChecks, appLogger),
		Uploads:        handler.NewUploadHandler(files, appLogger),
		Authenticator:  middleware.NewAuthenticator(tokens, denylist, appLogger),
		Limiter:        limiter,
		Metrics:        metricsManager,
		Logger:         appLogger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies: trustedProxies,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           apiHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// gRPC health endpoint
	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcSrv := grpcAdapter.NewServer(cfg.ServiceName, appLogger)
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			appLogger.Error("gRPC server Serve error", zap.Error(err))
		}
	}()
	grpcSrv.SetServing()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go grpcSrv.WatchDependencies(watchCtx, dependencyInterval, grpcChecks)

	// Activity log retention
	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(cfg.ActivityPruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), activityPruneBudget)
		defer cancel()
		if _, err := reportUC.Prune(ctx, cfg.ActivityRetentionDays); err != nil {
			appLogger.Error("Scheduled activity log pruning failed", zap.Error(err))
		}
	}); err != nil {
		appLogger.Fatal("Failed to schedule activity log pruning",
			zap.String("schedule", cfg.ActivityPruneSchedule), zap.Error(err))
	}
	scheduler.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopWatch()
	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		appLogger.Warn("Scheduled job still running at shutdown")
	}
	grpcSrv.Shutdown()
	if err := recorder.Close(ctx); err != nil {
		appLogger.Error("Activity recorder did not drain", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			appLogger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	appLogger.Info("Application shutting down...")
}
