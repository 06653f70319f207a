package main

import (
	"context"
	"errors"
	"log"
	"time"

	"medishare/config"
	"medishare/internal/aivalidation"
	"medishare/internal/events"
	"medishare/internal/handler"
	"medishare/internal/metrics"
	"medishare/internal/middleware"
	"medishare/internal/outbox"
	"medishare/internal/redis"
	"medishare/internal/repository"
	"medishare/internal/server"
	"medishare/internal/services"
	"medishare/internal/storage"
	"medishare/pkg/database"
	"medishare/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(appLogger)
	defer appLogger.Sync()

	var (
		donationRepo repository.DonationRepository
		userRepo     repository.UserRepository
		healthCheck  func(context.Context) error
	)
	if cfg.StoreDriver == config.StoreDriverMemory {
		appLogger.Warnf("STORE_DRIVER=memory: data is lost on restart")
		donationRepo = repository.NewInMemoryDonationRepository()
		userRepo = repository.NewInMemoryUserRepository()
	} else {
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := repository.InitSchema(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		donationRepo = repository.NewDonationRepository(db)
		userRepo = repository.NewUserRepository(db)
		healthCheck = database.HealthCheck
	}

	var images services.ImageStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
		images = s3Client
	} else {
		appLogger.Warnf("S3_BUCKET not set, keeping uploaded images in memory")
		images = storage.NewMemoryStore("")
	}

	limits := redis.DefaultRateLimitConfig()
	if cfg.AuthRateLimit > 0 {
		limits.AuthLimit = cfg.AuthRateLimit
	}
	if cfg.DonationRateLimit > 0 {
		limits.DonationLimit = cfg.DonationRateLimit
	}

	var (
		bus     events.Bus = events.NopBus{}
		limiter middleware.RateLimiter
	)
	if cfg.RedisEnabled {
		redisClient, err := redis.NewClient(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		retrying := outbox.DefaultProcessor(
			events.NewRedisEventBus(redis.NewPublisher(redisClient), events.NewDonationChannelResolver()),
			appLogger,
		)
		outbox.NewRunner(retrying).Start(ctx)
		bus = retrying
		limiter = redis.NewRateLimiter(redisClient, limits)
	} else {
		limiter = middleware.NewLocalRateLimiter(limits)
	}

	admin, created, err := database.SeedAdmin(ctx, userRepo, cfg.AdminEmail, cfg.AdminPassword)
	switch {
	case errors.Is(err, database.ErrSeedSkipped):
		appLogger.Infof("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
	case err != nil:
		log.Fatalf("Failed to seed admin: %v", err)
	case created:
		appLogger.Info(ctx, "admin user created", zap.String("admin_id", admin.ID.String()))
	}

	appMetrics := metrics.New()
	validator := aivalidation.NewClient(cfg.AIServiceURL, time.Duration(cfg.AITimeoutSec)*time.Second)
	if !validator.Enabled() {
		appLogger.Warnf("AI_SERVICE_URL not set, AI validation is skipped")
	}

	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo)
	donationService := services.NewDonationService(
		donationRepo,
		userRepo,
		images,
		validator,
		services.NewEventPublisher(bus, appLogger),
		appMetrics,
		appLogger,
		services.DonationServiceOptions{VerifyMedicineExpiry: cfg.AIVerifyMedicineExpiry},
	)

	srv := server.New(cfg, appLogger)
	srv.SetupRoutes(&server.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		Donation: handler.NewDonationHandler(donationService, cfg.UploadMaxBytes),
	}, server.Dependencies{
		Resolver:    authService,
		RateLimiter: limiter,
		HealthCheck: healthCheck,
	})

	if err := srv.Start(); err != nil {
		appLogger.Errorf("Server exited with error: %v", err)
	}
}
