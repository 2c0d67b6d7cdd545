package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/clinicware/reservation-api/internal/config"
	"github.com/clinicware/reservation-api/internal/email"
	"github.com/clinicware/reservation-api/internal/handler"
	doctorHandler "github.com/clinicware/reservation-api/internal/handler/doctor"
	reservationHandler "github.com/clinicware/reservation-api/internal/handler/reservation"
	"github.com/clinicware/reservation-api/internal/middleware"
	"github.com/clinicware/reservation-api/internal/repository/postgres"
	"github.com/clinicware/reservation-api/internal/router"
	doctorService "github.com/clinicware/reservation-api/internal/service/doctor"
	reservationService "github.com/clinicware/reservation-api/internal/service/reservation"
	userService "github.com/clinicware/reservation-api/internal/service/user"
	"github.com/clinicware/reservation-api/pkg/auth"
	"github.com/clinicware/reservation-api/pkg/logger"
	"github.com/clinicware/reservation-api/pkg/messaging/redis"
	"github.com/clinicware/reservation-api/pkg/metrics"
	"github.com/clinicware/reservation-api/pkg/storage"
	"github.com/clinicware/reservation-api/pkg/validator"
	"github.com/clinicware/reservation-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// Repositories
	reservationRepo := postgres.NewReservationRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	userRepo := postgres.NewUserRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	var emailSvc email.Service = email.NoopService{}
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewSMTPService(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	reservationSvc := reservationService.NewService(reservationRepo, nil, appLogger)
	doctorSvc := doctorService.NewService(doctorRepo, fileStorage, appLogger)
	userSvc := userService.NewService(userRepo, emailSvc, appLogger)

	// HTTP layer
	tokens := auth.NewTokenManager(auth.Config{
		Secret:      cfg.JWT.Secret,
		ExpiryHours: cfg.JWT.ExpiryHours,
	})
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	validate := validator.New()

	reservationH := reservationHandler.NewHandler(reservationSvc, doctorSvc, fileStorage, validate)
	doctorH := doctorHandler.NewHandler(doctorSvc, userSvc, validate)
	healthH := handler.NewHealthHandler(db)

	r := router.NewRouter(authMiddleware, reservationH, doctorH, healthH, router.Config{
		RateLimit:  rate.Limit(cfg.Server.RateLimit),
		RateBurst:  cfg.Server.RateBurst,
		CORSConfig: middleware.DefaultCORSConfig(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Outbox publisher
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
		Channel:      cfg.Outbox.Channel,
	}, appLogger, metrics.NewMetrics("reservation_api"))
	go outboxProcessor.Start(workerCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
