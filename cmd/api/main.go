package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/config"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/email"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/handler/health"
	recordHandler "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/handler/record"
	shareHandler "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/handler/share"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/middleware"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository/memory"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository/postgres"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/router"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/service/notification"
	recordService "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/service/record"
	shareService "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/service/share"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/storage"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/auth"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/logger"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/messaging"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/messaging/redis"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/sharetoken"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/validator"
)

const metricsNamespace = "medical_records"

// stores are the repositories for the selected database driver.
type stores struct {
	prescriptions repository.RecordRepository
	reports       repository.RecordRepository
	users         repository.UserRepository
	health        repository.HealthChecker
	db            *sqlx.DB
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	validator.Setup()
	if !cfg.Log.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metricsNamespace, registry)

	// Initialize repositories
	st, err := openStores(ctx, cfg, m)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to initialize database")
	}
	if st.db != nil {
		defer st.db.Close()
	}

	// Initialize Redis message broker
	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.URL != "" {
		rb, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rb.Close()
		broker = rb
	} else {
		log.Info().Msg("redis not configured, record events are dropped")
	}

	var uploader storage.Uploader
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("failed to initialize file storage")
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		log.Warn().Msg("storage bucket not configured, file uploads are disabled")
	}

	signer, err := sharetoken.NewSigner(cfg.Secrets.ShareSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize share signer")
	}

	sender := email.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Secrets.MailUser, cfg.Secrets.MailPassword, cfg.Mail.From)

	// Initialize services
	maxUpload := cfg.MaxUploadBytes()
	prescriptionSvc := recordService.NewService(st.prescriptions, uploader, broker, m, maxUpload)
	reportSvc := recordService.NewService(st.reports, uploader, broker, m, maxUpload)
	shareSvc := shareService.NewService(shareService.Deps{
		FrontendURL: cfg.Share.FrontendURL,
		Signer:      signer,
		Records:     []repository.RecordRepository{st.prescriptions, st.reports},
		Users:       st.users,
		Notifier:    notification.NewService(sender, m),
		Broker:      broker,
		Metrics:     m,
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Secrets.JWTSecret), st.users, middleware.DefaultAuthConfig())

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(st.health),
		shareHandler.NewHandler(shareSvc),
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MaxUploadSize: 2 * maxUpload,
			CORSConfig:    middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins...),
			Registry:      registry,
			Metrics:       m,
		},
		recordHandler.NewHandler(prescriptionSvc),
		recordHandler.NewHandler(reportSvc),
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exited properly")
}

func openStores(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store, records are lost on restart")
		prescriptions := memory.NewRecordRepository(model.KindPrescription)
		return &stores{
			prescriptions: prescriptions,
			reports:       memory.NewRecordRepository(model.KindReport),
			users:         memory.NewUserRepository(true),
			health:        prescriptions,
		}, nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database, cfg.Secrets.DatabasePassword)
		if err != nil {
			return nil, err
		}
		base := postgres.NewBaseRepository(db, m)
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, base); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &stores{
			prescriptions: postgres.NewRecordRepository(base, model.KindPrescription),
			reports:       postgres.NewRecordRepository(base, model.KindReport),
			users:         postgres.NewUserRepository(base),
			health:        &base,
			db:            db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
