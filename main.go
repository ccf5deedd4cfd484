package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lupy1233/cozyhomeV1/internal/api"
	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/certs"
	"github.com/lupy1233/cozyhomeV1/internal/config"
	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/events"
	"github.com/lupy1233/cozyhomeV1/internal/logging"
	"github.com/lupy1233/cozyhomeV1/internal/metrics"
	"github.com/lupy1233/cozyhomeV1/internal/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("initializing database", zap.String("driver", cfg.DatabaseDriver))
	db, err := database.Open(database.Config{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	sessions, closeSessions, err := sessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	notifier, closeNotifier, err := registrationNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	auditRepo := database.NewAuditRepo(db)
	authSvc := auth.NewService(
		database.NewFirmUserRepo(db),
		database.NewFirmRepo(db),
		sessions,
		auth.NewHasher(cfg.BcryptCost),
		logger.Named("auth"),
		auth.WithSessionTTL(cfg.SessionLifetime()),
		auth.WithUniformLoginErrors(cfg.UniformLoginErrors),
		auth.WithMinPasswordLength(cfg.MinPasswordLength),
		auth.WithAudit(auditRepo),
		auth.WithNotifier(notifier),
	)

	metrics.Register(prometheus.DefaultRegisterer)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(logger.Named("http")))
	e.Use(metrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	limiter := auth.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst)
	cookies := auth.Cookies{Secure: cfg.IsProduction()}
	api.RegisterRoutes(e, api.NewHandlers(authSvc, auditRepo, cookies, logger.Named("api")), limiter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	if interval := cfg.SweepInterval(); interval > 0 {
		logger.Info("expired session sweep enabled", zap.Duration("interval", interval))
		g.Go(func() error {
			authSvc.RunSweeper(gctx, interval)
			return nil
		})
	}
	g.Go(func() error {
		return serve(e, cfg, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serve(e *echo.Echo, cfg *config.Config, logger *zap.Logger) error {
	var err error
	if cfg.TLSEnabled {
		certPath, keyPath, certErr := certs.EnsureCertificates(cfg.TLSCertDir)
		if certErr != nil {
			return fmt.Errorf("tls certificates: %w", certErr)
		}
		logger.Info("starting CozyHome firm portal (https)", zap.String("addr", cfg.HTTPAddr))
		err = e.StartTLS(cfg.HTTPAddr, certPath, keyPath)
	} else {
		logger.Info("starting CozyHome firm portal", zap.String("addr", cfg.HTTPAddr))
		err = e.Start(cfg.HTTPAddr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func sessionStore(ctx context.Context, cfg *config.Config, db *database.DB) (auth.SessionStore, func(), error) {
	if cfg.SessionStore != "redis" {
		return database.NewSessionRepo(db), func() {}, nil
	}
	client, err := redisstore.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisstore.NewSessionStore(client), func() { client.Close() }, nil
}

func registrationNotifier(cfg *config.Config, logger *zap.Logger) (auth.RegistrationNotifier, func(), error) {
	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		return events.NewLogPublisher(logger.Named("events")), func() {}, nil
	}
	publisher, err := events.NewKafkaPublisher(brokers, cfg.RegistrationTopic, logger.Named("events"))
	if err != nil {
		return nil, nil, err
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("kafka publisher close failed", zap.Error(err))
		}
	}, nil
}
