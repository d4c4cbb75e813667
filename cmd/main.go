package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/go-form-playground/config"
	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/container"
	pginfra "github.com/oksasatya/go-form-playground/internal/infrastructure/postgres"
	"github.com/oksasatya/go-form-playground/internal/infrastructure/slides"
	"github.com/oksasatya/go-form-playground/internal/interface/middleware"
	"github.com/oksasatya/go-form-playground/internal/router"
	"github.com/oksasatya/go-form-playground/pkg/clock"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
	"github.com/oksasatya/go-form-playground/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Postgres
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLife,
		HealthCheckPeriod: time.Minute,
		ApplicationName:   cfg.AppName,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	users := pginfra.NewUserRepository(pool)

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// Slides: GCS bucket when configured, SLIDES otherwise
	static := slides.NewStaticRepository(cfg.SlidePairs())
	slideRepo := slides.NewGCSRepository(nil, "", "", static, logger)
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("gcs client init failed, using static slides")
		} else {
			defer func() { _ = gcsClient.Close() }()
			container.SetGCS(gcsClient)
			slideRepo = slides.NewGCSRepository(gcsClient, cfg.GCSBucket, cfg.GCSSlidesPrefix, static, logger)
		}
	}
	slideList, err := slideRepo.List(ctx)
	if err != nil || len(slideList) == 0 {
		log.Fatalf("no carousel slides available: %v", errors.Join(err, application.ErrNoSlides))
	}

	// Elasticsearch (optional)
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch client init failed, indexing disabled")
		es = nil
	}
	if es != nil {
		ensureCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := helpers.EnsureESIndex(ensureCtx, es, cfg.ESUsersIndex, application.UsersIndexMapping); err != nil {
			logger.WithError(err).Warn("elasticsearch unreachable, indexing disabled")
			es = nil
		}
		cancel()
	}
	container.SetES(es)

	// RabbitMQ (optional, only when mail sending is on)
	var publisher application.JobPublisher
	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, cfg.AppName)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, welcome emails disabled")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
			publisher = pub
		}
	}

	// Uniqueness checker
	realClock := clock.New()
	var (
		checker application.UniquenessChecker
		marker  application.TakenMarker
	)
	switch cfg.CheckerMode {
	case "postgres":
		cached := application.NewCachedChecker(application.NewRepositoryChecker(users, logger), rdb, cfg.AvailabilityCacheTTL, logger)
		checker, marker = cached, cached
	default:
		checker = application.NewSimulatedChecker(realClock, cfg.CheckLatency, cfg.TakenProbability, cfg.ExemptEmail)
	}
	logger.WithField("mode", cfg.CheckerMode).Info("email availability checker ready")

	registrar := application.NewRegistrationService(users, logger, es, cfg.ESUsersIndex, publisher, marker)

	sessions := application.NewSessionManager(application.SessionConfig{
		Clock:     realClock,
		Checker:   checker,
		Slides:    slideList,
		Registrar: registrar,
		Logger:    logger,
		Engine: application.EngineOptions{
			DebounceWindow: cfg.DebounceWindow,
			ShakeDuration:  cfg.ShakeDuration,
		},
		NotificationDwell: cfg.NotificationDwell,
		ResetDelay:        cfg.ResetDelay,
	})
	defer sessions.CloseAll()
	go sessions.RunSweeper(ctx, time.Minute, cfg.SessionIdle)

	// Provide singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetJWT(helpers.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL))
	container.SetChecker(checker)
	container.SetSessions(sessions)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}

	reg := router.NewRegistry(r, logger)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
