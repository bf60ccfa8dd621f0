package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

	"github.com/oksasatya/go-ddd-private-messages/config"
	"github.com/oksasatya/go-ddd-private-messages/internal/application"
	"github.com/oksasatya/go-ddd-private-messages/internal/container"
	pginfra "github.com/oksasatya/go-ddd-private-messages/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-private-messages/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-private-messages/internal/notification"
	"github.com/oksasatya/go-ddd-private-messages/internal/router"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer"
	"github.com/oksasatya/go-ddd-private-messages/pkg/storage"
	"github.com/oksasatya/go-ddd-private-messages/pkg/users"
	"github.com/oksasatya/go-ddd-private-messages/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		AppName:     cfg.AppName,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	// Run migrations using database/sql with pgx stdlib
	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	backend, err := storage.Load(ctx, cfg.StorageBackend, cfg.StorageBackendKwargs)
	if err != nil {
		var ic *storage.ImproperlyConfigured
		if errors.As(err, &ic) && len(ic.Registered) > 0 {
			logger.WithField("registered", ic.Registered).Fatalf("storage backend: %v", err)
		}
		logger.Fatalf("storage backend: %v", err)
	}
	if backend == nil {
		logger.Info("no storage backend configured; attachments disabled")
	}

	var pub *helpers.RabbitPublisher
	if cfg.MailSendEnabled && cfg.MailQueueEnabled {
		pub, err = helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, cfg.AppName)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; notifications fall back to direct send")
			pub = nil
		}
		defer pub.Close()
	}
	var publisher mailer.Publisher
	if pub != nil {
		publisher = pub
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else {
			container.SetES(es)
			if created, err := helpers.ESEnsureIndex(ctx, es, cfg.ESMessagesIndex, []byte(application.MessagesIndexBody)); err != nil {
				logger.WithError(err).Warn("elasticsearch index check failed")
			} else if created {
				helpers.LogInfo(logger, "elasticsearch index created", logrus.Fields{"index": cfg.ESMessagesIndex})
			}
		}
	}

	userModel := users.NewResolver(cfg.UserSchemaVersion, cfg.UserModelTable, cfg.UserModelUsernameField).Model()
	helpers.LogInfo(logger, "user model resolved", logrus.Fields{"table": userModel.Table, "username_field": userModel.UsernameField})

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))
	container.SetMailSender(notification.NewSender(cfg, publisher))
	container.SetStorage(backend)
	container.SetUserModel(userModel)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
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

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
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
