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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/gpolens/internal/application"
	appanalysis "github.com/bryanwahyu/gpolens/internal/application/analysis"
	appruns "github.com/bryanwahyu/gpolens/internal/application/runs"
	"github.com/bryanwahyu/gpolens/internal/config"
	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	"github.com/bryanwahyu/gpolens/internal/infra/ai"
	"github.com/bryanwahyu/gpolens/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/gpolens/internal/infra/db/mysql"
	"github.com/bryanwahyu/gpolens/internal/infra/db/postgres"
	"github.com/bryanwahyu/gpolens/internal/infra/httpserver"
	"github.com/bryanwahyu/gpolens/internal/infra/logging"
	minioStore "github.com/bryanwahyu/gpolens/internal/infra/storage"
	"github.com/bryanwahyu/gpolens/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	oracle, err := ai.NewOracle(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("oracle init: %w", err)
	}

	pipeline := appanalysis.NewService(oracle, logger.Named("pipeline"))
	pipeline.Limits = analysis.Limits{
		MaxBatchSize:  cfg.Analysis.MaxBatchSize,
		MaxTotalBytes: cfg.Analysis.MaxTotalBytes,
	}
	pipeline.FindingSample = cfg.Analysis.FindingSample

	svc := &appruns.Service{
		Pipeline: pipeline,
		Clock:    application.SystemClock{},
		Logger:   logger.Named("runs"),
	}

	// connect database
	var db *sql.DB
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		svc.Repo = mysqlp.NewRunRepository(db)
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		svc.Repo = postgres.NewRunRepository(db)
	default:
		logger.Warn("no database configured, runs are not archived")
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// init minio
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		svc.Artifacts = store
		checkers["storage"] = middleware.CheckFunc(store.Ping)
	}

	// init redis
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		sessions := cache.NewSessionCache(rdb, cfg.Redis.SessionTTL)
		if err := sessions.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		svc.Sessions = sessions
		checkers["redis"] = middleware.CheckFunc(sessions.Ping)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	defer limiter.Stop()

	handler := httpserver.NewRouter(svc, httpserver.Options{
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimiter: limiter,
		Checkers:    checkers,
		Logger:      logger.Named("http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", addr),
			zap.String("provider", cfg.AI.Provider),
			zap.String("database", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx2)
}
