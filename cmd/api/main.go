package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"certverify/docs"
	"certverify/internal/config"
	"certverify/internal/database"
	"certverify/internal/database/migration"
	handlers "certverify/internal/http/handler"
	"certverify/internal/http/middleware"
	"certverify/internal/logging"
	"certverify/internal/metrics"
	apiotel "certverify/internal/otel"
	"certverify/internal/repository"
	"certverify/internal/repository/cache"
	"certverify/internal/repository/postgres"
	"certverify/internal/service"
	"certverify/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg    *config.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "certverify",
	Short:         "Certificate bulk upload and verification service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is auto-loaded by the godotenv import; real env vars take precedence.
		cfg = config.Load()

		var err error
		logger, err = logging.New(cfg.LogLevel, cfg.Location())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the certificates table if it does not exist, then exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// @title Certificate Verification API
// @version 1.0
// @description Bulk certificate upload, QR code generation and verification.
// @BasePath /
func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command_failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	return migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, tracing, err := apiotel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return err
	}

	stores, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	var repo repository.CertificateRepository = postgres.NewCertificatePostgres(db)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("cache_unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		repo = cache.NewCertificateCache(repo, rdb, time.Duration(cfg.Redis.TTLSec)*time.Second, logger)
		logger.Info("cache_enabled", zap.String("addr", cfg.Redis.Addr), zap.Int("ttl_sec", cfg.Redis.TTLSec))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}
	certMetrics, err := metrics.NewCertificates(reg)
	if err != nil {
		return fmt.Errorf("register certificate metrics: %w", err)
	}

	svc := service.NewCertificateService(repo, stores.Uploads, stores.QRCodes, certMetrics)

	app := handlers.NewApp(cfg, logger)
	app.Use(middleware.Tracing(tracing))
	app.Use(middleware.Logger(logger))
	app.Use(promMW.Handler())

	docs.SwaggerInfo.Host = cfg.AppHost
	handlers.RegisterRoutes(app, db, svc, handlers.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
		Gatherer:      reg,
	})

	addr := ":" + cfg.Port
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_starting",
			zap.String("addr", addr),
			zap.String("storage_backend", cfg.Storage.Backend),
			zap.Bool("tracing_enabled", tracing),
		)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server_shutting_down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
