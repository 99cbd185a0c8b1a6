package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"projecthub/internal/config"
	"projecthub/internal/directory"
	"projecthub/internal/handler"
	"projecthub/internal/httpserver"
	"projecthub/internal/repository"
	"projecthub/internal/service/project"
	"projecthub/pkg/db"
	"projecthub/pkg/logger"
	"projecthub/pkg/mq"
	"projecthub/pkg/otel"
	"projecthub/pkg/redis"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cfg)
	},
}

// projectStore is what the service and /readyz need from a store.
type projectStore interface {
	project.Store
	httpserver.Pinger
}

func runServe(cfg *config.Config) error {
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting projecthub...",
		zap.String("version", version),
		zap.String("env", configEnv),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("directory_url", cfg.Directory.URL),
	)

	shutdownOtel, err := otel.Init(cfg.Otel, version, log)
	if err != nil {
		return fmt.Errorf("failed to init OpenTelemetry: %w", err)
	}
	defer shutdownOtel()

	// Store
	var store projectStore
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory project store, data is lost on restart")
		store = repository.NewMemoryProjectRepository()
	default:
		log.Info("Initializing database connection...")
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return fmt.Errorf("failed to init DB: %w", err)
		}
		defer dbConn.Close()
		log.Info("Database connection established successfully")
		store = repository.NewProjectRepository(dbConn, log)
	}

	// Employee directory
	directoryClient := directory.NewClient(cfg.Directory.URL, cfg.Directory.Timeout, log)
	var employees project.EmployeeDirectory = directoryClient
	if cfg.Directory.CacheEnabled {
		rdb, err := redis.NewRedisClient(cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
		defer rdb.Close()
		employees = directory.NewCachedDirectory(employees, rdb, cfg.Directory.CacheTTL, log)
		log.Info("Employee directory cache enabled", zap.Duration("ttl", cfg.Directory.CacheTTL))
	}

	// MQ Publisher（可选）
	opts := httpserver.Options{
		JWTSecret: cfg.JWT.Secret,
		Store:     store,
		Directory: directoryClient,
	}
	var events project.EventPublisher
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			return fmt.Errorf("failed to init MQ publisher: %w", err)
		}
		defer publisher.Close()
		events = publisher
		opts.Events = publisher
		log.Info("Project events will be published", zap.String("exchange", publisher.Exchange()))
	} else {
		log.Info("MQ url not configured, project events are disabled")
	}

	svc := project.NewService(store, employees, project.NewLoggingCustomerValidator(log), events, log)
	projectHandler := handler.NewProjectHandler(svc, log)
	router := httpserver.NewRouter(projectHandler, opts, log)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-quit:
		log.Info("Shutting down projecthub gracefully...", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("projecthub shutdown complete")
	return nil
}
