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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"query-gateway/internal/config"
	"query-gateway/internal/database/drivers/warehouses"
	"query-gateway/internal/logging"
	"query-gateway/internal/middleware"
	"query-gateway/internal/router"
	"query-gateway/internal/security"
	"query-gateway/internal/service"
)

var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "query-gateway: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "query-gateway",
		Short:         "Secured REST gateway over the BigQuery warehouse",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configFile)
		},
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file (default ./configs/config.yaml)")

	cmd.AddCommand(&cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK (project %s, listening on %s)\n", cfg.Warehouse.ProjectID, cfg.Server.Addr())
			return nil
		},
	})

	return cmd
}

func serve(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize warehouse
	gcpAuth, err := security.NewGCPAuth(ctx, cfg.Warehouse.CredentialsJSON, cfg.Warehouse.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to resolve GCP credentials: %w", err)
	}
	warehouse, err := warehouses.NewBigQueryDriver(ctx, warehouses.BigQueryConfig{
		ProjectID:    cfg.Warehouse.ProjectID,
		Location:     cfg.Warehouse.Location,
		QueryTimeout: cfg.Warehouse.QueryTimeout,
	}, gcpAuth.ClientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to initialize warehouse: %w", err)
	}
	defer warehouse.Close()

	var metrics *middleware.Metrics
	if cfg.Metrics.Enabled {
		metrics = middleware.NewMetrics()
	}

	// Initialize rate limiting
	var rateLimiter *middleware.RateLimiter
	if cfg.Security.EnableRateLimit {
		rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Requests:        cfg.Security.RateLimitRequests,
			Window:          cfg.Security.RateLimitWindow,
			CleanupInterval: 5 * time.Minute,
		}, metrics)
		defer rateLimiter.Close()
	}

	var recorder service.MetricsRecorder
	if metrics != nil {
		recorder = metrics
	}
	queryService := service.NewQueryService(warehouse, logger, recorder)

	engine := router.New(router.Deps{
		Config:       cfg,
		QueryService: queryService,
		Logger:       logger,
		Metrics:      metrics,
		RateLimiter:  rateLimiter,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", server.Addr),
			zap.String("project_id", cfg.Warehouse.ProjectID),
			zap.String("location", cfg.Warehouse.Location),
			zap.Bool("rate_limit", cfg.Security.EnableRateLimit),
			zap.Bool("metrics", cfg.Metrics.Enabled),
		)
		logger.Info("API documentation available", zap.String("url", fmt.Sprintf("http://localhost:%s/api-docs/index.html", cfg.Server.Port)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
