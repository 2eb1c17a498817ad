package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspiranet/internal/blob"
	"inspiranet/internal/config"
	"inspiranet/internal/constants"
	"inspiranet/internal/database"
	"inspiranet/internal/lifecycle"
	"inspiranet/internal/metrics"
	"inspiranet/internal/models"
	"inspiranet/internal/retry"
	"inspiranet/internal/service"
	"inspiranet/internal/tracing"
	"inspiranet/pkg/circuitbreaker"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const blobBreakerName = "blob-store"

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	envFile    = flag.String("env-file", ".env", "Optional dotenv file loaded before the configuration")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("InspiraNet lifecycled %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting InspiraNet lifecycle daemon")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setLogLevel(logger, cfg.LogLevel, *verbose)

	tracingManager := tracing.NewTracingManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := metrics.New(registry)

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.FromConfig(cfg.Retry))
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	blobStore, err := newBlobStore(cfg.Blob, mt, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}

	manager := lifecycle.NewManager(db, blobStore, lifecycle.ConfigFromModel(cfg.Lifecycle),
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(mt))

	ctxWithVerbose := service.WithVerbose(ctx, *verbose)

	scheduler := service.NewScheduler(manager, cfg.Scheduler, logger)
	go scheduler.Start(ctxWithVerbose)
	defer scheduler.Stop()

	watcher := config.NewConfigWatcher(*configPath, logger)
	watcher.OnConfigChange(func(c config.Change) {
		if c.LogLevelChanged() {
			setLogLevel(logger, c.New.LogLevel, *verbose)
		}
		if c.CleanupPolicyChanged() {
			scheduler.SetCleanupPolicy(c.New.Scheduler.DeleteOrphaned, c.New.Lifecycle.SoftDeleteRetentionDays)
		}
	})
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logger.WithError(err).Warn("Configuration watcher stopped")
		}
	}()

	server := NewServer(cfg.Server, db, scheduler, registry, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

// setLogLevel applies the configured level. Debug output requires -verbose.
func setLogLevel(logger *logrus.Logger, configured string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}

	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	if level > logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// newBlobStore opens the file-backed blob store behind a circuit breaker
// whose state is exported as a gauge.
func newBlobStore(cfg models.BlobConfig, mt *metrics.Metrics, logger *logrus.Logger) (*blob.GuardedStore, error) {
	files, err := blob.NewFileStore(cfg.RootDir)
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:             blobBreakerName,
		MaxFailures:      cfg.BreakerMaxFailures,
		Timeout:          time.Duration(cfg.BreakerTimeoutSec) * time.Second,
		HalfOpenMaxCalls: constants.DefaultBreakerHalfOpenMaxCalls,
		Logger:           logger,
		OnStateChange: func(name string, _, to circuitbreaker.State) {
			mt.SetBreakerState(name, int(to))
		},
	})
	mt.SetBreakerState(blobBreakerName, int(circuitbreaker.StateClosed))

	logger.WithField("root_dir", files.Root()).Info("Blob store initialized")
	return blob.NewGuardedStore(files, breaker), nil
}
