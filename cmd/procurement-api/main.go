package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/prisma-build/procurement-api/internal/cache"
	"github.com/prisma-build/procurement-api/internal/catalog"
	"github.com/prisma-build/procurement-api/internal/config"
	"github.com/prisma-build/procurement-api/internal/middleware"
	"github.com/prisma-build/procurement-api/internal/observability"
	"github.com/prisma-build/procurement-api/internal/pricing"
	"github.com/prisma-build/procurement-api/internal/procurement"
	"github.com/prisma-build/procurement-api/internal/server"
	"github.com/prisma-build/procurement-api/internal/sim"
)

// Application represents the main application
type Application struct {
	config *config.Config
	server *server.Server
	logger *logrus.Logger
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	if err := setupLogger(logger, cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	cat, err := catalog.New(cfg.Catalog.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier catalog: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"data_dir":  cfg.Catalog.DataDir,
		"suppliers": cat.Size(),
	}).Info("Supplier catalog loaded")

	seed := cfg.Procurement.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := sim.NewLockedRand(seed)
	clock := sim.SystemClock{}

	metrics := observability.New()
	orch := procurement.New(
		cat,
		cache.New(cfg.Procurement.CacheTTL, clock),
		pricing.NewEngine(rng, cfg.Procurement.JitterMin, cfg.Procurement.JitterMax),
		rng,
		clock,
		logger,
		metrics,
		procurement.Options{
			Provider:      cfg.Procurement.Provider,
			LatencyMinMs:  cfg.Procurement.LatencyMinMs,
			LatencyMaxMs:  cfg.Procurement.LatencyMaxMs,
			OverloadOneIn: cfg.Procurement.OverloadOneIn,
			CacheTTL:      cfg.Procurement.CacheTTL,
		},
	)

	srv, err := server.NewServer(orch, &server.ServerConfig{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		Mode:           cfg.Procurement.Provider,
		RateLimit: &middleware.RateLimitConfig{
			Enabled:        cfg.Security.RateLimiting.Enabled,
			RequestsPerMin: cfg.Security.RateLimiting.RequestsPerMin,
			BurstSize:      cfg.Security.RateLimiting.BurstSize,
		},
		Validation: &middleware.ValidationConfig{
			Enabled:  cfg.Security.Validation.Enabled,
			SpecPath: cfg.Security.Validation.OpenAPISpec,
		},
	}, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Application{
		config: cfg,
		server: srv,
		logger: logger,
	}, nil
}

// Run starts the application
func (app *Application) Run() error {
	app.logger.Info("Starting PRISMA Procurement API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		app.logger.WithField("address", ":"+app.config.Server.Port).Info("HTTP server starting")
		if err := app.server.Start(); err != nil {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		app.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	app.logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		app.logger.WithError(err).Error("Server shutdown error")
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Graceful shutdown completed")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(logger *logrus.Logger, config config.LoggingConfig) error {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	logger.SetLevel(level)

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("invalid log format: %s", config.Format)
	}

	switch config.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		// Assume it's a file path
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", config.Output, err)
		}
		logger.SetOutput(file)
	}

	return nil
}

// printUsage prints application usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_PORT        Server port (default: 8080)\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_DATA_DIR    Supplier data directory (default: data)\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_PROVIDER    Provenance label (default: mock-sandbox)\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_SEED        Simulation RNG seed (0 = wall clock)\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_CACHE_TTL   Search cache TTL (e.g. 24h)\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_LOG_LEVEL   Log level (debug,info,warn,error,fatal)\n")
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_LOG_FORMAT  Log format (json,text)\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s --config configs/config.yaml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  PROCUREMENT_PORT=9000 %s\n", os.Args[0])
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "Path to configuration file")
		showHelp   = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if *version {
		fmt.Printf("PRISMA Procurement API v%s\n", server.Version)
		os.Exit(0)
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}
