package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pagemark/later"
	"github.com/pagemark/later/api"
	"github.com/pagemark/later/config"
	"github.com/pagemark/later/db"
	"github.com/pagemark/later/metrics"
	"github.com/pagemark/later/service"
	"github.com/pagemark/later/storage"
	"github.com/pagemark/later/tracing"
)

func main() {
	// Command-line flags (override the config file)
	configPath := flag.String("config", os.Getenv("LATER_CONFIG"), "Path to config file")
	port := flag.String("port", "", "Server port")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *disableCORS {
		cfg.Server.CORSEnabled = false
	}

	// Setup structured logging with JSON output
	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("later service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("later-api")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// PostgreSQL database (required)
	if cfg.Database.Host == "" {
		logger.Error("database host is required")
		os.Exit(1)
	}

	database, err := db.New(db.Config{DSN: cfg.Database.DSN()})
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("using PostgreSQL database", "host", cfg.Database.Host, "database", cfg.Database.Name)

	// Snapshot archive
	archive, err := buildArchive(cfg.Archive)
	if err != nil {
		logger.Error("failed to initialize snapshot archive", "error", err)
		os.Exit(1)
	}

	resolver := later.NewResolver(later.Config{
		HTTPTimeout:  time.Duration(cfg.Resolver.TimeoutSeconds) * time.Second,
		UserAgent:    cfg.Resolver.UserAgent,
		MaxBodyBytes: cfg.Resolver.MaxBodyBytes,
	}, archive)

	svc := service.New(database, resolver)

	server := api.NewServer(api.Config{
		Addr:        ":" + cfg.Server.Port,
		CORSEnabled: cfg.Server.CORSEnabled,
	}, svc)

	// Publish database pool stats
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.UpdateDBStats(database.DB().Stats())
		}
	}()

	// Start server in a goroutine
	go func() {
		logger.Info("later service starting",
			"port", cfg.Server.Port,
			"database_host", cfg.Database.Host,
			"database_name", cfg.Database.Name,
			"archive_backend", cfg.Archive.Backend,
		)

		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildArchive assembles the snapshot archive named by the config, or nil
// when archival is disabled
func buildArchive(cfg config.ArchiveConfig) (later.Archiver, error) {
	switch cfg.Backend {
	case "s3":
		archive, err := storage.NewS3Archive(storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return archive, nil
	case "fs":
		archive, err := storage.New(storage.Config{BasePath: cfg.BasePath})
		if err != nil {
			return nil, err
		}
		return archive, nil
	}
	return nil, nil
}
