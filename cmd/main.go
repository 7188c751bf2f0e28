package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"strokerisk/config"
	qhttp "strokerisk/http"
	"strokerisk/inference"
	"strokerisk/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	artifactPath := flag.String("model_path", "", "artifact path, overrides config")
	port := flag.Int("port", 0, "listen port, overrides config")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	if *artifactPath != "" {
		cfg.Artifact.Path = *artifactPath
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal("failed to build logger", err)
	}
	defer logger.Sync()

	// 2. Load the model before accepting any request
	registry := inference.NewRegistry(cfg.Artifact.Path, cfg.Cache.Size, logger)
	if err := registry.Load(); err != nil {
		logger.Fatal("failed to load model", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Artifact.Watch {
		if err := registry.Watch(ctx); err != nil {
			logger.Fatal("failed to watch artifact", zap.Error(err))
		}
	}

	// 3. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

// fatal reports errors that occur before the logger exists.
func fatal(msg string, err error) {
	logger, _ := zap.NewProduction()
	logger.Fatal(msg, zap.Error(err))
}
