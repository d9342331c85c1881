// Command main is the entry point for the group feed server.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groupfeed/internal/cache"
	"groupfeed/internal/config"
	"groupfeed/internal/database"
	"groupfeed/internal/observability"
	"groupfeed/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetGlobalLogger(observability.NewLogger(os.Stdout, cfg.Env))

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "groupfeed",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis is optional; without it the feed fans out in-process only.
	cache.InitRedis(cfg.RedisURL)

	ctx := context.Background()
	media, local, err := buildMedia(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}
	provider, tokens, err := buildIdentity(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize identity provider: %v", err)
	}

	srv, err := server.NewServer(cfg, server.Deps{
		DB:       db,
		Redis:    cache.GetClient(),
		Media:    media,
		Local:    local,
		Identity: provider,
		Tokens:   tokens,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		observability.GlobalLogger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			observability.GlobalLogger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			observability.GlobalLogger.Error("Tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
