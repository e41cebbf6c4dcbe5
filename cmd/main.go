/*
Package main is the entry point for the linkchat server.

It loads configuration, initializes logging, selects the persistence backends,
bootstraps the default group, serves HTTP and WebSocket traffic and shuts
everything down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/moderation"
	"linkchat/internal/app/service"
	"linkchat/internal/app/storage"
	"linkchat/internal/configs"
	"linkchat/internal/handler"
	"linkchat/internal/pkg/limiter"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/metrics"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("postgres", cfg.DatabaseDSN != "").
		Bool("redis", cfg.RedisURL != "").
		Bool("storage", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	clock := clockwork.NewRealClock()
	mod := moderation.NewState(clock, cfg.SealDuration)
	freq := moderation.NewFrequencyLimiter(clock, moderation.FrequencyWindow)

	var store db.Store = db.NewMemoryStore()
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = db.NewPostgresStore(pool)
	} else {
		logx.Warn("DATABASE_URL not set, using in-memory store. Data is lost on restart.")
	}

	var sockets db.SocketStore = db.NewMemorySocketStore()
	if cfg.RedisURL != "" {
		client, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logx.Fatal(err, "Failed to connect to Redis")
		}
		defer client.Close()
		sockets = db.NewRedisSocketStore(client)
	}
	// Records left over from a previous process describe connections that no longer exist.
	if err := sockets.Reset(ctx); err != nil {
		logx.Fatal(err, "Failed to reset socket records")
	}

	hub := chat.NewHub(m)
	svc := service.New(service.Options{
		AdminUserID:      cfg.AdminUserID,
		TrustedUserID:    cfg.TrustedUserID,
		MaxGroupsCount:   cfg.MaxGroupsCount,
		MaxMessageLength: cfg.MaxMessageLength,
		DefaultGroupName: cfg.DefaultGroupName,
		JWTSecret:        cfg.JWTSecret,
		TokenExpires:     cfg.TokenExpires,
	}, service.Deps{
		Store:      store,
		Sockets:    sockets,
		Hub:        hub,
		Moderation: mod,
		Limiter:    freq,
		Metrics:    m,
	})

	group, err := svc.EnsureDefaultGroup(ctx)
	if err != nil {
		logx.Fatal(err, "Failed to bootstrap default group")
	}
	logx.Info("Default group ready", "group_id", group.ID, "name", group.Name)

	var files storage.Service
	if cfg.StorageEnabled() {
		files, err = storage.New(ctx, storage.Config{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize object storage")
		}
	}

	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(handler.WSRate), handler.WSBurst)
	defer wsLimiter.Stop()

	router := handler.Router(&handler.AppDeps{
		Hub:       hub,
		Config:    cfg,
		Storage:   files,
		Metrics:   m,
		WSLimiter: wsLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("linkchat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Shutdown()
	logx.Info("Server exited gracefully")
}
