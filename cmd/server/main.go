package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/yatube/backend/internal/auth"
	"github.com/anonto42/yatube/backend/internal/cache"
	"github.com/anonto42/yatube/backend/internal/media"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/internal/repositories/memory"
	"github.com/anonto42/yatube/backend/internal/router"
	"github.com/anonto42/yatube/backend/pkg/config"
	"github.com/anonto42/yatube/backend/pkg/firebase"
	"github.com/anonto42/yatube/backend/pkg/logging"
)

const indexCacheSize = 1024

func main() {
	logging.Setup()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		fatal("Failed to initialize databases", err)
	}
	defer db.CloseDB()

	deps := router.Dependencies{
		Sessions:      auth.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL),
		SecureCookies: cfg.Production(),
	}

	// Storage
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.New()
		deps.Users, deps.Groups, deps.Posts, deps.Comments, deps.Follows = store, store, store, store, store
		slog.Warn("Using in-memory storage, data is lost on restart.")
	default:
		if err := repositories.AutoMigrate(db.Postgres); err != nil {
			fatal("Failed to auto migrate models", err)
		}
		slog.Info("PostgreSQL auto-migrations completed for all models.")
		deps.Users = repositories.NewPostgresUserRepository(db.Postgres)
		deps.Groups = repositories.NewPostgresGroupRepository(db.Postgres)
		deps.Posts = repositories.NewPostgresPostRepository(db.Postgres)
		deps.Comments = repositories.NewPostgresCommentRepository(db.Postgres)
		deps.Follows = repositories.NewPostgresFollowRepository(db.Postgres)
	}

	// Media
	switch cfg.MediaDriver {
	case config.MediaGridFS:
		store, err := media.NewGridFSStore(db.Mongo.Database(cfg.MongoDatabase))
		if err != nil {
			fatal("Failed to open GridFS bucket", err)
		}
		deps.Media = store
	default:
		deps.Media = media.NewDiskStore(cfg.MediaRoot)
	}
	slog.Info("Media storage ready", "driver", cfg.MediaDriver)

	// Index cache
	switch cfg.CacheDriver {
	case config.CacheRedis:
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, "yatube:", cfg.IndexCacheTTL)
		if err != nil {
			fatal("Failed to connect to Redis", err)
		}
		defer store.Close()
		deps.IndexCache = store
	default:
		deps.IndexCache = cache.NewMemoryStore(indexCacheSize, cfg.IndexCacheTTL)
	}
	slog.Info("Index cache ready", "driver", cfg.CacheDriver, "ttl", cfg.IndexCacheTTL)

	// Initialize Firebase
	fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case errors.Is(err, firebase.ErrNoCredentials):
		slog.Info("Firebase sign-in disabled.")
	case err != nil:
		fatal("Failed to initialize Firebase", err)
	default:
		deps.Firebase = fb.AuthClient
	}

	e, err := router.New(deps)
	if err != nil {
		fatal("Failed to build router", err)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Metrics server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	go func() {
		slog.Info("Server starting", "address", ":"+cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Metrics server shutdown failed", "error", err)
	}
	slog.Info("Server stopped.")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
