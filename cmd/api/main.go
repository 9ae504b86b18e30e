package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/buddyspace/buddyspace-api/internal/config"
	"github.com/buddyspace/buddyspace-api/internal/domain/auth"
	"github.com/buddyspace/buddyspace-api/internal/domain/connection"
	"github.com/buddyspace/buddyspace-api/internal/domain/event"
	"github.com/buddyspace/buddyspace-api/internal/domain/user"
	"github.com/buddyspace/buddyspace-api/internal/middleware"
	"github.com/buddyspace/buddyspace-api/internal/pkg/database"
	"github.com/buddyspace/buddyspace-api/internal/pkg/imaging"
	"github.com/buddyspace/buddyspace-api/internal/pkg/jwt"
	"github.com/buddyspace/buddyspace-api/internal/pkg/logger"
	pkgresponse "github.com/buddyspace/buddyspace-api/internal/pkg/response"
	"github.com/buddyspace/buddyspace-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting BuddySpace API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	store, err := newStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}

	processor := imaging.NewProcessor(imaging.DefaultConfig())

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	userCache := user.NewCachedRepository(userRepo, redis, cfg.ProfileCacheTTL)
	connectionRepo := connection.NewRepository(db)

	// ---------- WebSocket hub ----------
	hub := event.NewHub(redis)
	go hub.Run()
	defer hub.Stop()

	// ---------- Services ----------
	userService := user.NewService(userRepo, userCache, store, processor)
	authService := auth.NewService(userRepo, jwtService)
	connectionService := connection.NewService(connectionRepo, userCache, &eventPublisherAdapter{hub: hub})

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userService)
	connectionHandler := connection.NewHandler(connectionService)
	eventHandler := event.NewHandler(hub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(eventHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Mount("/auth", authHandler.Routes())
		r.Mount("/users", userHandler.Routes(authMiddleware))
		r.Mount("/connections", connectionHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3Storage(storage.Config{
			S3Endpoint:  cfg.S3Endpoint,
			S3Region:    cfg.S3Region,
			S3AccessKey: cfg.S3AccessKey,
			S3SecretKey: cfg.S3SecretKey,
			S3Bucket:    cfg.S3Bucket,
			PublicURL:   cfg.PublicURL,
		})
	}
	return storage.NewLocalStorage(cfg.LocalStoragePath, cfg.PublicURL)
}

// eventPublisherAdapter bridges the connection service to the WebSocket hub
type eventPublisherAdapter struct {
	hub *event.Hub
}

func (a *eventPublisherAdapter) Publish(target string, evt connection.Event) {
	a.hub.Publish(target, evt)
}
