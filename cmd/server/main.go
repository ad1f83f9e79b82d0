package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starfront-server/internal/auth"
	"starfront-server/internal/catalog"
	"starfront-server/internal/middleware"
	"starfront-server/internal/persistence"
	"starfront-server/internal/server"
	serverHandlers "starfront-server/internal/server/handlers"
	"starfront-server/internal/shared/config"
	"starfront-server/internal/shared/cookies"
	"starfront-server/internal/shared/database"
	"starfront-server/internal/shared/logger"
	sharedredis "starfront-server/internal/shared/redis"
	"starfront-server/internal/world"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init()

	cfg := config.GlobalConfig
	log := slog.With("component", "main")
	log.Info("Starting starfront server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
	)

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		loaded, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			log.Error("Failed to load catalog", "path", cfg.Catalog.Path, "error", err)
			os.Exit(1)
		}
		cat = loaded
	}

	backend, healthCheck, err := openBackend(cfg)
	if err != nil {
		log.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	repo := persistence.NewRepository(backend, slog.Default())
	saver := persistence.NewSaver(repo, cfg.Store, slog.Default())

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret)
	if err != nil {
		log.Error("Failed to configure tokens", "error", err)
		os.Exit(1)
	}

	hub := server.NewHub(slog.Default())
	game := world.New(world.Options{
		World:    cfg.World,
		Session:  cfg.Session,
		Catalog:  cat,
		Store:    repo,
		Saver:    saver,
		Notifier: hub,
		Logger:   slog.Default(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := game.Load(ctx); err != nil {
		log.Error("Failed to load world", "error", err)
		os.Exit(1)
	}
	go game.Run(ctx)

	socket := server.NewSocketHandler(game, hub, tokens, cfg.RateLimit, cfg.Frontend.URL, slog.Default())
	health := serverHandlers.NewHealthHandler(cfg.Store.Backend, healthCheck)
	routes := server.NewRoutes(game, socket, health, tokens, cookies.NewPolicy(cfg.Auth, cfg.Frontend))

	corsMiddleware := middleware.NewCORS(cfg.Frontend)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Stop()

	mux := routes.Setup()
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsMiddleware.Middleware(rateLimiter.Middleware(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", httpServer.Addr, "url", cfg.Server.URL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("Server failed", "error", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	hub.CloseAll()
	game.Shutdown()
	if err := saver.Close(shutdownCtx); err != nil {
		log.Error("Pending saves were not flushed", "error", err)
	}
	if err := repo.Close(); err != nil {
		log.Warn("Failed to close store", "error", err)
	}
	log.Info("Server stopped")
}

// openBackend connects the document backend STORE_BACKEND selects, along
// with the probe the health endpoint uses.
func openBackend(cfg *config.Config) (persistence.Backend, serverHandlers.HealthCheck, error) {
	switch cfg.Store.Backend {
	case "postgres", "sqlite":
		dbCfg := cfg.Database
		dbCfg.Driver = cfg.Store.Backend
		db, err := database.Connect(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(context.Background()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return persistence.NewSQLBackend(db), db.PingContext, nil
	case "redis":
		client, err := sharedredis.Connect(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewRedisBackend(client), client.Healthy, nil
	case "memory":
		slog.Warn("Using in-memory store; state is lost on restart")
		return persistence.NewMemoryBackend(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
