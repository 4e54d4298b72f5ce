package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/honeynil/cinematch/internal/api"
	"github.com/honeynil/cinematch/internal/cache"
	"github.com/honeynil/cinematch/internal/config"
	"github.com/honeynil/cinematch/internal/guard"
	"github.com/honeynil/cinematch/internal/handler"
	"github.com/honeynil/cinematch/internal/infrastructure/backend"
	"github.com/honeynil/cinematch/internal/infrastructure/bolt"
	"github.com/honeynil/cinematch/internal/infrastructure/kafka"
	"github.com/honeynil/cinematch/internal/infrastructure/redis"
	"github.com/honeynil/cinematch/internal/observability"
	core "github.com/honeynil/cinematch/internal/repository/postgres"
	service "github.com/honeynil/cinematch/internal/services"
	"github.com/honeynil/cinematch/internal/session"
	_ "github.com/lib/pq"
)

const (
	serviceName    = "cinematch-gateway"
	historyGroupID = "cinematch-history"
	connectTimeout = 30 * time.Second
)

func main() {
	cfg := config.Load()

	shutdown := observability.Setup(serviceName, cfg.OTLPEndpoint)
	defer shutdown(context.Background())

	var redisClient *redis.Client
	if cfg.SessionStorage == config.SessionStorageRedis || cfg.CacheBackend == config.CacheBackendRedis {
		var err error
		redisClient, err = redis.NewClient(cfg.RedisAddr, connectTimeout)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	var storage session.Storage
	switch cfg.SessionStorage {
	case config.SessionStorageRedis:
		storage = redisClient
	case config.SessionStorageBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			log.Fatalf("Failed to open session file %s: %v", cfg.BoltPath, err)
		}
		defer store.Close()
		storage = store
	default:
		storage = session.NewMemoryStorage()
	}

	var responseCache cache.ResponseCache
	if cfg.CacheBackend == config.CacheBackendRedis {
		responseCache = cache.NewRedisCache(redisClient, cfg.CacheTTL)
	} else {
		memoryCache := cache.NewMemoryCache(cfg.CacheTTL)
		defer memoryCache.Close()
		responseCache = memoryCache
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = connectTimeout
	if err := backoff.Retry(db.Ping, eb); err != nil {
		log.Fatalf("Failed to ping Postgres: %v", err)
	}
	interactionRepo := core.NewPostgresInteractionRepository(db)

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.InteractionsTopic, historyGroupID, interactionRepo)
	go consumer.Consume(consumerCtx)
	defer consumer.Close()
	defer stopConsumer()

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	authService := service.NewAuthService(backendClient, responseCache)
	movieService := service.NewMovieService(backendClient, responseCache, producer, interactionRepo, cfg.InteractionsTopic)
	defer movieService.Close()

	sessions := session.NewManager(storage, session.NewDecoder(cfg.JWTSecret), cfg.CookieSecure)
	router := api.SetupRouter(
		handler.NewHandler(authService, movieService),
		guard.New(guard.DefaultLoginPath, guard.DefaultPublicRoutes...),
		sessions,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	slog.Info("server stopped")
}
