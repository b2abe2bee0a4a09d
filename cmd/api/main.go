package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/adventure-engine/internal/bootstrap"
	"github.com/jwebster45206/adventure-engine/internal/catalog"
	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/internal/middleware"
	"github.com/jwebster45206/adventure-engine/internal/services/events"
	queueSvc "github.com/jwebster45206/adventure-engine/internal/services/queue"
	storageSvc "github.com/jwebster45206/adventure-engine/internal/storage"
	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

type pubsub interface {
	events.Publisher
	events.Subscriber
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"storage", cfg.StorageBackend,
		"background_mode", cfg.BackgroundMode)

	ctx := context.Background()

	worlds, err := catalog.Open(cfg.WorldsFile)
	if err != nil {
		log.Error("Failed to load world catalog", "error", err, "file", cfg.WorldsFile)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.StorageBackend == config.StorageRedis || cfg.BackgroundMode == config.BackgroundQueue {
		rdb, err = bootstrap.Redis(ctx, cfg, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
	}

	store, err := bootstrap.Store(ctx, cfg, rdb, log)
	if err != nil {
		log.Error("Failed to open session store", "error", err)
		os.Exit(1)
	}
	// A separate worker process writes sessions too, so caching is only
	// safe when background jobs run here.
	if cfg.CacheSessions && cfg.StorageBackend != config.StorageMemory && cfg.BackgroundMode == config.BackgroundLocal {
		store = storageSvc.NewCachedStore(store, storageSvc.DefaultCacheTTL, log)
	}

	atlas, err := bootstrap.Atlas(ctx, cfg)
	if err != nil {
		log.Error("Failed to open atlas", "error", err, "path", cfg.AtlasPath)
		os.Exit(1)
	}

	inv, err := bootstrap.Invoker(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize LLM provider", "error", err)
		os.Exit(1)
	}

	var bus pubsub
	if rdb != nil {
		bus = events.NewBroadcaster(rdb, log)
	} else {
		bus = events.NewHub(log)
	}

	compressor := engine.NewCompressor(inv, log)
	envgen := engine.NewEnvStateGenerator(inv, log)

	var (
		executor worker.Executor
		local    *worker.LocalExecutor
	)
	switch cfg.BackgroundMode {
	case config.BackgroundQueue:
		executor = worker.NewQueueExecutor(queueSvc.NewTaskQueue(queueSvc.NewClientFromRedis(rdb, log)))
	default:
		local = worker.NewLocalExecutor(worker.NewMaintenance(store, compressor, envgen, bus, log), bus, log)
		executor = local
	}

	svc := worker.NewGameService(worker.ServiceConfig{
		Store:      store,
		Atlas:      atlas,
		Catalog:    worlds,
		Engine:     engine.New(inv, engine.RandomRoller{}, log),
		Compressor: compressor,
		EnvState:   envgen,
		Settler:    settlement.NewSettler(inv, log),
		Executor:   executor,
		Logger:     log,
	})

	mux := http.NewServeMux()

	health := map[string]handlers.Pinger{"store": store}
	if rdb != nil {
		health["redis"] = handlers.Pinger(redisPinger{rdb})
	}
	mux.Handle("/health", handlers.NewHealthHandler(health, log))

	gameHandler := handlers.NewGameHandler(svc, log)
	mux.Handle("/v1/game/", gameHandler)

	mux.Handle("/v1/events/session/", handlers.NewEventsHandler(bus, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: turns can take minutes and SSE streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Let in-flight compression and sensor jobs persist their results
	if local != nil {
		local.Wait()
	}

	closeAll(log, store, atlas, rdb)
	log.Info("Server exited")
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// closeAll closes the stores, then the shared redis pool unless the redis
// store already closed it.
func closeAll(log *slog.Logger, store storage.Store, atlas storage.AtlasStore, rdb *redis.Client) {
	if err := store.Close(); err != nil {
		log.Error("Error closing session store", "error", err)
	}
	if err := atlas.Close(); err != nil {
		log.Error("Error closing atlas", "error", err)
	}
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil && err != redis.ErrClosed {
		log.Error("Error closing redis client", "error", err)
	}
}
