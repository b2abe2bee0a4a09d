package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/adventure-engine/internal/bootstrap"
	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/internal/services/events"
	"github.com/jwebster45206/adventure-engine/internal/services/queue"
	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"storage", cfg.StorageBackend)

	if cfg.StorageBackend == config.StorageMemory {
		log.Error("The worker needs a shared session store", "storage", cfg.StorageBackend)
		os.Exit(1)
	}

	ctx := context.Background()

	redisClient, err := bootstrap.Redis(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	queueClient := queue.NewClientFromRedis(redisClient, log)
	tasks := queue.NewTaskQueue(queueClient)
	log.Info("Queue service initialized successfully")

	store, err := bootstrap.Store(ctx, cfg, redisClient, log)
	if err != nil {
		log.Error("Failed to open session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing session store", "error", err)
		}
		if cfg.StorageBackend != config.StorageRedis {
			if err := queueClient.Close(); err != nil {
				log.Error("Error closing queue client", "error", err)
			}
		}
	}()

	inv, err := bootstrap.Invoker(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize LLM provider", "error", err)
		os.Exit(1)
	}

	broadcaster := events.NewBroadcaster(redisClient, log)
	maintenance := worker.NewMaintenance(
		store,
		engine.NewCompressor(inv, log),
		engine.NewEnvStateGenerator(inv, log),
		broadcaster,
		log,
	)

	w := worker.New(tasks, maintenance, redisClient, broadcaster, log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	log.Info("Worker started, waiting for tasks...", "worker_id", w.ID())

	select {
	case <-quit:
		log.Info("Worker shutdown signal received")
		w.Stop()
		select {
		case err := <-done:
			if err != nil {
				log.Error("Worker error", "error", err)
			}
		case <-time.After(10 * time.Second):
			log.Warn("Worker did not stop in time")
		}
	case err := <-done:
		if err != nil {
			log.Error("Worker error", "error", err)
		}
	}

	log.Info("Worker exited")
}
