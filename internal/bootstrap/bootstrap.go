// Package bootstrap builds the shared runtime pieces the api and worker
// binaries both need from a Config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/services"
	storageSvc "github.com/jwebster45206/adventure-engine/internal/storage"
	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

const (
	storageWait = 2 * time.Minute
	modelWait   = 10 * time.Minute
)

// Redis connects to cfg.RedisURL and waits for the server to answer.
func Redis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	client, err := storageSvc.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, storageWait)
	defer cancel()
	if err := storageSvc.WaitForRedis(waitCtx, client, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Store opens the configured session store. rdb is reused for the redis
// backend and may be nil otherwise.
func Store(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *slog.Logger) (storage.Store, error) {
	var store storage.Store
	switch cfg.StorageBackend {
	case config.StorageRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis storage needs a redis client")
		}
		store = storageSvc.NewRedisStore(rdb, cfg.SessionTTL, log)
	case config.StorageSQLite:
		s, err := storageSvc.NewSQLiteStore(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		store = s
	case config.StorageMemory:
		store = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	pingCtx, cancel := context.WithTimeout(ctx, storageWait)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	log.Info("Storage connection established", "backend", cfg.StorageBackend)
	return store, nil
}

// Atlas opens the lore store. The memory backend keeps it in process too.
func Atlas(ctx context.Context, cfg *config.Config) (storage.AtlasStore, error) {
	if cfg.StorageBackend == config.StorageMemory {
		return storage.NewMemoryAtlas(), nil
	}
	return storageSvc.NewSQLiteAtlas(ctx, cfg.AtlasPath)
}

// Invoker builds the configured provider, prepares its model and wraps it
// for agent calls.
func Invoker(ctx context.Context, cfg *config.Config, log *slog.Logger) (*agent.Invoker, error) {
	llm, err := services.NewLLMService(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	initCtx, cancel := context.WithTimeout(ctx, modelWait)
	defer cancel()
	if err := llm.InitModel(initCtx, cfg.ModelName); err != nil {
		return nil, fmt.Errorf("failed to initialize model %q: %w", cfg.ModelName, err)
	}
	log.Info("LLM provider ready", "provider", cfg.LLMProvider, "model", cfg.ModelName)
	return agent.NewInvoker(llm, cfg.Models(), log), nil
}
