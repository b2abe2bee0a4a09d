package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
)

const (
	ProviderOpenAI    = "openai"
	ProviderVenice    = "venice"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"

	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	BackgroundLocal = "local"
	BackgroundQueue = "queue"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	LLMBaseURL      string
	OpenAIAPIKey    string
	VeniceAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	ModelName       string
	AgentModels     map[string]string // agent type -> model, from LLM_MODEL_<AGENT>

	StorageBackend string
	RedisURL       string
	SessionTTL     time.Duration // zero means sessions never expire
	SQLitePath     string
	AtlasPath      string
	CacheSessions  bool

	BackgroundMode string
	WorkerID       string

	WorldsFile string // optional YAML catalog replacing the built-in worlds
}

func Load() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cache, err := strconv.ParseBool(getEnv("CACHE_SESSIONS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SESSIONS: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		VeniceAPIKey:    getEnv("VENICE_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		ModelName:       getEnv("LLM_MODEL", ""),
		AgentModels:     loadAgentModels(),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageRedis)),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionTTL:     ttl,
		SQLitePath:     getEnv("SQLITE_PATH", "adventure.db"),
		AtlasPath:      getEnv("ATLAS_PATH", "atlas.db"),
		CacheSessions:  cache,

		BackgroundMode: strings.ToLower(getEnv("BACKGROUND_MODE", BackgroundLocal)),
		WorkerID:       getEnv("WORKER_ID", ""),

		WorldsFile: getEnv("WORLDS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and that the selected provider has a key.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderVenice, ProviderAnthropic, ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMProvider != ProviderOllama && c.APIKey() == "" {
		return fmt.Errorf("an API key is required for LLM provider %q", c.LLMProvider)
	}

	switch c.StorageBackend {
	case StorageRedis, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.BackgroundMode {
	case BackgroundLocal:
	case BackgroundQueue:
		if c.StorageBackend == StorageMemory {
			return fmt.Errorf("BACKGROUND_MODE=queue needs a shared store, not %q", c.StorageBackend)
		}
	default:
		return fmt.Errorf("invalid BACKGROUND_MODE %q", c.BackgroundMode)
	}
	return nil
}

// APIKey returns the key for the selected provider. Gemini falls back to
// the OpenAI key, which is how OpenAI-compatible gateways are usually set up.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderVenice:
		return c.VeniceAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		if c.GeminiAPIKey != "" {
			return c.GeminiAPIKey
		}
		return c.OpenAIAPIKey
	}
	return ""
}

// Models builds the per-agent model registry.
func (c *Config) Models() *agent.ModelRegistry {
	return agent.NewModelRegistry(c.ModelName, c.AgentModels)
}

func loadAgentModels() map[string]string {
	models := map[string]string{}
	for _, a := range agent.AgentTypes {
		if v := os.Getenv(agent.EnvKey(a)); v != "" {
			models[a] = v
		}
	}
	return models
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
