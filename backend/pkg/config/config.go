package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "research-graph/backend/pkg/errors"
)

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreNeo4j  = "neo4j"
)

// Describer modes
const (
	DescriberSummary = "summary"
	DescriberLLM     = "llm"
)

// Config holds all application configuration
type Config struct {
	// App
	Port       string
	Env        string
	APIEnabled bool

	// Research loop
	SeedTopic             string
	CycleDelay            time.Duration
	RetryDelay            time.Duration
	MaxTopicRetries       int
	CallTimeout           time.Duration
	SearchRate            float64 // outbound requests per second
	SearchBurst           int
	ValidationConcurrency int

	// Knowledge store
	StoreBackend string
	GraphFile    string
	SQLitePath   string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Reports
	OutputDir string

	// AI (concept descriptions)
	Describer        string
	LiteLLMURL       string
	ModelID          string
	OpenRouterAPIKey string

	// Notifications
	DiscordBotToken  string
	DiscordChannelID string
	NatsURL          string
	NatsSubject      string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		APIEnabled:            getEnvBool("API_ENABLED", true),
		SeedTopic:             getEnv("SEED_TOPIC", "Artificial Intelligence"),
		CycleDelay:            getEnvDuration("CYCLE_DELAY", 5*time.Second),
		RetryDelay:            getEnvDuration("RETRY_DELAY", 10*time.Second),
		MaxTopicRetries:       getEnvInt("MAX_TOPIC_RETRIES", 5),
		CallTimeout:           getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		SearchRate:            getEnvFloat("SEARCH_RATE", 1.0),
		SearchBurst:           getEnvInt("SEARCH_BURST", 3),
		ValidationConcurrency: getEnvInt("VALIDATION_CONCURRENCY", 1),
		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
		GraphFile:             getEnv("GRAPH_FILE", "knowledge_graph.json"),
		SQLitePath:            getEnv("SQLITE_PATH", "data/knowledge.db"),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		OutputDir:             getEnv("OUTPUT_DIR", "builds"),
		Describer:             strings.ToLower(getEnv("DESCRIBER", DescriberSummary)),
		LiteLLMURL:            getEnv("LITELLM_URL", "http://localhost:4000"),
		ModelID:               getEnv("MODEL_ID", "openrouter/anthropic/claude-3.5-sonnet"),
		OpenRouterAPIKey:      getEnv("OPENROUTER_API_KEY", ""),
		DiscordBotToken:       getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID:      getEnv("DISCORD_CHANNEL_ID", ""),
		NatsURL:               getEnv("NATS_URL", ""),
		NatsSubject:           getEnv("NATS_SUBJECT", "research.cycle.completed"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SeedTopic) == "" {
		return apperrors.NewConfigValidationFailed("SEED_TOPIC", "must not be empty")
	}
	switch c.StoreBackend {
	case StoreFile:
		if c.GraphFile == "" {
			return apperrors.NewConfigValidationFailed("GRAPH_FILE", "required for file store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return apperrors.NewConfigValidationFailed("SQLITE_PATH", "required for sqlite store")
		}
	case StoreNeo4j:
		if c.Neo4jURI == "" || c.Neo4jUser == "" || c.Neo4jPassword == "" {
			return apperrors.NewConfigValidationFailed("NEO4J_URI", "uri, user and password are required for neo4j store")
		}
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}
	if c.OutputDir == "" {
		return apperrors.NewConfigValidationFailed("OUTPUT_DIR", "must not be empty")
	}
	if c.MaxTopicRetries < 0 {
		return apperrors.NewConfigValidationFailed("MAX_TOPIC_RETRIES", "must be >= 0")
	}
	if c.CallTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("CALL_TIMEOUT", "must be positive")
	}
	if c.SearchRate <= 0 {
		return apperrors.NewConfigValidationFailed("SEARCH_RATE", "must be positive")
	}
	if c.ValidationConcurrency < 1 {
		return apperrors.NewConfigValidationFailed("VALIDATION_CONCURRENCY", "must be >= 1")
	}
	switch c.Describer {
	case DescriberSummary:
	case DescriberLLM:
		if c.LiteLLMURL == "" || c.ModelID == "" {
			return apperrors.NewConfigValidationFailed("LITELLM_URL", "LITELLM_URL and MODEL_ID are required for the llm describer")
		}
	default:
		return apperrors.NewConfigValidationFailed("DESCRIBER", fmt.Sprintf("unknown describer %q", c.Describer))
	}
	// Discord and NATS notifications are optional
	if (c.DiscordBotToken == "") != (c.DiscordChannelID == "") {
		return apperrors.NewConfigValidationFailed("DISCORD_CHANNEL_ID", "DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DiscordEnabled reports whether report notifications go to Discord
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

// NatsEnabled reports whether cycle events are published to NATS
func (c *Config) NatsEnabled() bool {
	return c.NatsURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
