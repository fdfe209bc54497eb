package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/upatik/helpdesk-chatbot/engine/chatbot"
	"github.com/upatik/helpdesk-chatbot/engine/decision"
	"github.com/upatik/helpdesk-chatbot/engine/semantic"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	CORSOrigin string
	LogFormat  string
	LogLevel   string

	DatasetPath   string
	DatasetSource string
	DatasetWatch  bool
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPass     string

	OllamaURL    string
	Profile      chatbot.Profile
	EmbedModels  []string
	EmbedBatch   int
	EmbedRetries int
	BuildTimeout time.Duration
	Thresholds   decision.Thresholds

	RedisURL      string
	EmbedCacheTTL time.Duration

	QdrantURL        string
	QdrantCollection string
	QdrantOwner      string

	NATSURL         string
	ExchangeSubject string
	AskSubject      string

	RateLimit      float64
	RateBurst      int
	MetricsEnabled bool
}

func loadConfig() (Config, error) {
	profile, err := chatbot.LookupProfile(envOr("EMBED_PROFILE", "lightweight"))
	if err != nil {
		return Config{}, err
	}
	models := envList("EMBED_MODELS", profile.Models)
	if profile.Name == "none" {
		models = nil
	}

	cfg := Config{
		Port:       envOr("PORT", "5000"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		LogFormat:  envOr("LOG_FORMAT", "json"),
		LogLevel:   envOr("LOG_LEVEL", "info"),

		DatasetPath:   envOr("DATASET_PATH", "dataset.json"),
		DatasetSource: envOr("DATASET_SOURCE", "file"),
		DatasetWatch:  envBool("DATASET_WATCH", false),
		Neo4jURL:      envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:     envOr("NEO4J_PASS", "password"),

		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		Profile:      profile,
		EmbedModels:  models,
		EmbedBatch:   envInt("EMBED_BATCH", 4),
		EmbedRetries: envInt("EMBED_RETRIES", 1),
		BuildTimeout: envDuration("BUILD_TIMEOUT", chatbot.DefaultBuildTimeout),
		Thresholds: decision.Thresholds{
			Semantic: envFloat("SEMANTIC_THRESHOLD", profile.Threshold),
			Lexical:  envFloat("LEXICAL_THRESHOLD", decision.DefaultLexicalThreshold),
		},

		RedisURL:      os.Getenv("REDIS_URL"),
		EmbedCacheTTL: envDuration("EMBED_CACHE_TTL", 24*time.Hour),

		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "helpdesk_intents"),
		QdrantOwner:      envOr("QDRANT_OWNER", hostname()),

		NATSURL:         os.Getenv("NATS_URL"),
		ExchangeSubject: envOr("NATS_EXCHANGE_SUBJECT", chatbot.DefaultExchangeSubject),
		AskSubject:      envOr("NATS_ASK_SUBJECT", chatbot.DefaultAskSubject),

		RateLimit:      envFloat("RATE_LIMIT", 10),
		RateBurst:      envInt("RATE_BURST", 20),
		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}
	return cfg, cfg.validate()
}

// hostname tags this instance's Qdrant points unless QDRANT_OWNER is set.
func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return semantic.DefaultOwner
	}
	return h
}

func (c Config) validate() error {
	switch c.DatasetSource {
	case "file", "neo4j":
	default:
		return fmt.Errorf("DATASET_SOURCE must be file or neo4j, got %q", c.DatasetSource)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.EmbedBatch <= 0 {
		return fmt.Errorf("EMBED_BATCH must be positive, got %d", c.EmbedBatch)
	}
	if c.EmbedRetries < 0 {
		return fmt.Errorf("EMBED_RETRIES must not be negative, got %d", c.EmbedRetries)
	}
	return c.Thresholds.Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
