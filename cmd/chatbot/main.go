// Package main runs the helpdesk chatbot HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/upatik/helpdesk-chatbot/engine/chatbot"
	"github.com/upatik/helpdesk-chatbot/engine/intent"
	"github.com/upatik/helpdesk-chatbot/engine/semantic"
	"github.com/upatik/helpdesk-chatbot/pkg/embed"
	"github.com/upatik/helpdesk-chatbot/pkg/fn"
	"github.com/upatik/helpdesk-chatbot/pkg/metrics"
	"github.com/upatik/helpdesk-chatbot/pkg/ollama"
	"github.com/upatik/helpdesk-chatbot/pkg/watch"
)

func main() {
	cfg, err := loadConfig()
	logger := newLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// deps holds the optional backing services. Nil fields are disabled.
type deps struct {
	neo4j  neo4j.DriverWithContext
	redis  *goredis.Client
	qdrant *semantic.QdrantStore
	nats   *nats.Conn
}

func (d *deps) close(ctx context.Context) {
	if d.nats != nil {
		d.nats.Drain()
	}
	if d.qdrant != nil {
		d.qdrant.Close()
	}
	if d.redis != nil {
		d.redis.Close()
	}
	if d.neo4j != nil {
		d.neo4j.Close(ctx)
	}
}

func connect(cfg Config, logger *slog.Logger) (*deps, error) {
	d := &deps{}

	if cfg.DatasetSource == "neo4j" {
		drv, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return d, fmt.Errorf("neo4j driver: %w", err)
		}
		d.neo4j = drv
	}

	if cfg.RedisURL != "" {
		opt, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return d, fmt.Errorf("redis url: %w", err)
		}
		d.redis = goredis.NewClient(opt)
		logger.Info("embedding cache enabled", "ttl", cfg.EmbedCacheTTL)
	}

	if cfg.QdrantURL != "" {
		store, err := semantic.DialQdrant(cfg.QdrantURL, cfg.QdrantCollection, semantic.WithOwner(cfg.QdrantOwner))
		if err != nil {
			return d, fmt.Errorf("qdrant connect: %w", err)
		}
		d.qdrant = store
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("helpdesk-chatbot"))
		if err != nil {
			return d, fmt.Errorf("nats connect: %w", err)
		}
		d.nats = nc
	}
	return d, nil
}

// buildOptions maps configuration and connected services onto engine
// build options.
func buildOptions(cfg Config, d *deps, m *chatbot.Metrics, logger *slog.Logger) chatbot.Options {
	var sources []intent.Source
	if d.neo4j != nil {
		sources = append(sources, intent.NewGraphSource(intent.NewGraphRepo(d.neo4j)))
	}
	sources = append(sources, intent.NewFileSource(cfg.DatasetPath))

	providers := fn.Map(cfg.EmbedModels, func(model string) embed.Provider {
		var wrap func(embed.Embedder) embed.Embedder
		if d.redis != nil {
			wrap = func(e embed.Embedder) embed.Embedder {
				return embed.NewCached(e, d.redis, embed.CacheOpts{Model: model, TTL: cfg.EmbedCacheTTL, Logger: logger})
			}
		}
		return embed.Verified(model, ollama.NewEmbedClient(cfg.OllamaURL, model), wrap)
	})

	table := semantic.DefaultBuildOpts
	table.BatchSize = cfg.EmbedBatch
	table.Retry.MaxAttempts = cfg.EmbedRetries + 1
	table.Logger = logger

	opts := chatbot.Options{
		Sources:    sources,
		Providers:  providers,
		Thresholds: cfg.Thresholds,
		Table:      table,
		Timeout:    cfg.BuildTimeout,
		Metrics:    m,
		Logger:     logger,
	}
	if d.qdrant != nil {
		opts.Index = chatbot.QdrantIndex(d.qdrant)
	}
	if d.nats != nil {
		opts.Events = chatbot.NewNATSEvents(d.nats, cfg.ExchangeSubject)
	}
	return opts
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := connect(cfg, logger)
	defer d.close(context.Background())
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	var m *chatbot.Metrics
	if cfg.MetricsEnabled {
		reg = metrics.New()
		m = chatbot.NewMetrics(reg)
	}

	// --- Engine ---
	opts := buildOptions(cfg, d, m, logger)
	handle := chatbot.NewHandle(func(ctx context.Context) (*chatbot.Engine, error) {
		return chatbot.Build(ctx, opts)
	}, m, logger)
	if err := handle.Start(ctx); err != nil {
		return err
	}
	logger.Info("engine configured",
		"profile", cfg.Profile.Name,
		"models", cfg.EmbedModels,
		"dataset_source", cfg.DatasetSource,
		"semantic_threshold", cfg.Thresholds.Semantic,
		"lexical_threshold", cfg.Thresholds.Lexical,
	)

	if cfg.DatasetWatch {
		if cfg.DatasetSource != "file" {
			logger.Warn("DATASET_WATCH ignored for non-file source", "source", cfg.DatasetSource)
		} else {
			w, err := watch.New(cfg.DatasetPath, watch.DefaultDebounce, logger)
			if err != nil {
				return fmt.Errorf("watch dataset: %w", err)
			}
			go handle.Watch(ctx, w)
		}
	}

	// --- NATS request/reply ---
	if d.nats != nil {
		sub, err := chatbot.ServeAsk(d.nats, cfg.AskSubject, handle)
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer sub.Unsubscribe()
		logger.Info("answering questions over nats", "subject", cfg.AskSubject, "events", cfg.ExchangeSubject)
	}

	// --- HTTP server ---
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(newServer(handle, logger), reg, limiter, cfg.CORSOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("chatbot server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
