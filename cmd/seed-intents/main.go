// Command seed-intents loads a JSON intent dataset into Neo4j so the
// chatbot can run with DATASET_SOURCE=neo4j.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/upatik/helpdesk-chatbot/engine/intent"
	"github.com/upatik/helpdesk-chatbot/pkg/fn"
)

// nodeWriter is the subset of the intent graph repository seeding needs.
type nodeWriter interface {
	Upsert(ctx context.Context, n intent.Node) error
	DeleteAll(ctx context.Context) error
}

func main() {
	var (
		path     = flag.String("file", envOr("DATASET_PATH", "dataset.json"), "dataset JSON file")
		neo4jURL = flag.String("neo4j", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j bolt URL")
		user     = flag.String("neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j username")
		pass     = flag.String("neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
		reset    = flag.Bool("reset", false, "delete existing intent nodes first")
		builtin  = flag.Bool("builtin", false, "seed the built-in dataset instead of -file")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src intent.Source = intent.NewFileSource(*path)
	if *builtin {
		src = intent.Builtin()
	}
	set, err := src.Load(ctx)
	if err == nil {
		err = set.Validate()
	}
	if err != nil {
		logger.Error("load dataset", "source", src.Name(), "err", err)
		os.Exit(1)
	}

	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*user, *pass, ""))
	if err != nil {
		logger.Error("neo4j connect", "err", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		logger.Error("neo4j unreachable", "url", *neo4jURL, "err", err)
		os.Exit(1)
	}

	n, err := seed(ctx, intent.NewGraphRepo(driver), set, *reset, logger)
	if err != nil {
		logger.Error("seed failed", "written", n, "err", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "source", src.Name(), "intents", n, "categories", len(set.Categories()))
}

// seed writes every intent of set as a node, optionally clearing the label
// first. It returns the number of nodes written.
func seed(ctx context.Context, w nodeWriter, set intent.Set, reset bool, logger *slog.Logger) (int, error) {
	if reset {
		if err := w.DeleteAll(ctx); err != nil {
			return 0, err
		}
		logger.Info("existing intents removed")
	}

	retry := fn.RetryOpts{MaxAttempts: 3, InitialWait: 200 * time.Millisecond, MaxWait: 2 * time.Second}
	for i, node := range intent.Nodes(set) {
		res := fn.Retry(ctx, retry, func(ctx context.Context) fn.Result[struct{}] {
			return fn.FromPair(struct{}{}, w.Upsert(ctx, node))
		})
		if res.IsErr() {
			_, err := res.Unwrap()
			return i, fmt.Errorf("intent %d (%q): %w", i, node.Question, err)
		}
	}
	return len(set), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
