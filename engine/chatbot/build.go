package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/upatik/helpdesk-chatbot/engine/convlog"
	"github.com/upatik/helpdesk-chatbot/engine/decision"
	"github.com/upatik/helpdesk-chatbot/engine/intent"
	"github.com/upatik/helpdesk-chatbot/engine/lexical"
	"github.com/upatik/helpdesk-chatbot/engine/semantic"
	"github.com/upatik/helpdesk-chatbot/engine/textnorm"
	"github.com/upatik/helpdesk-chatbot/pkg/embed"
	"github.com/upatik/helpdesk-chatbot/pkg/fn"
	"github.com/upatik/helpdesk-chatbot/pkg/resilience"
)

// DefaultBuildTimeout bounds embedding acquisition and table construction.
const DefaultBuildTimeout = 2 * time.Minute

// ErrUnknownProfile is returned by LookupProfile.
var ErrUnknownProfile = errors.New("chatbot: unknown embedding profile")

var errNoProviders = errors.New("no embedding providers configured")

// Profile is an ordered list of embedding models and the semantic
// threshold calibrated for them.
type Profile struct {
	Name      string
	Models    []string
	Threshold float64
}

// Profiles are the built-in embedding profiles. "none" runs lexical only.
var Profiles = map[string]Profile{
	"lightweight":  {Name: "lightweight", Models: []string{"all-minilm"}, Threshold: 0.5},
	"multilingual": {Name: "multilingual", Models: []string{"paraphrase-multilingual", "nomic-embed-text"}, Threshold: 0.7},
	"none":         {Name: "none", Threshold: 0.5},
}

// LookupProfile returns the named profile.
func LookupProfile(name string) (Profile, error) {
	p, ok := Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// IndexFunc publishes a built table to a vector index and returns it.
type IndexFunc func(ctx context.Context, t *semantic.Table, questions []string) (semantic.Index, error)

// QdrantIndex returns an IndexFunc that syncs tables into store.
func QdrantIndex(store *semantic.QdrantStore) IndexFunc {
	return func(ctx context.Context, t *semantic.Table, questions []string) (semantic.Index, error) {
		idx, err := store.Sync(ctx, t, questions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}

// Options configures Build.
type Options struct {
	// Sources are tried in order; the built-in dataset always follows.
	Sources []intent.Source
	// Providers are tried in order; none means lexical-only.
	Providers  []embed.Provider
	Thresholds decision.Thresholds
	Table      semantic.BuildOpts
	// Timeout bounds the embedding stage. Zero selects DefaultBuildTimeout.
	Timeout time.Duration
	// Index, if set, replaces the in-memory index. Failures fall back to it.
	Index   IndexFunc
	Breaker resilience.BreakerOpts
	Events  EventPublisher
	Metrics *Metrics
	Logger  *slog.Logger
}

type dataset struct {
	set        intent.Set
	source     string
	normalized []string
}

// Build loads the dataset and prepares both matchers. Embedding failures
// never fail the build: the engine comes up in lexical mode instead.
// Build fails only for invalid thresholds or a cancelled ctx.
func Build(ctx context.Context, opts Options) (*Engine, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBuildTimeout
	}
	if opts.Table.Logger == nil {
		opts.Table.Logger = opts.Logger
	}

	pipeline := fn.Then(
		fn.TracedStage("chatbot.load_dataset", loadStage(opts)),
		fn.TracedStage("chatbot.prepare_matchers", prepareStage(opts)),
	)
	return pipeline(ctx, struct{}{}).Unwrap()
}

func loadStage(opts Options) fn.Stage[struct{}, dataset] {
	chain := intent.NewChain(opts.Logger, opts.Sources...)
	return func(ctx context.Context, _ struct{}) fn.Result[dataset] {
		set, src, err := chain.LoadFrom(ctx)
		if err != nil {
			return fn.Err[dataset](fmt.Errorf("chatbot: load dataset: %w", err))
		}
		opts.Logger.Info("dataset loaded", "source", src, "intents", len(set), "categories", len(set.Categories()))
		return fn.Ok(dataset{
			set:        set,
			source:     src,
			normalized: fn.Map(set.Questions(), textnorm.Normalize),
		})
	}
}

func prepareStage(opts Options) fn.Stage[dataset, *Engine] {
	return func(ctx context.Context, ds dataset) fn.Result[*Engine] {
		e := &Engine{
			intents:    ds.set,
			source:     ds.source,
			lexical:    lexical.New(ds.normalized),
			thresholds: opts.Thresholds,
			history:    convlog.New(),
			events:     opts.Events,
			metrics:    opts.Metrics,
			logger:     opts.Logger,
			now:        time.Now,
		}

		sm, model, err := buildSemantic(ctx, opts, ds)
		if cerr := ctx.Err(); cerr != nil {
			return fn.Err[*Engine](fmt.Errorf("chatbot: prepare matchers: %w", cerr))
		}
		if err != nil {
			opts.Logger.Warn("embeddings unavailable, using lexical fallback", "err", err)
			return fn.Ok(e)
		}
		e.semantic = sm
		e.model = model
		e.breaker = resilience.NewBreaker(breakerOpts(opts))
		return fn.Ok(e)
	}
}

func buildSemantic(ctx context.Context, opts Options, ds dataset) (*semantic.Matcher, string, error) {
	if len(opts.Providers) == 0 {
		return nil, "", errNoProviders
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	name, emb, err := embed.FirstAvailable(ctx, opts.Logger, opts.Providers...)
	if err != nil {
		return nil, "", err
	}
	table, err := semantic.Build(ctx, emb, ds.normalized, opts.Table)
	if err != nil {
		return nil, "", err
	}

	var idx semantic.Index = semantic.NewMemoryIndex(table)
	if opts.Index != nil {
		remote, err := opts.Index(ctx, table, ds.set.Questions())
		if err != nil {
			opts.Logger.Warn("vector index sync failed, using in-memory index", "err", err)
		} else {
			idx = remote
		}
	}
	return semantic.NewMatcher(emb, idx, table), name, nil
}

func breakerOpts(opts Options) resilience.BreakerOpts {
	bo := opts.Breaker
	next := bo.OnStateChange
	bo.OnStateChange = func(from, to resilience.State) {
		opts.Logger.Warn("query embedding breaker changed state", "from", from.String(), "to", to.String())
		opts.Metrics.breakerState(to)
		if next != nil {
			next(from, to)
		}
	}
	return bo
}
