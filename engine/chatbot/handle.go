package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upatik/helpdesk-chatbot/engine/readiness"
	"github.com/upatik/helpdesk-chatbot/pkg/watch"
)

// ErrNotReady is returned while the first engine is still being built.
var ErrNotReady = errors.New("chatbot: engine not ready")

// BuildFunc constructs a fresh engine.
type BuildFunc func(ctx context.Context) (*Engine, error)

// Handle publishes the current engine to request paths. Readers see
// either no engine or a fully built one, never a partial build.
type Handle struct {
	tracker *readiness.Tracker
	current atomic.Pointer[Engine]
	build   BuildFunc
	metrics *Metrics
	logger  *slog.Logger
	done    chan struct{}
	reload  sync.Mutex
	now     func() time.Time
}

// NewHandle returns a handle in NotStarted. Call Start to build.
func NewHandle(build BuildFunc, m *Metrics, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	m.readiness(readiness.NotStarted)
	return &Handle{
		tracker: readiness.NewTracker(),
		build:   build,
		metrics: m,
		logger:  logger,
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Start moves the handle to Loading and builds the engine on a background
// goroutine. It returns immediately; calling it twice is an error.
func (h *Handle) Start(ctx context.Context) error {
	if err := h.tracker.Begin(); err != nil {
		return err
	}
	h.metrics.readiness(readiness.Loading)
	h.logger.Info("engine build started")
	go h.run(ctx)
	return nil
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)
	start := time.Now()

	e, err := h.safeBuild(ctx)
	if err != nil {
		h.logger.Error("engine build failed", "err", err)
		_ = h.tracker.Fail(err.Error())
		h.metrics.readiness(readiness.Failed)
		return
	}
	h.current.Store(e)
	h.metrics.engine(e)
	_ = h.tracker.Ready()
	h.metrics.readiness(readiness.Ready)
	h.logger.Info("engine ready",
		"mode", e.Mode(),
		"model", e.Model(),
		"intents", len(e.intents),
		"threshold", e.Threshold(),
		"elapsed", time.Since(start),
	)
	h.prune(ctx, e)
}

// prune runs after e is published. A request still holding the previous
// engine may miss its deleted rows and falls back to lexical matching.
func (h *Handle) prune(ctx context.Context, e *Engine) {
	if err := e.prune(ctx); err != nil {
		h.logger.Warn("stale index rows not pruned", "err", err)
	}
}

func (h *Handle) safeBuild(ctx context.Context) (e *Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("panic during build: %v", r)
		}
	}()
	e, err = h.build(ctx)
	if err == nil && e == nil {
		err = errors.New("build returned no engine")
	}
	return e, err
}

// Done is closed when the initial build finishes, successfully or not.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the readiness state.
func (h *Handle) State() readiness.State { return h.tracker.State() }

// Engine returns the current engine, ErrNotReady while building, or a
// *readiness.FailedError after a failed build.
func (h *Handle) Engine() (*Engine, error) {
	st := h.tracker.State()
	switch st.Phase {
	case readiness.Ready:
		return h.current.Load(), nil
	case readiness.Failed:
		return nil, st.Err()
	default:
		return nil, ErrNotReady
	}
}

// Ask answers one message and formats the reply.
func (h *Handle) Ask(ctx context.Context, req Ask) AskReply {
	e, err := h.Engine()
	if err != nil {
		return AskReply{Reply: Reply{Status: "error"}, Error: err.Error()}
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return AskReply{Reply: Reply{Status: "error"}, Error: ErrEmptyMessage.Error()}
	}
	return AskReply{Reply: NewReply(e.Respond(ctx, msg), h.now())}
}

// Reload builds a replacement engine and swaps it in. The replacement
// takes over the current conversation log. On failure the current
// engine stays in place.
func (h *Handle) Reload(ctx context.Context) error {
	h.reload.Lock()
	defer h.reload.Unlock()

	old, err := h.Engine()
	if err != nil {
		return err
	}
	next, err := h.safeBuild(ctx)
	if err != nil {
		h.metrics.reload(false)
		return fmt.Errorf("chatbot: reload: %w", err)
	}
	next = next.withHistory(old.history)
	h.current.Store(next)
	h.metrics.engine(next)
	h.metrics.reload(true)
	h.logger.Info("engine reloaded", "mode", next.Mode(), "intents", len(next.intents), "source", next.source)
	h.prune(ctx, next)
	return nil
}

// Watch reloads the engine whenever w reports a change, until ctx is done.
func (h *Handle) Watch(ctx context.Context, w *watch.Watcher) error {
	h.logger.Info("watching dataset", "path", w.Path())
	return w.Run(ctx, func(ctx context.Context) {
		if err := h.Reload(ctx); err != nil {
			h.logger.Warn("dataset reload failed, keeping current engine", "err", err)
		}
	})
}
