// Package chatbot wires the matching engine together: an immutable Engine
// built once in the background, a readiness-checked Handle that request
// paths read it through, and the events and metrics around each exchange.
package chatbot

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/upatik/helpdesk-chatbot/engine/convlog"
	"github.com/upatik/helpdesk-chatbot/engine/decision"
	"github.com/upatik/helpdesk-chatbot/engine/intent"
	"github.com/upatik/helpdesk-chatbot/engine/lexical"
	"github.com/upatik/helpdesk-chatbot/engine/semantic"
	"github.com/upatik/helpdesk-chatbot/engine/textnorm"
	"github.com/upatik/helpdesk-chatbot/pkg/fn"
	"github.com/upatik/helpdesk-chatbot/pkg/resilience"
)

// Engine answers messages against a fixed intent set. Everything except
// the conversation log is read-only after construction.
type Engine struct {
	intents    intent.Set
	source     string
	lexical    *lexical.Matcher
	semantic   *semantic.Matcher // nil in fallback mode
	model      string
	breaker    *resilience.Breaker
	thresholds decision.Thresholds
	history    convlog.History
	events     EventPublisher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

type match struct {
	index int
	score float64
}

// Mode reports which matcher answers queries for this engine's lifetime.
func (e *Engine) Mode() decision.Mode {
	if e.semantic != nil {
		return decision.ModeSemantic
	}
	return decision.ModeLexical
}

// Threshold returns the acceptance threshold of the active mode.
func (e *Engine) Threshold() float64 { return e.thresholds.For(e.Mode()) }

// Model returns the embedding provider name, or "" in fallback mode.
func (e *Engine) Model() string { return e.model }

// Intents returns the intent set. It must not be modified.
func (e *Engine) Intents() intent.Set { return e.intents }

// History returns the conversation log.
func (e *Engine) History() convlog.History { return e.history }

// Reset clears the conversation log.
func (e *Engine) Reset() { e.history.Clear() }

// Respond normalizes text, matches it and records the exchange. The
// semantic matcher is tried first when present; any failure there is
// logged and the lexical matcher answers instead.
func (e *Engine) Respond(ctx context.Context, text string) Response {
	start := e.now()
	normalized := textnorm.Normalize(text)

	mode := e.Mode()
	var out decision.Outcome
	if normalized == "" {
		out = decision.Decide(normalized, 0, 0, e.thresholds.For(mode))
	} else {
		var m match
		m, mode = e.match(ctx, normalized)
		out = decision.Decide(normalized, m.index, m.score, e.thresholds.For(mode))
	}

	resp := Response{
		OriginalQuestion:  text,
		ProcessedQuestion: normalized,
		Status:            out.Status,
		Mode:              mode,
		Confidence:        out.Score,
	}
	switch out.Status {
	case decision.StatusSuccess:
		hit := e.intents[out.Index]
		resp.Answer = hit.Answer
		resp.Category = hit.Category
		resp.MatchedQuestion = hit.Question
	case decision.StatusBelowThreshold:
		resp.Answer = BelowThresholdAnswer
		resp.Category = BelowThresholdCategory
		// Cosine can be negative; reported confidence is in [0, 1].
		resp.Confidence = math.Max(0, out.Score)
	default:
		resp.Answer = PreprocessingAnswer
		resp.Category = PreprocessingCategory
		resp.Confidence = 0
	}
	resp.ResponseTime = e.now().Sub(start)

	entry := e.history.Record(convlog.Entry{
		User:         text,
		Bot:          resp.Answer,
		Category:     resp.Category,
		Confidence:   resp.Confidence,
		Status:       string(resp.Status),
		ResponseTime: resp.ResponseTime,
	})
	e.metrics.observe(resp)
	e.publish(ctx, entry, resp)

	e.logger.Info("response",
		"status", resp.Status,
		"mode", resp.Mode,
		"confidence", convlog.Round(resp.Confidence, 3),
		"category", resp.Category,
	)
	return resp
}

func (e *Engine) match(ctx context.Context, normalized string) (match, decision.Mode) {
	if e.semantic != nil {
		r := resilience.CallResult(e.breaker, ctx, func(ctx context.Context) fn.Result[match] {
			idx, score, err := e.semantic.Match(ctx, normalized)
			return fn.FromPair(match{index: idx, score: score}, err)
		})
		m, err := r.Unwrap()
		if err == nil {
			return m, decision.ModeSemantic
		}
		e.logger.Warn("semantic match failed, using lexical fallback", "err", err)
		e.metrics.fallback()
	}
	idx, score := e.lexical.Match(normalized)
	return match{index: idx, score: score}, decision.ModeLexical
}

func (e *Engine) publish(ctx context.Context, entry convlog.Entry, resp Response) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, NewExchange(entry, resp.Mode)); err != nil {
		e.logger.Warn("exchange publish failed", "err", err)
	}
}

// Stats summarizes the conversation log together with the engine's
// configuration.
func (e *Engine) Stats() Stats {
	idx := ""
	if e.semantic != nil {
		idx = e.semantic.Index()
	}
	return Stats{
		Stats:          convlog.Summarize(e.history.Snapshot(), string(decision.StatusSuccess)),
		DatasetSize:    len(e.intents),
		Categories:     e.intents.Categories(),
		Threshold:      e.Threshold(),
		ModelAvailable: e.semantic != nil,
		Mode:           e.Mode(),
		Model:          e.model,
		Index:          idx,
		Source:         e.source,
	}
}

// withHistory returns a copy of e that records into h.
// prune drops vector index rows of tables this engine superseded.
func (e *Engine) prune(ctx context.Context) error {
	if e.semantic == nil {
		return nil
	}
	return e.semantic.Prune(ctx)
}

func (e *Engine) withHistory(h convlog.History) *Engine {
	cp := *e
	cp.history = h
	return &cp
}
