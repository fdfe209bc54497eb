package chatbot

import (
	"github.com/upatik/helpdesk-chatbot/engine/readiness"
	"github.com/upatik/helpdesk-chatbot/pkg/metrics"
	"github.com/upatik/helpdesk-chatbot/pkg/resilience"
)

var responseBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics records engine activity into a registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg       *metrics.Registry
	fallbacks *metrics.Counter
	reloads   *metrics.Counter
	failed    *metrics.Counter
	phase     *metrics.Gauge
	dataset   *metrics.Gauge
	breaker   *metrics.Gauge
}

// NewMetrics registers the engine metrics in reg.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{
		reg:       reg,
		fallbacks: reg.Counter("chatbot_semantic_fallbacks_total", "Queries answered lexically after a semantic failure"),
		reloads:   reg.Counter("chatbot_reloads_total", "Successful dataset reloads"),
		failed:    reg.Counter("chatbot_reload_failures_total", "Failed dataset reloads"),
		phase:     reg.Gauge("chatbot_readiness_phase", "Readiness phase: 0 not started, 1 loading, 2 ready, 3 failed"),
		dataset:   reg.Gauge("chatbot_dataset_size", "Intents in the active engine"),
		breaker:   reg.Gauge("chatbot_breaker_state", "Query embedding breaker: 0 closed, 1 open, 2 half-open"),
	}
}

func (m *Metrics) observe(resp Response) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("chatbot_responses_total", "status", string(resp.Status), "mode", string(resp.Mode)), "Responses by outcome and matcher").Inc()
	m.reg.Histogram(metrics.WithLabels("chatbot_response_seconds", "mode", string(resp.Mode)), "Engine response time", responseBuckets).ObserveDuration(resp.ResponseTime)
}

func (m *Metrics) fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) readiness(p readiness.Phase) {
	if m == nil {
		return
	}
	m.phase.Set(float64(p))
}

func (m *Metrics) engine(e *Engine) {
	if m == nil || e == nil {
		return
	}
	m.dataset.Set(float64(len(e.intents)))
}

func (m *Metrics) reload(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.reloads.Inc()
	} else {
		m.failed.Inc()
	}
}

func (m *Metrics) breakerState(s resilience.State) {
	if m == nil {
		return
	}
	m.breaker.Set(float64(s))
}
