package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("chat_requests_total", "Chat requests")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Fatalf("expected 5, got %d", c.Value())
	}
	if r.Counter("chat_requests_total", "") != c {
		t.Fatal("expected same counter instance")
	}
}

func TestGaugeFloat(t *testing.T) {
	r := New()
	g := r.Gauge("dataset_size", "Intents loaded")
	g.Set(14)
	g.Inc()
	g.Dec()
	g.Add(0.5)
	if g.Value() != 14.5 {
		t.Fatalf("expected 14.5, got %g", g.Value())
	}
}

func TestGaugeConcurrentAdd(t *testing.T) {
	g := New().Gauge("in_flight", "")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Inc()
		}()
	}
	wg.Wait()
	if g.Value() != 50 {
		t.Fatalf("expected 50, got %g", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	h := New().Histogram("match_seconds", "", []float64{1.0, 0.1, 0.5})
	h.Observe(0.05)
	h.Observe(0.1)
	h.Observe(0.8)
	h.Observe(2.0)

	buckets, counts, sum, count := h.snapshot()
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}
	if buckets[0] != 0.1 || buckets[2] != 1.0 {
		t.Fatalf("expected sorted buckets, got %v", buckets)
	}
	if counts[0] != 2 || counts[1] != 0 || counts[2] != 1 {
		t.Fatalf("expected [2 0 1], got %v", counts)
	}
	if sum != 0.05+0.1+0.8+2.0 {
		t.Fatalf("unexpected sum %f", sum)
	}
}

func TestHistogramDurations(t *testing.T) {
	h := New().Histogram("latency", "", nil)
	h.Since(time.Now().Add(-10 * time.Millisecond))
	h.ObserveDuration(250 * time.Millisecond)
	_, _, sum, count := h.snapshot()
	if count != 2 {
		t.Fatalf("expected 2 observations, got %d", count)
	}
	if sum < 0.26 {
		t.Fatalf("expected sum >= 0.26, got %f", sum)
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("chat_responses_total", "status", "success", "mode", "semantic")
	want := `chat_responses_total{status="success",mode="semantic"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if WithLabels("bar") != "bar" || WithLabels("bar", "odd") != "bar" {
		t.Fatal("expected name unchanged")
	}
	if got := WithLabels("x", "k", `a"b`); got != `x{k="a\"b"}` {
		t.Fatalf("expected escaped quote, got %s", got)
	}
}

func TestRender(t *testing.T) {
	r := New()
	r.Counter(WithLabels("chat_responses_total", "status", "success"), "Responses by status").Add(7)
	r.Counter(WithLabels("chat_responses_total", "status", "below_threshold"), "").Add(3)
	r.Gauge("chat_dataset_size", "Intents loaded").Set(14)
	r.Gauge("chat_threshold", "Active threshold").Set(0.7)
	h := r.Histogram(WithLabels("chat_match_seconds", "mode", "lexical"), "Match latency", []float64{0.1, 0.5})
	h.Observe(0.05)
	h.Observe(0.3)

	out := r.Render()
	for _, want := range []string{
		"# HELP chat_responses_total Responses by status",
		"# TYPE chat_responses_total counter",
		`chat_responses_total{status="success"} 7`,
		`chat_responses_total{status="below_threshold"} 3`,
		"# TYPE chat_dataset_size gauge",
		"chat_dataset_size 14",
		"chat_threshold 0.7",
		"# TYPE chat_match_seconds histogram",
		`chat_match_seconds_bucket{le="0.1",mode="lexical"} 1`,
		`chat_match_seconds_bucket{le="0.5",mode="lexical"} 2`,
		`chat_match_seconds_bucket{le="+Inf",mode="lexical"} 2`,
		`chat_match_seconds_count{mode="lexical"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE chat_responses_total") != 1 {
		t.Errorf("expected one TYPE line per base name, got:\n%s", out)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("test_total", "test").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "test_total 1") {
		t.Error("missing metric in handler output")
	}
}
