package semantic

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/upatik/helpdesk-chatbot/pkg/embed"
	"github.com/upatik/helpdesk-chatbot/pkg/fn"
)

// vocabEmbedder maps each text to a fixed vector, or fails for unknown text.
type vocabEmbedder struct {
	vectors map[string][]float32
	calls   int
	failN   int // fail the first failN calls
}

func (v *vocabEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	v.calls++
	if v.calls <= v.failN {
		return nil, errors.New("model warming up")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := v.vectors[t]
		if !ok {
			return nil, errors.New("unknown text " + t)
		}
		out[i] = vec
	}
	return out, nil
}

var fastRetry = fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}

func testEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vectors: map[string][]float32{
		"halo":          {1, 0, 0},
		"hai":           {1, 0, 0},
		"selamat pagi":  {0, 1, 0},
		"lupa password": {0, 0, 2},
		"hai kak":       {1, 0.2, 0},
		"diagonal":      {1, 1, 0},
		"opposite":      {-1, 0, 0},
	}}
}

func TestBuild(t *testing.T) {
	e := testEmbedder()
	qs := []string{"halo", "hai", "selamat pagi", "lupa password"}
	table, err := Build(context.Background(), e, qs, BuildOpts{BatchSize: 3, Retry: fastRetry})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 4 || table.Dim() != 3 {
		t.Fatalf("expected 4x3 table, got %dx%d", table.Len(), table.Dim())
	}
	if e.calls != 2 {
		t.Fatalf("expected 2 batches, got %d calls", e.calls)
	}
	if table.Row(3)[2] != 1 {
		t.Fatalf("expected unit-normalised row, got %v", table.Row(3))
	}
}

func TestBuildRetriesBatch(t *testing.T) {
	e := testEmbedder()
	e.failN = 2
	_, err := Build(context.Background(), e, []string{"halo"}, BuildOpts{BatchSize: 4, Retry: fastRetry})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if e.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", e.calls)
	}
}

func TestBuildFails(t *testing.T) {
	e := testEmbedder()
	e.failN = 100
	_, err := Build(context.Background(), e, []string{"halo"}, BuildOpts{Retry: fastRetry})
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EmbeddingError, got %v", err)
	}
}

func TestBuildMalformed(t *testing.T) {
	short := embed.EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})
	_, err := Build(context.Background(), short, []string{"a", "b"}, BuildOpts{Retry: fastRetry})
	if !errors.Is(err, embed.ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}

	ragged := embed.EmbedderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		if texts[0] == "a" {
			return [][]float32{{1, 0}}, nil
		}
		return [][]float32{{1, 0, 0}}, nil
	})
	_, err = Build(context.Background(), ragged, []string{"a", "b"}, BuildOpts{BatchSize: 1, Retry: fastRetry})
	if !errors.Is(err, embed.ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch, got %v", err)
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(context.Background(), testEmbedder(), nil, BuildOpts{}); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestNewTableMisaligned(t *testing.T) {
	if _, err := NewTable([][]float32{{1}}, 2); !errors.Is(err, embed.ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}

func buildMatcher(t *testing.T, qs []string) (*Matcher, *vocabEmbedder) {
	t.Helper()
	e := testEmbedder()
	table, err := Build(context.Background(), e, qs, BuildOpts{Retry: fastRetry})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return NewMatcher(e, NewMemoryIndex(table), table), e
}

func TestMatch(t *testing.T) {
	m, _ := buildMatcher(t, []string{"selamat pagi", "halo", "lupa password"})
	idx, score, err := m.Match(context.Background(), "hai kak")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	want := 1 / math.Sqrt(1.04)
	if math.Abs(score-want) > 1e-6 {
		t.Fatalf("expected %f, got %f", want, score)
	}
	if m.Index() != "memory" {
		t.Fatalf("expected memory index, got %s", m.Index())
	}
}

func TestMatchTieKeepsLowestIndex(t *testing.T) {
	m, _ := buildMatcher(t, []string{"selamat pagi", "halo", "hai"})
	idx, _, err := m.Match(context.Background(), "halo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected first of tied rows (1), got %d", idx)
	}

	idx, score, err := m.Match(context.Background(), "diagonal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 || math.Abs(score-math.Sqrt(0.5)) > 1e-6 {
		t.Fatalf("expected (0, 0.707), got (%d, %f)", idx, score)
	}
}

func TestMatchNegativeSimilarity(t *testing.T) {
	m, _ := buildMatcher(t, []string{"halo"})
	idx, score, err := m.Match(context.Background(), "opposite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 || score > -0.99 {
		t.Fatalf("expected (0, -1), got (%d, %f)", idx, score)
	}
}

func TestMatchEmbeddingFailure(t *testing.T) {
	m, _ := buildMatcher(t, []string{"halo"})
	_, _, err := m.Match(context.Background(), "not in vocabulary")
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EmbeddingError, got %v", err)
	}
}

func TestMatchMalformedOutput(t *testing.T) {
	table, _ := NewTable([][]float32{{1, 0, 0}}, 1)
	wrongDim := embed.EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})
	_, _, err := NewMatcher(wrongDim, NewMemoryIndex(table), table).Match(context.Background(), "halo")
	if !errors.Is(err, embed.ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch, got %v", err)
	}

	nan := embed.EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{float32(math.NaN()), 0, 0}}, nil
	})
	_, _, err = NewMatcher(nan, NewMemoryIndex(table), table).Match(context.Background(), "halo")
	var ee *EmbeddingError
	if !errors.As(err, &ee) || !errors.Is(err, embed.ErrNonFinite) {
		t.Fatalf("expected EmbeddingError wrapping ErrNonFinite, got %v", err)
	}

	none := embed.EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, nil
	})
	_, _, err = NewMatcher(none, NewMemoryIndex(table), table).Match(context.Background(), "halo")
	if !errors.Is(err, embed.ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}

type brokenIndex struct{ idx int }

func (b brokenIndex) Name() string { return "broken" }

func (b brokenIndex) Nearest(context.Context, []float32) (int, float64, error) {
	if b.idx < 0 {
		return 0, 0, errors.New("unavailable")
	}
	return b.idx, 1, nil
}

func TestMatchIndexFailure(t *testing.T) {
	table, _ := NewTable([][]float32{{1, 0, 0}}, 1)
	e := testEmbedder()

	_, _, err := NewMatcher(e, brokenIndex{idx: -1}, table).Match(context.Background(), "halo")
	var ee *EmbeddingError
	if !errors.As(err, &ee) || ee.Op != "broken search" {
		t.Fatalf("expected search EmbeddingError, got %v", err)
	}

	_, _, err = NewMatcher(e, brokenIndex{idx: 5}, table).Match(context.Background(), "halo")
	if !errors.As(err, &ee) {
		t.Fatalf("expected out-of-range EmbeddingError, got %v", err)
	}
}

func TestMatchIndexInRange(t *testing.T) {
	qs := []string{"halo", "selamat pagi", "lupa password"}
	m, _ := buildMatcher(t, qs)
	for _, q := range []string{"halo", "hai", "selamat pagi", "lupa password", "hai kak", "diagonal", "opposite"} {
		idx, _, err := m.Match(context.Background(), q)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", q, err)
		}
		if idx < 0 || idx >= len(qs) {
			t.Fatalf("%q: index %d out of range", q, idx)
		}
	}
}

func TestMemoryIndexDimMismatch(t *testing.T) {
	table, _ := NewTable([][]float32{{1, 0, 0}}, 1)
	if _, _, err := NewMemoryIndex(table).Nearest(context.Background(), []float32{1}); !errors.Is(err, embed.ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch, got %v", err)
	}
	if _, _, err := NewMemoryIndex(nil).Nearest(context.Background(), []float32{1}); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}
