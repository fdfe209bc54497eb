package lexical

import (
	"testing"

	"github.com/upatik/helpdesk-chatbot/engine/intent"
	"github.com/upatik/helpdesk-chatbot/engine/textnorm"
)

func defaultMatcher() *Matcher {
	qs := intent.Default().Questions()
	normalized := make([]string, len(qs))
	for i, q := range qs {
		normalized[i] = textnorm.Normalize(q)
	}
	return New(normalized)
}

func TestMatchGreeting(t *testing.T) {
	idx, score := defaultMatcher().Match(textnorm.Normalize("Halo"))
	if idx != 2 {
		t.Fatalf("expected Halo intent at index 2, got %d", idx)
	}
	if score != 1.0 {
		t.Fatalf("expected score 1.0, got %f", score)
	}
}

func TestMatchNoOverlap(t *testing.T) {
	idx, score := defaultMatcher().Match(textnorm.Normalize("xyzzy plugh quux"))
	if idx != 0 || score != 0 {
		t.Fatalf("expected (0, 0), got (%d, %f)", idx, score)
	}
}

func TestMatchContainment(t *testing.T) {
	m := defaultMatcher()
	idx, score := m.Match(textnorm.Normalize("halo kak, saya lupa pw siakad nih"))
	// "saya lupa password siakad" is fully contained after substitution.
	if idx != 0 || score != 1.0 {
		t.Fatalf("expected (0, 1.0), got (%d, %f)", idx, score)
	}
}

func TestMatchTieKeepsEarliest(t *testing.T) {
	m := New([]string{"a b", "b c", "a"})
	idx, score := m.Match("b")
	if idx != 0 || score != 0.5 {
		t.Fatalf("expected (0, 0.5), got (%d, %f)", idx, score)
	}
	idx, score = m.Match("a")
	if idx != 2 || score != 1.0 {
		t.Fatalf("expected (2, 1.0), got (%d, %f)", idx, score)
	}
}

func TestMatchDuplicateTokens(t *testing.T) {
	m := New([]string{"selamat selamat pagi"})
	_, score := m.Match("selamat")
	if score != 0.5 {
		t.Fatalf("expected set semantics score 0.5, got %f", score)
	}
}

func TestMatchSkipsEmptyCandidates(t *testing.T) {
	m := New([]string{"", "halo"})
	idx, score := m.Match("halo")
	if idx != 1 || score != 1.0 {
		t.Fatalf("expected (1, 1.0), got (%d, %f)", idx, score)
	}
}

func TestMatchScoreBounds(t *testing.T) {
	m := defaultMatcher()
	queries := []string{"", "selamat", "selamat pagi siang sore malam", "saya lupa password elearning unja dan siakad", "bot bot bot"}
	for _, q := range queries {
		_, score := m.Match(textnorm.Normalize(q))
		if score < 0 || score > 1 {
			t.Fatalf("score %f out of range for %q", score, q)
		}
	}
}
