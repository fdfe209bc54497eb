package decision

import "testing"

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		index     int
		score     float64
		threshold float64
		want      Outcome
	}{
		{"above", "halo", 3, 0.9, 0.5, Outcome{StatusSuccess, 3, 0.9}},
		{"boundary inclusive", "halo", 1, 0.5, 0.5, Outcome{StatusSuccess, 1, 0.5}},
		{"below", "halo", 1, 0.49, 0.5, Outcome{StatusBelowThreshold, -1, 0.49}},
		{"zero score", "xyzzy", 0, 0, 0.5, Outcome{StatusBelowThreshold, -1, 0}},
		{"empty query high score", "", 2, 1.0, 0.5, Outcome{StatusPreprocessingError, -1, 0}},
		{"empty query zero threshold", "", 0, 0, 0, Outcome{StatusPreprocessingError, -1, 0}},
		{"negative cosine", "halo", 0, -0.2, 0.7, Outcome{StatusBelowThreshold, -1, -0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.query, tt.index, tt.score, tt.threshold)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDecideMonotonic(t *testing.T) {
	for s := 0.0; s <= 1.0; s += 0.05 {
		for th := 0.0; th <= 1.0; th += 0.1 {
			got := Decide("q", 0, s, th).Status
			if s >= th && got != StatusSuccess {
				t.Fatalf("score %v threshold %v: expected success, got %s", s, th, got)
			}
			if s < th && got != StatusBelowThreshold {
				t.Fatalf("score %v threshold %v: expected below_threshold, got %s", s, th, got)
			}
		}
	}
}

func TestThresholdsFor(t *testing.T) {
	th := Thresholds{Semantic: 0.7, Lexical: 0.5}
	if th.For(ModeSemantic) != 0.7 {
		t.Fatalf("expected 0.7, got %v", th.For(ModeSemantic))
	}
	if th.For(ModeLexical) != 0.5 {
		t.Fatalf("expected 0.5, got %v", th.For(ModeLexical))
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := (Thresholds{Semantic: 0.5, Lexical: 0.5}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Thresholds{Semantic: 1.5, Lexical: 0.5}).Validate(); err == nil {
		t.Fatal("expected error for semantic > 1")
	}
	if err := (Thresholds{Semantic: 0.5, Lexical: -0.1}).Validate(); err == nil {
		t.Fatal("expected error for negative lexical")
	}
}
