package embed

import (
	"errors"
	"math"
	"testing"
)

func TestUnit(t *testing.T) {
	u, err := Unit([]float32{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(u[0])-0.6) > 1e-6 || math.Abs(float64(u[1])-0.8) > 1e-6 {
		t.Fatalf("expected [0.6 0.8], got %v", u)
	}
	if math.Abs(Dot(u, u)-1) > 1e-6 {
		t.Fatalf("expected unit length, got %f", Dot(u, u))
	}
}

func TestUnitErrors(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		want error
	}{
		{"empty", nil, ErrEmptyVector},
		{"zero", []float32{0, 0, 0}, ErrZeroVector},
		{"nan", []float32{1, float32(math.NaN())}, ErrNonFinite},
		{"inf", []float32{float32(math.Inf(1)), 1}, ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unit(tt.v); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	out, dim, err := Check([][]float32{{1, 0}, {0, 2}}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dim != 2 || out[1][1] != 1 {
		t.Fatalf("unexpected result: dim=%d out=%v", dim, out)
	}

	if _, _, err := Check([][]float32{{1, 0}}, 2); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
	if _, _, err := Check([][]float32{{1, 0}, {1}}, 2); !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch, got %v", err)
	}
	if _, _, err := Check([][]float32{{0, 0}}, 1); !errors.Is(err, ErrZeroVector) {
		t.Fatalf("expected ErrZeroVector, got %v", err)
	}
}

