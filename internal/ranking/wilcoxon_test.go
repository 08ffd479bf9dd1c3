package ranking

import (
	"testing"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

func TestSignedRankTestAllImproved(t *testing.T) {
	// Every paired difference is positive; reference statistic and p-value
	// computed with the Pratt zero-handling and the normal approximation.
	x := []float64{0.95, 0.80, 0.66, 1.0, 0.50, 0.90, 0.72, 0.61, 0.33, 0.85}
	y := []float64{0.70, 0.75, 0.60, 0.9, 0.45, 0.50, 0.70, 0.50, 0.30, 0.60}

	stat, p, err := SignedRankTest(x, y)
	if err != nil {
		t.Fatalf("SignedRankTest returned error: %v", err)
	}

	if stat != 0 {
		t.Fatalf("statistic = %v, want 0 (no negative differences)", stat)
	}

	if !closeEnough(p, 0.005033508200606253) {
		t.Fatalf("p-value = %v, want 0.005033508200606253", p)
	}
}

func TestSignedRankTestMixedWithZeros(t *testing.T) {
	// Contains ties and zero differences; zeros are ranked (Pratt) rather
	// than dropped before ranking.
	x := []float64{0.95, 0.80, 0.66, 1.0, 0.50, 0.90, 0.72, 0.61, 0.33, 0.85}
	y := []float64{0.90, 0.85, 0.66, 0.95, 0.55, 0.88, 0.75, 0.61, 0.35, 0.80}

	stat, p, err := SignedRankTest(x, y)
	if err != nil {
		t.Fatalf("SignedRankTest returned error: %v", err)
	}

	if !closeEnough(stat, 24.5) {
		t.Fatalf("statistic = %v, want 24.5", stat)
	}

	if !closeEnough(p, 0.8772900142999365) {
		t.Fatalf("p-value = %v, want 0.8772900142999365", p)
	}
}

func TestSignedRankTestIdenticalVectors(t *testing.T) {
	scores := []float64{0.5, 0.7, 0.9, 0.2}

	significant, p, err := IsStatisticallySignificant(scores, scores, DefaultSignificanceLevel)
	if err != nil {
		t.Fatalf("IsStatisticallySignificant returned error: %v", err)
	}

	if significant {
		t.Fatal("identical score vectors must not be statistically significant")
	}

	if p != 1 {
		t.Fatalf("p-value = %v, want 1 for identical vectors", p)
	}
}

func TestSignedRankTestMisalignedInput(t *testing.T) {
	_, _, err := SignedRankTest([]float64{1, 2, 3}, []float64{1, 2})
	if !apperrors.Is(err, apperrors.ErrMisalignedInput) {
		t.Fatalf("expected ErrMisalignedInput, got %v", err)
	}
}

func TestSignedRankTestEmptyInput(t *testing.T) {
	_, _, err := SignedRankTest(nil, nil)
	if !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestIsStatisticallySignificantThreshold(t *testing.T) {
	x := []float64{0.95, 0.80, 0.66, 1.0, 0.50, 0.90, 0.72, 0.61, 0.33, 0.85}
	y := []float64{0.70, 0.75, 0.60, 0.9, 0.45, 0.50, 0.70, 0.50, 0.30, 0.60}

	significant, p, err := IsStatisticallySignificant(x, y, DefaultSignificanceLevel)
	if err != nil {
		t.Fatalf("IsStatisticallySignificant returned error: %v", err)
	}

	if !significant {
		t.Fatalf("p-value %v should be significant at alpha %v", p, DefaultSignificanceLevel)
	}

	// The same data is not significant under an absurdly strict level.
	significant, _, err = IsStatisticallySignificant(x, y, 1e-6)
	if err != nil {
		t.Fatalf("IsStatisticallySignificant returned error: %v", err)
	}

	if significant {
		t.Fatal("p-value should not be significant at alpha 1e-6")
	}
}

func TestRankWithTies(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected []float64
	}{
		{
			name:     "distinct values",
			values:   []float64{0.3, 0.1, 0.2},
			expected: []float64{3, 1, 2},
		},
		{
			name:     "tied values share averaged rank",
			values:   []float64{0.5, 0.5, 0.1},
			expected: []float64{2.5, 2.5, 1},
		},
		{
			name:     "all tied",
			values:   []float64{1, 1, 1, 1},
			expected: []float64{2.5, 2.5, 2.5, 2.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rankWithTies(tt.values)
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Fatalf("rankWithTies(%v) = %v, want %v", tt.values, got, tt.expected)
				}
			}
		})
	}
}
