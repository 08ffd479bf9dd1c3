package agreement

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

const floatTolerance = 1e-9

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}

// threeCoders is the classic three-coder worked example: fifteen items,
// each coder skipping some. Missing judgments are absent keys.
func threeCoders() []RaterJudgments {
	rows := []string{
		"*  *  *  *  *  3 4 1 2 1 1 3 3 * 3",
		"1 * 2 1 3 3 4 3 * * * * * * *",
		"* * 2 1 3 4 4 * 2 1 1 3 3 * 4",
	}

	raters := make([]RaterJudgments, 0, len(rows))

	for _, row := range rows {
		rater := make(RaterJudgments)

		for i, field := range strings.Fields(row) {
			if field == "*" {
				continue
			}

			var v float64
			if _, err := fmt.Sscanf(field, "%f", &v); err != nil {
				panic(err)
			}

			rater[fmt.Sprintf("item%02d", i)] = v
		}

		raters = append(raters, rater)
	}

	return raters
}

func TestAlphaThreeCoders(t *testing.T) {
	tests := []struct {
		metric Metric
		want   float64
	}{
		{Nominal{}, 0.691358024691358},
		{Interval{}, 0.8108448928121059},
		{Ratio{}, 0.8089436707842469},
		// Ordinal's distance is a constant multiple of Interval's, and
		// alpha is invariant under scaling the metric.
		{Ordinal{}, 0.8108448928121059},
	}

	units := UnitsFromRaters(threeCoders(), nil)

	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			got, err := Alpha(units, tt.metric)
			if err != nil {
				t.Fatalf("Alpha() error = %v", err)
			}

			if !closeEnough(got, tt.want) {
				t.Errorf("Alpha() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlphaPerfectAgreement(t *testing.T) {
	// Raters agree exactly within every item, but the items themselves
	// differ, so the expected disagreement stays positive.
	units := Units{
		"a": {1, 1, 1},
		"b": {3, 3},
		"c": {2, 2, 2},
	}

	for _, metric := range []Metric{Nominal{}, Interval{}, Ratio{}, Ordinal{}} {
		got, err := Alpha(units, metric)
		if err != nil {
			t.Fatalf("Alpha(%s) error = %v", metric.Name(), err)
		}

		if got != 1 {
			t.Errorf("Alpha(%s) = %v, want 1", metric.Name(), got)
		}
	}
}

func TestAlphaUncorrelatedNearZero(t *testing.T) {
	units := Units{
		"a": {0, 3, 1},
		"b": {2, 2, 0},
		"c": {1, 0, 3},
		"d": {3, 1, 2},
		"e": {0, 2, 2},
		"f": {1, 3, 0},
		"g": {2, 0, 1},
		"h": {3, 3, 1},
		"i": {0, 1, 2},
		"j": {2, 1, 3},
	}

	got, err := Alpha(units, Nominal{})
	if err != nil {
		t.Fatalf("Alpha() error = %v", err)
	}

	if want := -0.16172106824925825; !closeEnough(got, want) {
		t.Errorf("Alpha() = %v, want %v", got, want)
	}

	if math.Abs(got) > 0.3 {
		t.Errorf("Alpha() = %v, want near zero for uncorrelated ratings", got)
	}
}

func TestAlphaDropsSingleRatingUnits(t *testing.T) {
	base := UnitsFromRaters(threeCoders(), nil)

	withStray := make(Units, len(base)+1)
	for item, ratings := range base {
		withStray[item] = ratings
	}
	withStray["stray"] = []float64{2}

	want, err := Alpha(base, Nominal{})
	if err != nil {
		t.Fatalf("Alpha(base) error = %v", err)
	}

	got, err := Alpha(withStray, Nominal{})
	if err != nil {
		t.Fatalf("Alpha(withStray) error = %v", err)
	}

	if got != want {
		t.Errorf("Alpha() = %v after adding single-rating unit, want %v", got, want)
	}
}

func TestAlphaInsufficientData(t *testing.T) {
	tests := []struct {
		name  string
		units Units
	}{
		{"empty", Units{}},
		{"one unit", Units{"a": {1, 2}}},
		{"only single-rating units", Units{"a": {1}, "b": {2}, "c": {3}}},
		{"one pairable unit among strays", Units{"a": {1, 2}, "b": {3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Alpha(tt.units, Nominal{}); !errors.Is(err, apperrors.ErrInsufficientData) {
				t.Errorf("Alpha() error = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestAlphaUndefinedWhenNoVariance(t *testing.T) {
	// Every rating everywhere is identical: the expected disagreement is
	// zero and there is nothing to normalize by.
	units := Units{
		"a": {2, 2},
		"b": {2, 2, 2},
	}

	if _, err := Alpha(units, Interval{}); !errors.Is(err, apperrors.ErrUndefinedMetric) {
		t.Errorf("Alpha() error = %v, want ErrUndefinedMetric", err)
	}
}

func TestUnitsFromRaters(t *testing.T) {
	raters := []RaterJudgments{
		{"q1": 1, "q2": 3},
		{"q1": 2},
	}

	units := UnitsFromRaters(raters, nil)

	if got := len(units["q1"]); got != 2 {
		t.Errorf("len(units[q1]) = %d, want 2", got)
	}

	if got := len(units["q2"]); got != 1 {
		t.Errorf("len(units[q2]) = %d, want 1", got)
	}
}

func TestUnitsFromRatersConvert(t *testing.T) {
	raters := []RaterJudgments{
		{"q1": 1.4, "q2": 2.6},
	}

	units := UnitsFromRaters(raters, math.Round)

	if got := units["q1"][0]; got != 1 {
		t.Errorf("units[q1][0] = %v, want 1", got)
	}

	if got := units["q2"][0]; got != 3 {
		t.Errorf("units[q2][0] = %v, want 3", got)
	}
}

func TestAlphaFromRaters(t *testing.T) {
	got, err := AlphaFromRaters(threeCoders(), Nominal{}, nil)
	if err != nil {
		t.Fatalf("AlphaFromRaters() error = %v", err)
	}

	if want := 0.691358024691358; !closeEnough(got, want) {
		t.Errorf("AlphaFromRaters() = %v, want %v", got, want)
	}
}
