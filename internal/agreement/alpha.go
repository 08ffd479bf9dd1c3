package agreement

import (
	"fmt"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

// minRatingsPerUnit is the smallest number of ratings for which a unit's
// internal disagreement is defined.
const minRatingsPerUnit = 2

// RaterJudgments holds one rater's judgments keyed by item identifier.
// A missing judgment is an absent key; there is no in-band sentinel value.
type RaterJudgments map[string]float64

// Units maps each item identifier to the ratings assigned to it, across all
// raters. This is the pre-grouped ("preprocessed") input form for Alpha.
type Units map[string][]float64

// ConvertFunc optionally transforms raw ratings while building units, e.g.
// scaling fractional aggregate judgments to integer ranks for Ordinal.
type ConvertFunc func(float64) float64

// UnitsFromRaters regroups per-rater judgment maps into per-item units,
// applying convert to each rating if non-nil.
func UnitsFromRaters(raters []RaterJudgments, convert ConvertFunc) Units {
	units := make(Units)

	for _, rater := range raters {
		for item, rating := range rater {
			if convert != nil {
				rating = convert(rating)
			}

			units[item] = append(units[item], rating)
		}
	}

	return units
}

// Alpha computes Krippendorff's alpha over pre-grouped units with the given
// distance metric.
//
// Units with fewer than two ratings carry no disagreement information and
// are dropped entirely so they cannot dilute the denominator. The observed
// and expected disagreements are computed with the literal nested double
// sums of the standard formula: every unit is also paired against itself,
// and self-pairs contribute zero through the metric. Do not "optimize" the
// self-comparison terms away; they are part of the reference values.
//
// Returns ErrInsufficientData when fewer than two units survive filtering,
// and ErrUndefinedMetric when the expected disagreement is zero (perfect
// agreement with no variance to normalize by).
func Alpha(units Units, metric Metric) (float64, error) {
	retained := make([][]float64, 0, len(units))
	numRatings := 0

	for _, ratings := range units {
		if len(ratings) < minRatingsPerUnit {
			continue
		}

		retained = append(retained, ratings)
		numRatings += len(ratings)
	}

	if len(retained) < 2 {
		return 0, fmt.Errorf("%d units with %d+ ratings: %w",
			len(retained), minRatingsPerUnit, apperrors.ErrInsufficientData)
	}

	observed := 0.0

	for _, ratings := range retained {
		unitSum := 0.0

		for _, a := range ratings {
			for _, b := range ratings {
				unitSum += metric.Distance(a, b)
			}
		}

		observed += unitSum / float64(len(ratings)-1)
	}

	observed /= float64(numRatings)

	expected := 0.0

	for _, ratings := range retained {
		for _, other := range retained {
			for _, a := range ratings {
				for _, b := range other {
					expected += metric.Distance(a, b)
				}
			}
		}
	}

	expected /= float64(numRatings * (numRatings - 1))

	if expected == 0 {
		return 0, fmt.Errorf("zero expected disagreement: %w", apperrors.ErrUndefinedMetric)
	}

	return 1 - observed/expected, nil
}

// AlphaFromRaters is a convenience wrapper that regroups per-rater judgments
// and computes alpha in one step.
func AlphaFromRaters(raters []RaterJudgments, metric Metric, convert ConvertFunc) (float64, error) {
	return Alpha(UnitsFromRaters(raters, convert), metric)
}
