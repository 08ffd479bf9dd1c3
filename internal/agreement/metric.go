// Package agreement computes Krippendorff's alpha, the inter-rater
// reliability coefficient used to sanity-check crowdsourced relevance
// judgments before they are trusted for ranking metrics.
package agreement

// Metric measures the disagreement between two ratings. All metrics are pure
// functions returning a non-negative distance, with Distance(a, a) == 0.
type Metric interface {
	Name() string
	Distance(a, b float64) float64
}

// Nominal treats ratings as unordered categories: any two distinct values
// are equally far apart.
type Nominal struct{}

func (Nominal) Name() string { return "nominal" }

func (Nominal) Distance(a, b float64) float64 {
	if a != b {
		return 1
	}

	return 0
}

// Interval treats ratings as points on an interval scale.
type Interval struct{}

func (Interval) Name() string { return "interval" }

func (Interval) Distance(a, b float64) float64 {
	d := a - b
	return d * d
}

// Ratio treats ratings as points on a ratio scale, normalizing the squared
// difference by the pair's magnitude.
type Ratio struct{}

func (Ratio) Name() string { return "ratio" }

func (Ratio) Distance(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}

	d := (a - b) / (a + b)
	return d * d
}

// Ordinal measures disagreement between rank values: the sum over the ranks
// from the lower value up to (but excluding) the higher, of each rank's
// offset from the pair midpoint, squared.
//
// This summation is kept exactly as historically computed, including its
// pre-sorting of the pair, for compatibility with previously published alpha
// values. Note that it reduces to a quarter of the interval distance, so
// alpha under Ordinal coincides with alpha under Interval (alpha is invariant
// under constant scaling of the metric).
type Ordinal struct{}

func (Ordinal) Name() string { return "ordinal" }

func (Ordinal) Distance(a, b float64) float64 {
	lo, hi := int(a), int(b)
	if lo > hi {
		lo, hi = hi, lo
	}

	mid := float64(lo+hi) / 2

	sum := 0.0
	for x := lo; x < hi; x++ {
		sum += float64(x) - mid
	}

	return sum * sum
}
