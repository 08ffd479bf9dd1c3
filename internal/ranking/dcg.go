// Package ranking computes ranking-quality metrics over judged search result
// sets: DCG and NDCG per query, aggregate group statistics, and a paired
// significance test for comparing two experimental groups.
//
// All functions are pure computations over caller-owned in-memory data; no
// references are retained beyond a call.
package ranking

import (
	"math"
	"sort"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

// DCG computes discounted cumulative gain for a sequence of judgments and a
// parallel sequence of zero-based result positions. Indices need not be
// contiguous, so callers can score a subsequence (e.g. positions 0-4 only).
//
// The +2 in the discount term comes from zero-based indexing: the top
// position gets discount log2(2) = 1. Empty input yields 0.
func DCG(judgments []float64, indices []int) float64 {
	n := len(judgments)
	if len(indices) < n {
		n = len(indices)
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += (math.Pow(2, judgments[i]) - 1) / math.Log2(float64(indices[i])+2)
	}

	return sum
}

// NDCG computes normalized DCG. A nil indices slice defaults to 0..len-1 in
// the order supplied. A nil ideal slice defaults to the input judgments
// sorted descending, i.e. the best ordering achievable from the same
// judgment multiset.
//
// When the ideal DCG is zero (empty ideal, or a query with no relevant
// results at all) the ratio is undefined and ErrUndefinedMetric is returned,
// so callers can exclude such queries from aggregates instead of polluting
// them with a fake 0 or 1.
func NDCG(judgments []float64, indices []int, ideal []float64) (float64, error) {
	if indices == nil {
		indices = make([]int, len(judgments))
		for i := range indices {
			indices[i] = i
		}
	}

	if ideal == nil {
		ideal = append([]float64(nil), judgments...)
		sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	}

	idealDCG := DCG(ideal, indices)
	if idealDCG == 0 {
		return 0, apperrors.ErrUndefinedMetric
	}

	return DCG(judgments, indices) / idealDCG, nil
}
