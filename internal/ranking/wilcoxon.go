package ranking

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

// DefaultSignificanceLevel is the alpha used when comparing two groups.
const DefaultSignificanceLevel = 0.05

// SignedRankTest runs the paired Wilcoxon signed-rank test over two score
// vectors paired by index. Zero differences are handled with the Pratt
// correction: they are ranked together with the non-zero differences and then
// removed, rather than being dropped before ranking.
//
// The p-value uses the normal approximation with the tie correction. The two
// inputs must be aligned pairs of the same length (join by query and domain
// before extracting the vectors); a length mismatch is a caller error.
//
// When every difference is zero the test degenerates: the statistic is 0 and
// the p-value is 1, meaning no evidence of any difference.
func SignedRankTest(x, y []float64) (float64, float64, error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("score vectors of length %d and %d: %w",
			len(x), len(y), apperrors.ErrMisalignedInput)
	}

	if len(x) == 0 {
		return 0, 0, fmt.Errorf("empty score vectors: %w", apperrors.ErrInsufficientData)
	}

	diffs := make([]float64, len(x))
	absDiffs := make([]float64, len(x))
	numZero := 0

	for i := range x {
		diffs[i] = x[i] - y[i]
		absDiffs[i] = math.Abs(diffs[i])

		if diffs[i] == 0 {
			numZero++
		}
	}

	if numZero == len(diffs) {
		return 0, 1, nil
	}

	ranks := rankWithTies(absDiffs)

	var rPlus, rMinus float64

	for i, d := range diffs {
		switch {
		case d > 0:
			rPlus += ranks[i]
		case d < 0:
			rMinus += ranks[i]
		}
	}

	stat := math.Min(rPlus, rMinus)

	n := float64(len(diffs))
	nz := float64(numZero)

	mean := n*(n+1)*0.25 - nz*(nz+1)*0.25
	variance := n*(n+1)*(2*n+1) - nz*(nz+1)*(2*nz+1)

	// Tie correction over the ranks of non-zero differences.
	nonZeroRanks := make([]float64, 0, len(diffs)-numZero)

	for i, d := range diffs {
		if d != 0 {
			nonZeroRanks = append(nonZeroRanks, ranks[i])
		}
	}

	variance -= 0.5 * tieCorrection(nonZeroRanks)

	se := math.Sqrt(variance / 24)
	z := (stat - mean) / se

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * normal.Survival(math.Abs(z))

	return stat, p, nil
}

// IsStatisticallySignificant reports whether the paired difference between
// two groups' per-query scores is significant at the given level, along with
// the p-value.
func IsStatisticallySignificant(x, y []float64, alpha float64) (bool, float64, error) {
	_, p, err := SignedRankTest(x, y)
	if err != nil {
		return false, 0, err
	}

	return p <= alpha, p, nil
}

// rankWithTies assigns 1-based ranks, averaging the ranks of tied values.
func rankWithTies(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(i, j int) bool {
		return values[order[i]] < values[order[j]]
	})

	ranks := make([]float64, len(values))

	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && values[order[j+1]] == values[order[i]] {
			j++
		}

		// Average of ranks i+1..j+1.
		avg := float64(i+j+2) / 2

		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}

		i = j + 1
	}

	return ranks
}

// tieCorrection computes Σ t(t²−1) over groups of tied ranks.
func tieCorrection(ranks []float64) float64 {
	counts := make(map[float64]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}

	sum := 0.0

	for _, t := range counts {
		if t > 1 {
			tf := float64(t)
			sum += tf * (tf*tf - 1)
		}
	}

	return sum
}
