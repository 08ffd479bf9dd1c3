package ranking

import (
	"fmt"
	"sort"

	"github.com/opencatalog/arcs/internal/core/domain"
	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

// NDCG cutoffs reported in group summaries.
const (
	CutoffNDCGAt5  = 5
	CutoffNDCGAt10 = 10
)

// QueryScore holds per-query ranking scores for one (query, domain) pair.
type QueryScore struct {
	Query  string
	Domain string
	DCG    float64
	NDCG   float64
}

// GroupSummary is the aggregate statistics record for one group of judged
// query-result pairs.
type GroupSummary struct {
	NumQueries           int     `json:"num_queries"`
	UnjudgedQRPs         int     `json:"unjudged_qrps"`
	AvgNDCGAt5           float64 `json:"avg_ndcg_at_5"`
	AvgNDCGAt10          float64 `json:"avg_ndcg_at_10"`
	NDCGError            float64 `json:"ndcg_error"`
	Precision            float64 `json:"precision"`
	NumZeroResultQueries int     `json:"num_zero_result_queries"`
	NumIrrelevant        int     `json:"num_irrelevant"`
	NumUndefinedNDCG     int     `json:"num_undefined_ndcg"`
}

// PerQueryScores computes DCG and NDCG@k for every (query, domain) pair in
// rows, normalizing against that query's ideal judgment sequence truncated
// to k.
//
// Only rows carrying a usable judgment participate. Queries without an ideal
// entry are skipped. A query whose rows all fall at position >= k scores
// exactly 0: the query was evaluated and found wanting, which is a real
// outcome, not an undefined one. Queries whose ideal DCG is zero are excluded
// and counted in the second return value instead of corrupting the aggregate.
func PerQueryScores(rows []domain.QueryResultRow, ideals domain.IdealJudgments, k int) ([]QueryScore, int) {
	grouped := make(map[domain.QueryKey][]domain.QueryResultRow)

	for _, row := range rows {
		if !row.HasResult() || !row.Judgment.Usable() {
			continue
		}

		grouped[row.Key()] = append(grouped[row.Key()], row)
	}

	keys := make([]domain.QueryKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Query != keys[j].Query {
			return keys[i].Query < keys[j].Query
		}

		return keys[i].Domain < keys[j].Domain
	})

	scores := make([]QueryScore, 0, len(keys))
	undefined := 0

	for _, key := range keys {
		ideal, ok := ideals[key]
		if !ok {
			continue
		}

		judgments, indices := trim(grouped[key], k)

		if len(judgments) == 0 {
			scores = append(scores, QueryScore{Query: key.Query, Domain: key.Domain})
			continue
		}

		if len(ideal) > k {
			ideal = ideal[:k]
		}

		ndcg, err := NDCG(judgments, indices, ideal)
		if err != nil {
			undefined++
			continue
		}

		scores = append(scores, QueryScore{
			Query:  key.Query,
			Domain: key.Domain,
			DCG:    DCG(judgments, indices),
			NDCG:   ndcg,
		})
	}

	return scores, undefined
}

// trim restricts a query's rows to result positions below the cutoff and
// returns parallel judgment and position slices.
func trim(rows []domain.QueryResultRow, k int) ([]float64, []int) {
	var (
		judgments []float64
		indices   []int
	)

	for _, row := range rows {
		if row.Position >= k {
			continue
		}

		judgments = append(judgments, row.Judgment.Score)
		indices = append(indices, row.Position)
	}

	return judgments, indices
}

// Summarize computes the aggregate statistics record for a group's rows.
// It fails only when not a single query could be scored; per-query undefined
// NDCG outcomes are excluded locally and surfaced through NumUndefinedNDCG.
func Summarize(rows []domain.QueryResultRow, ideals domain.IdealJudgments) (GroupSummary, error) {
	summary := GroupSummary{}

	queries := make(map[domain.QueryKey]struct{})

	var judged, relevant int

	for _, row := range rows {
		queries[row.Key()] = struct{}{}

		if !row.HasResult() {
			summary.NumZeroResultQueries++
			continue
		}

		if !row.Judgment.Valid {
			summary.UnjudgedQRPs++
			continue
		}

		judged++

		if row.Judgment.Relevant() {
			relevant++
		} else {
			// Aggregated judgment below the relevance threshold signals
			// consensus irrelevance, an oddball worth manual review.
			summary.NumIrrelevant++
		}
	}

	summary.NumQueries = len(queries)

	if judged > 0 {
		summary.Precision = float64(relevant) / float64(judged)
	}

	scoresAt5, undefinedAt5 := PerQueryScores(rows, ideals, CutoffNDCGAt5)
	scoresAt10, _ := PerQueryScores(rows, ideals, CutoffNDCGAt10)

	summary.NumUndefinedNDCG = undefinedAt5

	if len(scoresAt5) == 0 {
		return summary, fmt.Errorf("no scorable queries in group: %w", apperrors.ErrInsufficientData)
	}

	summary.AvgNDCGAt5 = meanNDCG(scoresAt5)
	summary.AvgNDCGAt10 = meanNDCG(scoresAt10)
	summary.NDCGError = 1 - summary.AvgNDCGAt5

	return summary, nil
}

// PerDomainNDCG averages per-query NDCG@k scores by catalog domain.
func PerDomainNDCG(rows []domain.QueryResultRow, ideals domain.IdealJudgments, k int) map[string]float64 {
	scores, _ := PerQueryScores(rows, ideals, k)

	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, s := range scores {
		sums[s.Domain] += s.NDCG
		counts[s.Domain]++
	}

	means := make(map[string]float64, len(sums))
	for d, sum := range sums {
		means[d] = sum / float64(counts[d])
	}

	return means
}

func meanNDCG(scores []QueryScore) float64 {
	sum := 0.0
	for _, s := range scores {
		sum += s.NDCG
	}

	return sum / float64(len(scores))
}
