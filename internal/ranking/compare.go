package ranking

import (
	"sort"

	"github.com/opencatalog/arcs/internal/core/domain"
)

// ExperimentSummary is the comparison record for two groups evaluated over
// the same (domain, query) universe.
type ExperimentSummary struct {
	Group1                   GroupSummary `json:"group1_stats"`
	Group2                   GroupSummary `json:"group2_stats"`
	NumTotalDiffs            int          `json:"num_total_diffs"`
	NumUniqueQRPs            int          `json:"num_unique_qrps"`
	NDCGDelta                float64      `json:"ndcg_delta"`
	StatisticallySignificant bool         `json:"statistically_significant"`
	PValue                   float64      `json:"p_value"`
}

type positionKey struct {
	domain.QueryKey
	Position int
}

type qrpKey struct {
	domain.QueryKey
	ResultID string
}

// Compare summarizes both groups and reports how much their result sets
// diverge: the number of positions where they disagree on the result, the
// number of query-result pairs unique to group 1, the delta in mean NDCG@5,
// and whether that delta is statistically significant under the paired
// Wilcoxon signed-rank test at the given level.
func Compare(g1, g2 []domain.QueryResultRow, ideals domain.IdealJudgments, alpha float64) (ExperimentSummary, error) {
	summary1, err := Summarize(g1, ideals)
	if err != nil {
		return ExperimentSummary{}, err
	}

	summary2, err := Summarize(g2, ideals)
	if err != nil {
		return ExperimentSummary{}, err
	}

	result := ExperimentSummary{
		Group1:        summary1,
		Group2:        summary2,
		NumTotalDiffs: countPositionDiffs(g1, g2),
		NumUniqueQRPs: countUniqueQRPs(g1, g2),
		NDCGDelta:     summary2.AvgNDCGAt5 - summary1.AvgNDCGAt5,
	}

	x, y := pairedScores(g1, g2, ideals)

	significant, p, err := IsStatisticallySignificant(x, y, alpha)
	if err != nil {
		return ExperimentSummary{}, err
	}

	result.StatisticallySignificant = significant
	result.PValue = p

	return result, nil
}

// countPositionDiffs counts result-position slots where both groups returned
// a result but disagree on which one.
func countPositionDiffs(g1, g2 []domain.QueryResultRow) int {
	byPosition := make(map[positionKey]string)

	for _, row := range g1 {
		if row.HasResult() {
			byPosition[positionKey{QueryKey: row.Key(), Position: row.Position}] = row.ResultID
		}
	}

	diffs := 0

	for _, row := range g2 {
		if !row.HasResult() {
			continue
		}

		if id, ok := byPosition[positionKey{QueryKey: row.Key(), Position: row.Position}]; ok && id != row.ResultID {
			diffs++
		}
	}

	return diffs
}

// countUniqueQRPs counts query-result pairs present in group 1 but absent
// from group 2. Assuming both groups cover the same queries with the same
// result count, the count is symmetric.
func countUniqueQRPs(g1, g2 []domain.QueryResultRow) int {
	inG2 := make(map[qrpKey]struct{})

	for _, row := range g2 {
		if row.HasResult() {
			inG2[qrpKey{QueryKey: row.Key(), ResultID: row.ResultID}] = struct{}{}
		}
	}

	seen := make(map[qrpKey]struct{})
	unique := 0

	for _, row := range g1 {
		if !row.HasResult() {
			continue
		}

		key := qrpKey{QueryKey: row.Key(), ResultID: row.ResultID}
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		if _, ok := inG2[key]; !ok {
			unique++
		}
	}

	return unique
}

// pairedScores joins the two groups' per-query NDCG@5 scores by (query,
// domain) and returns the aligned vectors, ordered deterministically.
func pairedScores(g1, g2 []domain.QueryResultRow, ideals domain.IdealJudgments) ([]float64, []float64) {
	scores1, _ := PerQueryScores(g1, ideals, CutoffNDCGAt5)
	scores2, _ := PerQueryScores(g2, ideals, CutoffNDCGAt5)

	byKey := make(map[domain.QueryKey]float64, len(scores2))
	for _, s := range scores2 {
		byKey[domain.QueryKey{Query: s.Query, Domain: s.Domain}] = s.NDCG
	}

	sort.Slice(scores1, func(i, j int) bool {
		if scores1[i].Query != scores1[j].Query {
			return scores1[i].Query < scores1[j].Query
		}

		return scores1[i].Domain < scores1[j].Domain
	})

	var x, y []float64

	for _, s := range scores1 {
		if ndcg, ok := byKey[domain.QueryKey{Query: s.Query, Domain: s.Domain}]; ok {
			x = append(x, s.NDCG)
			y = append(y, ndcg)
		}
	}

	return x, y
}
