package crowd

import "sort"

// Error analysis over raw ratings. The aggregate judgment hides systematic
// problems: a result several raters scored zero points at a ranking bug, and
// a result several raters could not judge points at a task-design gap.

// Error kinds reported by the analysis.
const (
	ErrorIrrelevant  = "irrelevant"
	ErrorMissingInfo = "not enough info"

	ratingIrrelevant  = "0"
	ratingUnjudgeable = "-1"

	// consensusThreshold is the number of matching raw ratings needed to
	// call the signal consensus rather than one rater's noise.
	consensusThreshold = 2
)

// ErrorReport flags one query-result pair for manual review.
type ErrorReport struct {
	Query           string `json:"query"`
	Name            string `json:"name"`
	Link            string `json:"link"`
	Kind            string `json:"error_type"`
	NumBadJudgments int    `json:"num_bad_judgments"`
}

func countRating(ratings []string, value string) int {
	n := 0

	for _, r := range ratings {
		if r == value {
			n++
		}
	}

	return n
}

func reportsFor(units []UnitResult, rating, kind string) []ErrorReport {
	var reports []ErrorReport

	for _, unit := range units {
		if unit.Golden {
			continue
		}

		if n := countRating(unit.Ratings, rating); n >= consensusThreshold {
			reports = append(reports, ErrorReport{
				Query:           unit.Query,
				Name:            unit.Name,
				Link:            unit.Link,
				Kind:            kind,
				NumBadJudgments: n,
			})
		}
	}

	return reports
}

// IrrelevantQRPs lists query-result pairs that at least two raters scored
// fully irrelevant.
func IrrelevantQRPs(units []UnitResult) []ErrorReport {
	return reportsFor(units, ratingIrrelevant, ErrorIrrelevant)
}

// MissingInfoQRPs lists query-result pairs that at least two raters marked
// impossible to judge.
func MissingInfoQRPs(units []UnitResult) []ErrorReport {
	return reportsFor(units, ratingUnjudgeable, ErrorMissingInfo)
}

// AnalyzeErrors combines both analyses, sorted by descending bad-judgment
// count so the worst offenders surface first.
func AnalyzeErrors(units []UnitResult) []ErrorReport {
	reports := append(IrrelevantQRPs(units), MissingInfoQRPs(units)...)

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].NumBadJudgments > reports[j].NumBadJudgments
	})

	return reports
}
