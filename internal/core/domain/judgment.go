// Package domain defines the entities shared across the relevance-evaluation
// pipeline: judged query-result rows, experimental groups, crowdsourcing jobs,
// and the ideal judgment sequences used to normalize NDCG.
package domain

// Relevance judgments are collected on a graded ordinal scale.
//
// Workers may also mark a result as impossible to judge, which is recorded as
// JudgmentUnjudgeable. That marker is distinct from "no judgment collected
// yet" (Judgment.Valid == false): an unjudgeable result has been seen by
// workers, an unjudged one has not.
const (
	JudgmentIrrelevant       = 0
	JudgmentHighlyRelevant   = 3
	JudgmentUnjudgeable      = -1
	RelevanceThresholdScore  = 1
	ConsensusIrrelevantCount = 2
)

// Judgment is a nullable relevance score. Scores are ordinal integers 0-3 for
// single raters, but aggregation across raters produces fractional values, so
// the score is kept as a float.
type Judgment struct {
	Score float64
	Valid bool
}

// Judged returns a valid judgment.
func Judged(score float64) Judgment {
	return Judgment{Score: score, Valid: true}
}

// Unjudged returns the absent judgment.
func Unjudged() Judgment {
	return Judgment{}
}

// Usable reports whether the judgment can enter metric computations:
// it must exist and must not be the "unable to judge" marker.
func (j Judgment) Usable() bool {
	return j.Valid && j.Score >= 0
}

// Relevant reports whether the judgment clears the ordinal relevance
// threshold (scores of 1-3 are considered relevant, below 1 irrelevant).
func (j Judgment) Relevant() bool {
	return j.Valid && j.Score >= RelevanceThresholdScore
}
