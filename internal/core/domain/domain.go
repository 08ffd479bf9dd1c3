package domain

import "time"

// QueryKey identifies a (query, domain) pair. Results for the same query text
// on different catalog domains are evaluated independently.
type QueryKey struct {
	Query  string
	Domain string
}

// QueryResultRow is one judged (or not yet judged) slot in a group's result
// set. ResultID is empty for zero-result queries: a query that returned
// nothing still occupies a row so the outcome can be counted and penalized.
//
// Rows are immutable once judged. Re-judging the same (domain, query, result)
// triple is redundant and ignored, never treated as an update.
type QueryResultRow struct {
	Query    string
	Domain   string
	ResultID string
	Position int
	Judgment Judgment
}

// Key returns the row's query key.
func (r QueryResultRow) Key() QueryKey {
	return QueryKey{Query: r.Query, Domain: r.Domain}
}

// HasResult reports whether the row corresponds to an actual search result
// rather than a zero-result placeholder.
func (r QueryResultRow) HasResult() bool {
	return r.ResultID != ""
}

// IdealJudgments maps each query to the multiset of judgments observed for it
// across all groups and time, sorted descending. It represents the best
// attainable ranking and is the normalizing denominator for NDCG, computed
// independently of any single group's observed ordering.
type IdealJudgments map[QueryKey][]float64

// Group is one experimental configuration of the search system. Its result
// rows for a fixed set of queries live in storage; the struct carries
// metadata only.
type Group struct {
	ID          string
	Name        string
	Description string
	Params      map[string]any
	CreatedAt   time.Time
}

// Job tracks a unit of work shipped to the crowdsourcing platform.
type Job struct {
	ID          string
	ExternalID  string
	Platform    string
	CreatedAt   time.Time
	CompletedAt time.Time
	Metadata    map[string]any
}

// Completed reports whether the platform has finished the job.
func (j Job) Completed() bool {
	return !j.CompletedAt.IsZero()
}
