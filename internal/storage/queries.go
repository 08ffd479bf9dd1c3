package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// UnjudgedResult is one search result slot awaiting judgment.
type UnjudgedResult struct {
	ResultID string
	Position int
}

// UnjudgedQuery is one sampled query with the result slots collected for it.
// An empty Results slice records a zero-result query: the query still joins
// the group so the outcome can be counted.
type UnjudgedQuery struct {
	Query   string
	Domain  string
	Results []UnjudgedResult
}

// UpsertQuery inserts a (query, domain) pair, returning the existing row's
// id when the pair is already known.
func (db *DB) UpsertQuery(ctx context.Context, query, domain string) (string, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO queries (query, domain)
		VALUES ($1, $2)
		ON CONFLICT (query, domain) DO UPDATE SET query = EXCLUDED.query
		RETURNING id
	`, query, domain)

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("upsert query %q on %s: %w", query, domain, err)
	}

	return fromUUID(id), nil
}

// joinQueryToGroup makes a query part of a group's evaluated set.
func (db *DB) joinQueryToGroup(ctx context.Context, groupID, queryID string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO query_group_join (group_id, query_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, toUUID(groupID), toUUID(queryID))
	if err != nil {
		return fmt.Errorf("join query to group: %w", err)
	}

	return nil
}

// InsertUnjudgedData records a group's collected result sets ahead of
// judgment. Query-result pairs already known keep their existing rows (and
// any judgment already collected for them); the pair is simply bound to the
// new group at its observed position. Returns the number of new and
// redundant query-result pairs.
func (db *DB) InsertUnjudgedData(ctx context.Context, jobID, groupID string, data []UnjudgedQuery) (int, int, error) {
	var added, redundant int

	for _, uq := range data {
		queryID, err := db.UpsertQuery(ctx, uq.Query, uq.Domain)
		if err != nil {
			return added, redundant, err
		}

		if err := db.joinQueryToGroup(ctx, groupID, queryID); err != nil {
			return added, redundant, err
		}

		for _, res := range uq.Results {
			isNew, err := db.insertQueryResult(ctx, jobID, groupID, queryID, res)
			if err != nil {
				return added, redundant, err
			}

			if isNew {
				added++
			} else {
				redundant++
			}
		}
	}

	db.Logger.Info().
		Str("group_id", groupID).
		Int("added", added).
		Int("redundant", redundant).
		Msg("inserted unjudged group data")

	return added, redundant, nil
}

func (db *DB) insertQueryResult(ctx context.Context, jobID, groupID, queryID string, res UnjudgedResult) (bool, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO query_results (job_id, query_id, result_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (query_id, result_id) DO UPDATE SET query_id = EXCLUDED.query_id
		RETURNING id, (xmax = 0) AS inserted
	`, toUUID(jobID), toUUID(queryID), res.ResultID)

	var (
		resultID pgtype.UUID
		inserted bool
	)

	if err := row.Scan(&resultID, &inserted); err != nil {
		return false, fmt.Errorf("insert query result %s: %w", res.ResultID, err)
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO group_results (group_id, query_result_id, result_position)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, toUUID(groupID), resultID, res.Position)
	if err != nil {
		return false, fmt.Errorf("bind result to group: %w", err)
	}

	return inserted, nil
}
