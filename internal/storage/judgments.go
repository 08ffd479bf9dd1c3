package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/opencatalog/arcs/internal/core/domain"
)

// JudgedUnit is one judgment to persist for a query-result pair.
type JudgedUnit struct {
	Query    string
	ResultID string
	Judgment float64
	Gold     bool
}

// AddJudgments writes collected judgments onto their query-result rows.
// Rows that already carry a judgment are left untouched: a judged pair is
// immutable, and re-judging it is redundant rather than an update. Returns
// the number of rows actually updated.
func (db *DB) AddJudgments(ctx context.Context, units []JudgedUnit) (int, error) {
	updated := 0

	for _, unit := range units {
		tag, err := db.Pool.Exec(ctx, `
			UPDATE query_results qr
			SET judgment = $1, is_gold = $2
			FROM queries q
			WHERE qr.query_id = q.id
			  AND q.query = $3
			  AND qr.result_id = $4
			  AND qr.judgment IS NULL
		`, unit.Judgment, unit.Gold, unit.Query, unit.ResultID)
		if err != nil {
			return updated, fmt.Errorf("add judgment for %q / %s: %w", unit.Query, unit.ResultID, err)
		}

		updated += int(tag.RowsAffected())
	}

	db.Logger.Info().Int("units", len(units)).Int("updated", updated).Msg("persisted judgments")

	return updated, nil
}

// FindJudgedQRPs returns the set of (query, result) pairs that already carry
// a judgment, so new collection rounds can skip them.
func (db *DB) FindJudgedQRPs(ctx context.Context) (map[[2]string]struct{}, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT q.query, qr.result_id
		FROM query_results qr
		JOIN queries q ON qr.query_id = q.id
		WHERE qr.judgment IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query judged qrps: %w", err)
	}
	defer rows.Close()

	judged := make(map[[2]string]struct{})

	for rows.Next() {
		var query, resultID string

		if err := rows.Scan(&query, &resultID); err != nil {
			return nil, fmt.Errorf("scan judged qrp: %w", err)
		}

		judged[[2]string{query, resultID}] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate judged qrps: %w", err)
	}

	return judged, nil
}

// Ideals aggregates, for every (query, domain) pair, all judgments collected
// across every group and job, sorted descending. These sequences normalize
// NDCG: they represent the best ordering any system could have produced.
func (db *DB) Ideals(ctx context.Context) (domain.IdealJudgments, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT q.query, q.domain, ARRAY_AGG(qr.judgment ORDER BY qr.judgment DESC) AS judgments
		FROM query_results qr
		JOIN queries q ON qr.query_id = q.id
		WHERE qr.judgment IS NOT NULL
		GROUP BY q.query, q.domain
	`)
	if err != nil {
		return nil, fmt.Errorf("query ideal judgments: %w", err)
	}
	defer rows.Close()

	ideals := make(domain.IdealJudgments)

	for rows.Next() {
		var (
			key       domain.QueryKey
			judgments []float64
		)

		if err := rows.Scan(&key.Query, &key.Domain, &judgments); err != nil {
			return nil, fmt.Errorf("scan ideal judgments: %w", err)
		}

		ideals[key] = judgments
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ideal judgments: %w", err)
	}

	return ideals, nil
}

// GroupRows loads a group's full evaluated result set ordered by query and
// result position. Zero-result queries surface as rows with an empty
// ResultID, unjudged pairs as rows with an invalid Judgment.
func (db *DB) GroupRows(ctx context.Context, groupID string) ([]domain.QueryResultRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT q.query, q.domain, jr.result_id, jr.result_position, jr.judgment
		FROM queries q
		JOIN query_group_join qj ON qj.query_id = q.id AND qj.group_id = $1
		LEFT JOIN (
			SELECT qr.query_id, qr.result_id, qr.judgment, gr.result_position
			FROM query_results qr
			JOIN group_results gr ON gr.query_result_id = qr.id AND gr.group_id = $1
		) jr ON jr.query_id = q.id
		ORDER BY q.query, jr.result_position
	`, toUUID(groupID))
	if err != nil {
		return nil, fmt.Errorf("query group rows: %w", err)
	}
	defer rows.Close()

	var out []domain.QueryResultRow

	for rows.Next() {
		var (
			row      domain.QueryResultRow
			resultID pgtype.Text
			position pgtype.Int4
			judgment pgtype.Float8
		)

		if err := rows.Scan(&row.Query, &row.Domain, &resultID, &position, &judgment); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}

		row.ResultID = resultID.String
		row.Position = int(position.Int32)

		if judgment.Valid {
			row.Judgment = domain.Judged(judgment.Float64)
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group rows: %w", err)
	}

	return out, nil
}
