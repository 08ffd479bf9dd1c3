package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/opencatalog/arcs/internal/core/domain"
	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

// InsertIncompleteJob persists a freshly created crowdsourcing job. The
// external id is unique, so re-inserting the same platform job fails.
func (db *DB) InsertIncompleteJob(ctx context.Context, job domain.Job) (domain.Job, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO jobs (external_id, platform, created_at, completed_at, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, job.ExternalID, job.Platform, toTimestamptz(job.CreatedAt), toTimestamptz(job.CompletedAt), job.Metadata)

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return domain.Job{}, fmt.Errorf("insert job %s: %w", job.ExternalID, err)
	}

	job.ID = fromUUID(id)

	db.Logger.Info().Str("job_id", job.ID).Str("external_id", job.ExternalID).Msg("inserted job")

	return job, nil
}

// UpdateCompletedJob records a job's completion time along with its final
// metadata and raw results payload.
func (db *DB) UpdateCompletedJob(ctx context.Context, externalID string, job domain.Job, results map[string]any) (string, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE jobs SET completed_at = $1, metadata = $2, results = $3
		WHERE external_id = $4
		RETURNING id
	`, toTimestamptz(job.CompletedAt), job.Metadata, results, externalID)

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("external id %s: %w", externalID, apperrors.ErrNoSuchJob)
		}

		return "", fmt.Errorf("update job %s: %w", externalID, err)
	}

	return fromUUID(id), nil
}

// JobByExternalID loads a job by its platform identifier.
func (db *DB) JobByExternalID(ctx context.Context, externalID string) (domain.Job, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, external_id, platform, created_at, completed_at, metadata
		FROM jobs
		WHERE external_id = $1
	`, externalID)

	var (
		id                 pgtype.UUID
		job                domain.Job
		created, completed pgtype.Timestamptz
	)

	if err := row.Scan(&id, &job.ExternalID, &job.Platform, &created, &completed, &job.Metadata); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, fmt.Errorf("external id %s: %w", externalID, apperrors.ErrNoSuchJob)
		}

		return domain.Job{}, fmt.Errorf("load job %s: %w", externalID, err)
	}

	job.ID = fromUUID(id)
	job.CreatedAt = fromTimestamptz(created)
	job.CompletedAt = fromTimestamptz(completed)

	return job, nil
}
