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

// InsertGroup persists a new experimental group and returns it with its
// database id set.
func (db *DB) InsertGroup(ctx context.Context, group domain.Group) (domain.Group, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO groups (name, description, params)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, group.Name, group.Description, group.Params)

	var (
		id      pgtype.UUID
		created pgtype.Timestamptz
	)

	if err := row.Scan(&id, &created); err != nil {
		return domain.Group{}, fmt.Errorf("insert group %q: %w", group.Name, err)
	}

	group.ID = fromUUID(id)
	group.CreatedAt = fromTimestamptz(created)

	db.Logger.Info().Str("group_id", group.ID).Str("name", group.Name).Msg("inserted group")

	return group, nil
}

// SetGroupRaw attaches the raw collection payload to a group for debugging
// and reprocessing.
func (db *DB) SetGroupRaw(ctx context.Context, groupID string, raw any) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE groups SET raw = $1 WHERE id = $2`, raw, toUUID(groupID))
	if err != nil {
		return fmt.Errorf("set group raw: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group id %s: %w", groupID, apperrors.ErrNoSuchGroup)
	}

	return nil
}

// GroupName resolves a group's display name.
func (db *DB) GroupName(ctx context.Context, groupID string) (string, error) {
	row := db.Pool.QueryRow(ctx, `SELECT name FROM groups WHERE id = $1`, toUUID(groupID))

	var name string
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("group id %s: %w", groupID, apperrors.ErrNoSuchGroup)
		}

		return "", fmt.Errorf("load group name: %w", err)
	}

	return name, nil
}
