package persist

import (
	"context"
	"fmt"
	"time"
)

// PortalStateRow records the runtime open/closed state of one portal so it
// survives restarts. Portal IDs are the load-order indexes assigned by the
// map loader, which are stable for a given map file.
type PortalStateRow struct {
	MapID     int64
	PortalID  int
	Closed    bool
	UpdatedAt time.Time
}

type PortalStateRepo struct {
	db *DB
}

func NewPortalStateRepo(db *DB) *PortalStateRepo {
	return &PortalStateRepo{db: db}
}

func (r *PortalStateRepo) ListByMap(ctx context.Context, mapID int64) ([]PortalStateRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT map_id, portal_id, closed, updated_at
		 FROM map_portal_states WHERE map_id = $1 ORDER BY portal_id`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PortalStateRow
	for rows.Next() {
		var p PortalStateRow
		if err := rows.Scan(&p.MapID, &p.PortalID, &p.Closed, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *PortalStateRepo) Upsert(ctx context.Context, mapID int64, portalID int, closed bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO map_portal_states (map_id, portal_id, closed)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (map_id, portal_id)
		 DO UPDATE SET closed = EXCLUDED.closed, updated_at = NOW()`,
		mapID, portalID, closed,
	)
	return err
}

// UpsertBatch writes a batch of portal states in a single transaction.
func (r *PortalStateRepo) UpsertBatch(ctx context.Context, states []PortalStateRow) error {
	if len(states) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("portal batch begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range states {
		if _, err := tx.Exec(ctx,
			`INSERT INTO map_portal_states (map_id, portal_id, closed)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (map_id, portal_id)
			 DO UPDATE SET closed = EXCLUDED.closed, updated_at = NOW()`,
			p.MapID, p.PortalID, p.Closed,
		); err != nil {
			return fmt.Errorf("portal upsert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// DeleteForMap drops all stored portal states for a map, returning the
// count. Used when the map file's geometry hash no longer matches.
func (r *PortalStateRepo) DeleteForMap(ctx context.Context, mapID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM map_portal_states WHERE map_id = $1`, mapID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
