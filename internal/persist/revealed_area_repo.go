package persist

import (
	"context"
	"fmt"
	"time"
)

// RevealedAreaRow mirrors one row of the revealed_areas table. Areas are
// stored as rectangles; circle reveals land here as their bounding rect.
type RevealedAreaRow struct {
	ID        int64
	MapID     int64
	X         float64
	Y         float64
	Width     float64
	Height    float64
	CreatedAt time.Time
}

type RevealedAreaRepo struct {
	db *DB
}

func NewRevealedAreaRepo(db *DB) *RevealedAreaRepo {
	return &RevealedAreaRepo{db: db}
}

func (r *RevealedAreaRepo) ListByMap(ctx context.Context, mapID int64) ([]RevealedAreaRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, map_id, x, y, width, height, created_at
		 FROM revealed_areas WHERE map_id = $1 ORDER BY id`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RevealedAreaRow
	for rows.Next() {
		var a RevealedAreaRow
		if err := rows.Scan(
			&a.ID, &a.MapID, &a.X, &a.Y, &a.Width, &a.Height, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *RevealedAreaRepo) Insert(ctx context.Context, a *RevealedAreaRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO revealed_areas (map_id, x, y, width, height)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		a.MapID, a.X, a.Y, a.Width, a.Height,
	).Scan(&a.ID, &a.CreatedAt)
}

// InsertBatch writes a batch of revealed areas in a single transaction.
// Either all rows land or none do.
func (r *RevealedAreaRepo) InsertBatch(ctx context.Context, areas []RevealedAreaRow) error {
	if len(areas) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("area batch begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range areas {
		if _, err := tx.Exec(ctx,
			`INSERT INTO revealed_areas (map_id, x, y, width, height)
			 VALUES ($1, $2, $3, $4, $5)`,
			a.MapID, a.X, a.Y, a.Width, a.Height,
		); err != nil {
			return fmt.Errorf("area insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ReplaceForMap swaps a map's revealed areas for the given set (delete +
// bulk insert) in one transaction.
func (r *RevealedAreaRepo) ReplaceForMap(ctx context.Context, mapID int64, areas []RevealedAreaRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("area replace begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM revealed_areas WHERE map_id = $1`, mapID); err != nil {
		return fmt.Errorf("area replace clear: %w", err)
	}
	for _, a := range areas {
		if _, err := tx.Exec(ctx,
			`INSERT INTO revealed_areas (map_id, x, y, width, height)
			 VALUES ($1, $2, $3, $4, $5)`,
			mapID, a.X, a.Y, a.Width, a.Height,
		); err != nil {
			return fmt.Errorf("area replace insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Delete removes one revealed area. Returns true if a row was deleted.
func (r *RevealedAreaRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM revealed_areas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllForMap clears the fog history for a map, returning the count.
func (r *RevealedAreaRepo) DeleteAllForMap(ctx context.Context, mapID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM revealed_areas WHERE map_id = $1`, mapID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
