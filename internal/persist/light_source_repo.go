package persist

import (
	"context"
	"time"
)

// LightSourceRow mirrors one row of the light_sources table. X and Y are in
// map pixels; radii are in feet as authored.
type LightSourceRow struct {
	ID             int64
	MapID          int64
	TokenID        *int64
	Name           string
	LightType      string
	X              float64
	Y              float64
	BrightRadiusFt float64
	DimRadiusFt    float64
	Color          string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type LightSourceRepo struct {
	db *DB
}

func NewLightSourceRepo(db *DB) *LightSourceRepo {
	return &LightSourceRepo{db: db}
}

func (r *LightSourceRepo) ListByMap(ctx context.Context, mapID int64) ([]LightSourceRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, map_id, token_id, name, light_type, x, y,
		        bright_radius_ft, dim_radius_ft, color, is_active, created_at, updated_at
		 FROM light_sources WHERE map_id = $1 ORDER BY id`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LightSourceRow
	for rows.Next() {
		var l LightSourceRow
		if err := rows.Scan(
			&l.ID, &l.MapID, &l.TokenID, &l.Name, &l.LightType, &l.X, &l.Y,
			&l.BrightRadiusFt, &l.DimRadiusFt, &l.Color, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *LightSourceRepo) Insert(ctx context.Context, l *LightSourceRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO light_sources (
			map_id, token_id, name, light_type, x, y,
			bright_radius_ft, dim_radius_ft, color, is_active
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
		) RETURNING id, created_at, updated_at`,
		l.MapID, l.TokenID, l.Name, l.LightType, l.X, l.Y,
		l.BrightRadiusFt, l.DimRadiusFt, l.Color, l.IsActive,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (r *LightSourceRepo) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE light_sources SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id,
	)
	return err
}

func (r *LightSourceRepo) UpdatePosition(ctx context.Context, id int64, x, y float64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE light_sources SET x = $1, y = $2, updated_at = NOW() WHERE id = $3`,
		x, y, id,
	)
	return err
}

// Delete removes a light source. Returns true if a row was deleted.
func (r *LightSourceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM light_sources WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteForMap removes every light source on a map, returning the count.
func (r *LightSourceRepo) DeleteForMap(ctx context.Context, mapID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM light_sources WHERE map_id = $1`, mapID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
