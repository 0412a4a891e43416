package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// MapRow mirrors one row of the maps table.
type MapRow struct {
	ID            int64
	Name          string
	FilePath      string
	WidthPx       float64
	HeightPx      float64
	GridType      string
	PixelsPerGrid float64
	GridOffsetX   float64
	GridOffsetY   float64
	FogEnabled    bool
	AmbientLight  string
	GeometryHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type MapRepo struct {
	db *DB
}

func NewMapRepo(db *DB) *MapRepo {
	return &MapRepo{db: db}
}

const mapColumns = `id, name, file_path, width_px, height_px, grid_type, pixels_per_grid,
	        grid_offset_x, grid_offset_y, fog_enabled, ambient_light, geometry_hash,
	        created_at, updated_at`

func scanMapRow(row pgx.Row) (*MapRow, error) {
	m := &MapRow{}
	err := row.Scan(
		&m.ID, &m.Name, &m.FilePath, &m.WidthPx, &m.HeightPx, &m.GridType, &m.PixelsPerGrid,
		&m.GridOffsetX, &m.GridOffsetY, &m.FogEnabled, &m.AmbientLight, &m.GeometryHash,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MapRepo) Get(ctx context.Context, id int64) (*MapRow, error) {
	return scanMapRow(r.db.Pool.QueryRow(ctx,
		`SELECT `+mapColumns+` FROM maps WHERE id = $1`, id,
	))
}

func (r *MapRepo) GetByName(ctx context.Context, name string) (*MapRow, error) {
	return scanMapRow(r.db.Pool.QueryRow(ctx,
		`SELECT `+mapColumns+` FROM maps WHERE name = $1`, name,
	))
}

func (r *MapRepo) Insert(ctx context.Context, m *MapRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO maps (
			name, file_path, width_px, height_px, grid_type, pixels_per_grid,
			grid_offset_x, grid_offset_y, fog_enabled, ambient_light, geometry_hash
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
		) RETURNING id, created_at, updated_at`,
		m.Name, m.FilePath, m.WidthPx, m.HeightPx, m.GridType, m.PixelsPerGrid,
		m.GridOffsetX, m.GridOffsetY, m.FogEnabled, m.AmbientLight, m.GeometryHash,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *MapRepo) List(ctx context.Context) ([]MapRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+mapColumns+` FROM maps ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MapRow
	for rows.Next() {
		var m MapRow
		if err := rows.Scan(
			&m.ID, &m.Name, &m.FilePath, &m.WidthPx, &m.HeightPx, &m.GridType, &m.PixelsPerGrid,
			&m.GridOffsetX, &m.GridOffsetY, &m.FogEnabled, &m.AmbientLight, &m.GeometryHash,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *MapRepo) SetFogEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE maps SET fog_enabled = $1, updated_at = NOW() WHERE id = $2`,
		enabled, id,
	)
	return err
}

func (r *MapRepo) SetAmbient(ctx context.Context, id int64, argb string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE maps SET ambient_light = $1, updated_at = NOW() WHERE id = $2`,
		argb, id,
	)
	return err
}

// SetGeometryHash records the fingerprint of the map file the stored state
// was derived from, so stale portal and light rows can be detected on load.
func (r *MapRepo) SetGeometryHash(ctx context.Context, id int64, hash string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE maps SET geometry_hash = $1, updated_at = NOW() WHERE id = $2`,
		hash, id,
	)
	return err
}

// Delete removes a map and, via cascade, its portal states, lights, revealed
// areas and tokens. Returns true if a row was deleted.
func (r *MapRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM maps WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
