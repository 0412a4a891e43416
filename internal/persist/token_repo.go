package persist

import (
	"context"
	"time"
)

// TokenRow mirrors one row of the tokens table. Tokens are owned by the
// campaign tooling; this engine only reads them to place vision sources.
type TokenRow struct {
	ID               int64
	MapID            int64
	Name             string
	TokenType        string
	Size             string
	X                float64
	Y                float64
	VisibleToPlayers bool
	Color            *string
	VisionType       string
	VisionRangeFt    *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type TokenRepo struct {
	db *DB
}

func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) ListByMap(ctx context.Context, mapID int64) ([]TokenRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, map_id, name, token_type, size, x, y,
		        visible_to_players, color, vision_type, vision_range_ft,
		        created_at, updated_at
		 FROM tokens WHERE map_id = $1 ORDER BY id`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TokenRow
	for rows.Next() {
		var t TokenRow
		if err := rows.Scan(
			&t.ID, &t.MapID, &t.Name, &t.TokenType, &t.Size, &t.X, &t.Y,
			&t.VisibleToPlayers, &t.Color, &t.VisionType, &t.VisionRangeFt,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
