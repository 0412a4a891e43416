package engine

import (
	"context"
	"fmt"

	"github.com/gridsight/engine/internal/fog"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
	"github.com/gridsight/engine/internal/persist"
	"github.com/gridsight/engine/internal/world"
	"go.uber.org/zap"
)

// SyncFromStore overlays stored runtime state onto the freshly built map:
// fog flag and ambient from the map record, then portal states, revealed
// areas, light sources and tokens. The store is authoritative for lights
// and tokens. When the stored geometry hash no longer matches the loaded
// file, portal states and fog history are left untouched and a warning is
// logged; the host decides what to do with them.
func (s *Session) SyncFromStore(ctx context.Context, mapID int64) error {
	st := s.eng.store
	if st == nil {
		return ErrNoStore
	}

	row, err := st.Maps.Get(ctx, mapID)
	if err != nil {
		return fmt.Errorf("load map record: %w", err)
	}
	if row == nil {
		return ErrMapNotInStore
	}
	s.mapID = mapID

	stale := row.GeometryHash != "" && row.GeometryHash != s.Map.Fingerprint
	if stale {
		s.log.Warn("stored state was saved against a different map file; skipping portal and fog state",
			zap.String("stored_hash", row.GeometryHash),
			zap.String("file_hash", s.Map.Fingerprint))
	}

	s.SetFogEnabled(row.FogEnabled)
	s.Map.SetAmbient(light.LevelFromAmbientColor(row.AmbientLight))
	s.ambientARGB = row.AmbientLight

	portals, areas := 0, 0
	if !stale {
		states, err := st.Portals.ListByMap(ctx, mapID)
		if err != nil {
			return fmt.Errorf("load portal states: %w", err)
		}
		for _, ps := range states {
			if err := s.Map.SetPortalState(int64(ps.PortalID), ps.Closed); err != nil {
				s.log.Warn("stored portal state has no matching portal", zap.Int("portal_id", ps.PortalID))
				continue
			}
			portals++
		}

		rows, err := st.Areas.ListByMap(ctx, mapID)
		if err != nil {
			return fmt.Errorf("load revealed areas: %w", err)
		}
		restored := make([]fog.Area, 0, len(rows))
		for _, ar := range rows {
			restored = append(restored, fog.Area{
				ID:   ar.ID,
				Kind: fog.KindRect,
				Rect: geom.Rect{X: ar.X, Y: ar.Y, W: ar.Width, H: ar.Height},
			})
		}
		s.Map.Fog.Restore(restored)
		areas = len(restored)
	}

	lrows, err := st.Lights.ListByMap(ctx, mapID)
	if err != nil {
		return fmt.Errorf("load light sources: %w", err)
	}
	ppg := s.Map.Res.PixelsPerGrid
	lights := make([]light.Light, 0, len(lrows))
	s.lightRows = make(map[int64]int64, len(lrows))
	for _, lr := range lrows {
		lights = append(lights, light.Light{
			ID:             lr.ID,
			TokenID:        lr.TokenID,
			Pos:            geom.Point{X: lr.X, Y: lr.Y},
			BrightRadiusPx: light.FeetToPx(lr.BrightRadiusFt, ppg),
			DimRadiusPx:    light.FeetToPx(lr.DimRadiusFt, ppg),
			Color:          lr.Color,
			CastsShadows:   true,
			Active:         lr.IsActive,
		})
		s.lightRows[lr.ID] = lr.ID
	}
	s.Map.ReplaceLights(lights)

	trows, err := st.Tokens.ListByMap(ctx, mapID)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	for _, tr := range trows {
		tok := world.Token{
			ID:               tr.ID,
			Name:             tr.Name,
			Type:             world.ParseTokenType(tr.TokenType),
			Size:             world.ParseTokenSize(tr.Size),
			Pos:              geom.Point{X: tr.X, Y: tr.Y},
			VisibleToPlayers: tr.VisibleToPlayers,
			Vision:           s.eng.visionPresets.Profile(tr.VisionType, tr.VisionRangeFt, 0),
		}
		if tr.Color != nil {
			tok.Color = *tr.Color
		}
		s.Map.UpsertToken(tok)
	}

	s.log.Info("session synced from store",
		zap.Int64("map_id", mapID),
		zap.Int("portal_states", portals),
		zap.Int("revealed_areas", areas),
		zap.Int("lights", len(lights)),
		zap.Int("tokens", len(trows)),
		zap.Bool("stale_geometry", stale))
	return nil
}

// FlushToStore writes the session's runtime state back: portal states
// upserted as a batch, the revealed-area rows replaced wholesale (circles
// land as their bounding rects), active flags for store-backed lights, and
// the map record's fog flag, ambient color and geometry hash.
func (s *Session) FlushToStore(ctx context.Context, mapID int64) error {
	st := s.eng.store
	if st == nil {
		return ErrNoStore
	}

	portals := s.Map.Portals()
	states := make([]persist.PortalStateRow, 0, len(portals))
	for _, p := range portals {
		states = append(states, persist.PortalStateRow{
			MapID:    mapID,
			PortalID: int(p.ID),
			Closed:   p.Closed,
		})
	}
	if err := st.Portals.UpsertBatch(ctx, states); err != nil {
		return fmt.Errorf("flush portal states: %w", err)
	}

	areas := s.Map.Fog.Areas()
	rows := make([]persist.RevealedAreaRow, 0, len(areas))
	for _, a := range areas {
		r := a.Rect
		if a.Kind == fog.KindCircle {
			r = a.Circle.BoundingRect()
		}
		rows = append(rows, persist.RevealedAreaRow{
			MapID: mapID,
			X:     r.X,
			Y:     r.Y,
			Width: r.W, Height: r.H,
		})
	}
	if err := st.Areas.ReplaceForMap(ctx, mapID, rows); err != nil {
		return fmt.Errorf("flush revealed areas: %w", err)
	}

	flags := 0
	for _, l := range s.Map.Lights() {
		rowID, ok := s.lightRows[l.ID]
		if !ok {
			continue
		}
		if err := st.Lights.SetActive(ctx, rowID, l.Active); err != nil {
			return fmt.Errorf("flush light %d: %w", rowID, err)
		}
		flags++
	}

	if err := st.Maps.SetFogEnabled(ctx, mapID, s.Map.Fog.Enabled()); err != nil {
		return fmt.Errorf("flush fog flag: %w", err)
	}
	if err := st.Maps.SetAmbient(ctx, mapID, s.ambientARGB); err != nil {
		return fmt.Errorf("flush ambient: %w", err)
	}
	if err := st.Maps.SetGeometryHash(ctx, mapID, s.Map.Fingerprint); err != nil {
		return fmt.Errorf("flush geometry hash: %w", err)
	}
	s.mapID = mapID

	s.log.Info("session flushed to store",
		zap.Int64("map_id", mapID),
		zap.Int("portal_states", len(states)),
		zap.Int("revealed_areas", len(rows)),
		zap.Int("light_flags", flags))
	return nil
}
