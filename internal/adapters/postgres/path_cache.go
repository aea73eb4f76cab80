package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/platform/obs"
	"vrp-solver-service/internal/ports"
)

// PathCache is a SQL-backed cache of routed legs keyed by their end coordinates.
type PathCache struct {
	DB *sql.DB
}

func NewPathCache(db *sql.DB) *PathCache {
	return &PathCache{DB: db}
}

// GetMany fetches the cached paths among legs in one query.
func (c *PathCache) GetMany(ctx context.Context, legs []ports.Leg) (_ map[ports.Leg]domain.Path, err error) {
	defer obs.Time(ctx, "path.cache.GetMany")(&err)

	if c.DB == nil {
		return nil, errors.New("path cache: db is nil")
	}
	if len(legs) == 0 {
		return map[ports.Leg]domain.Path{}, nil
	}

	seen := make(map[ports.Leg]struct{}, len(legs))
	fromLat := make([]float64, 0, len(legs))
	fromLng := make([]float64, 0, len(legs))
	toLat := make([]float64, 0, len(legs))
	toLng := make([]float64, 0, len(legs))
	for _, l := range legs {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		fromLat = append(fromLat, l.From.Lat)
		fromLng = append(fromLng, l.From.Lng)
		toLat = append(toLat, l.To.Lat)
		toLng = append(toLng, l.To.Lng)
	}

	q := `
	SELECT c.from_lat, c.from_lng, c.to_lat, c.to_lng, c.distance_meters, c.time_millis, c.coordinates
	FROM vrp_path_cache c
	JOIN unnest($1::float8[], $2::float8[], $3::float8[], $4::float8[]) AS k(from_lat, from_lng, to_lat, to_lng)
		USING (from_lat, from_lng, to_lat, to_lng);
	`
	rows, err := c.DB.QueryContext(ctx, q, fromLat, fromLng, toLat, toLng)
	if err != nil {
		return nil, fmt.Errorf("get path cache: query vrp_path_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[ports.Leg]domain.Path, len(seen))
	for rows.Next() {
		var (
			l      ports.Leg
			p      domain.Path
			coords []byte
		)
		if err := rows.Scan(&l.From.Lat, &l.From.Lng, &l.To.Lat, &l.To.Lng, &p.Distance, &p.Time, &coords); err != nil {
			return nil, fmt.Errorf("get path cache: scan rows: %w", err)
		}
		if err := json.Unmarshal(coords, &p.Coordinates); err != nil {
			return nil, fmt.Errorf("get path cache: decode coordinates: %w", err)
		}
		out[l] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get path cache: row iteration: %w", err)
	}

	return out, nil
}

// PutMany stores paths in one transaction, replacing existing entries.
func (c *PathCache) PutMany(ctx context.Context, paths map[ports.Leg]domain.Path) error {
	if c.DB == nil {
		return errors.New("path cache: db is nil")
	}
	if len(paths) == 0 {
		return nil
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert path cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO vrp_path_cache (from_lat, from_lng, to_lat, to_lng, distance_meters, time_millis, coordinates)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (from_lat, from_lng, to_lat, to_lng) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		time_millis = EXCLUDED.time_millis,
		coordinates = EXCLUDED.coordinates;
	`)
	if err != nil {
		return fmt.Errorf("insert path cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for l, p := range paths {
		coords, err := json.Marshal(p.Coordinates)
		if err != nil {
			return fmt.Errorf("insert path cache: encode coordinates: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, l.From.Lat, l.From.Lng, l.To.Lat, l.To.Lng, p.Distance, p.Time, string(coords)); err != nil {
			return fmt.Errorf("insert path cache %v: %w", l, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert path cache commit: %w", err)
	}

	return nil
}
