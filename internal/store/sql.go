package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"liveroute/internal/model"
)

// sqlStore implements Store over database/sql. Queries are written with '?'
// placeholders and rebound for drivers that want '$n'.
type sqlStore struct {
	db         *sql.DB
	numbered   bool
	schema     string
	driverName string
}

func (s *sqlStore) rebind(q string) string {
	if !s.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.schema); err != nil {
		return fmt.Errorf("%s migrate: %w", s.driverName, err)
	}
	return nil
}

func (s *sqlStore) CreateLocation(ctx context.Context, in model.LocationInput) (model.Location, error) {
	loc := model.Location{LatLng: in.LatLng(), Description: in.Description}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO locations (lat, lng, description) VALUES (?, ?, ?) RETURNING id`),
		loc.LatLng.Lat, loc.LatLng.Lng, loc.Description,
	).Scan(&loc.ID)
	if err != nil {
		return model.Location{}, fmt.Errorf("insert location: %w", err)
	}
	return loc, nil
}

func (s *sqlStore) GetLocation(ctx context.Context, id int64) (model.Location, error) {
	loc := model.Location{ID: id}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT lat, lng, description FROM locations WHERE id = ?`), id,
	).Scan(&loc.LatLng.Lat, &loc.LatLng.Lng, &loc.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Location{}, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("get location %d: %w", id, err)
	}
	return loc, nil
}

func (s *sqlStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, lat, lng, description FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	out := []model.Location{}
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.LatLng.Lat, &loc.LatLng.Lng, &loc.Description); err != nil {
			return nil, fmt.Errorf("list locations: scan: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *sqlStore) DeleteLocation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM locations WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete location %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *sqlStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locations`); err != nil {
		return fmt.Errorf("delete locations: %w", err)
	}
	return nil
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqlStore) Close() error { return s.db.Close() }
