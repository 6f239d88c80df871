package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitebook/internal/model"
)

const placeColumns = `place_id, name, type, location, full_address, cuisine, influence, visited, rating, notes,
	google_place_id, website, social_media, opening_hours, permanently_closed, created_at, updated_at`

// List retrieves places matching f, oldest first.
func (s *SQLStore) List(ctx context.Context, f Filter) ([]model.Place, error) {
	var (
		where []string
		args  []any
	)
	if t := strings.TrimSpace(f.Type); t != "" && !strings.EqualFold(t, "all") {
		where = append(where, "LOWER(type) = LOWER(?)")
		args = append(args, typeArg(t))
	}
	if f.Visited != nil {
		where = append(where, "visited = ?")
		args = append(args, *f.Visited)
	}

	query := "SELECT " + placeColumns + " FROM places"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, place_id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	results := []model.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		results = append(results, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	return results, nil
}

// Get retrieves a single place by id.
func (s *SQLStore) Get(ctx context.Context, id string) (model.Place, error) {
	query := "SELECT " + placeColumns + " FROM places WHERE place_id = ?"

	p, err := scanPlace(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Place{}, ErrNotFound
	}
	if err != nil {
		return model.Place{}, fmt.Errorf("failed to get place: %w", err)
	}
	return p, nil
}

// Save inserts p or replaces the stored row with the same id.
func (s *SQLStore) Save(ctx context.Context, p model.Place) error {
	query := `
		INSERT INTO places (` + placeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (place_id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			location = excluded.location,
			full_address = excluded.full_address,
			cuisine = excluded.cuisine,
			influence = excluded.influence,
			visited = excluded.visited,
			rating = excluded.rating,
			notes = excluded.notes,
			google_place_id = excluded.google_place_id,
			website = excluded.website,
			social_media = excluded.social_media,
			opening_hours = excluded.opening_hours,
			permanently_closed = excluded.permanently_closed,
			updated_at = excluded.updated_at
	`

	var hours any
	if len(p.OpeningHours) > 0 {
		data, err := json.Marshal(p.OpeningHours)
		if err != nil {
			return fmt.Errorf("failed to encode opening hours: %w", err)
		}
		hours = string(data)
	}

	var rating, closed any
	if p.Rating != nil {
		rating = *p.Rating
	}
	if p.PermanentlyClosed != nil {
		closed = *p.PermanentlyClosed
	}

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		p.ID, p.Name, string(p.Type), nullString(p.Location), nullString(p.FullAddress),
		nullString(p.Cuisine), nullString(p.Influence), p.Visited, rating, nullString(p.Notes),
		nullString(p.GooglePlaceID), nullString(p.Website), nullString(p.SocialMedia), hours, closed,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save place: %w", err)
	}
	return nil
}

// Delete removes a place by id.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM places WHERE place_id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (model.Place, error) {
	var p model.Place
	var placeType string
	var location, fullAddress, cuisine, influence, notes sql.NullString
	var googlePlaceID, website, socialMedia, hours sql.NullString
	var rating sql.NullFloat64
	var closed sql.NullBool
	var createdAt, updatedAt timestamp

	err := row.Scan(
		&p.ID, &p.Name, &placeType, &location, &fullAddress, &cuisine, &influence, &p.Visited, &rating, &notes,
		&googlePlaceID, &website, &socialMedia, &hours, &closed, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Place{}, err
	}

	p.Type = model.PlaceType(placeType)
	p.Location = location.String
	p.FullAddress = fullAddress.String
	p.Cuisine = cuisine.String
	p.Influence = influence.String
	p.Notes = notes.String
	p.GooglePlaceID = googlePlaceID.String
	p.Website = website.String
	p.SocialMedia = socialMedia.String

	if rating.Valid {
		r := rating.Float64
		p.Rating = &r
	}
	if closed.Valid {
		c := closed.Bool
		p.PermanentlyClosed = &c
	}
	if hours.Valid && hours.String != "" {
		if err := json.Unmarshal([]byte(hours.String), &p.OpeningHours); err != nil {
			return model.Place{}, fmt.Errorf("failed to decode opening hours: %w", err)
		}
	}
	p.CreatedAt = createdAt.ptr()
	p.UpdatedAt = updatedAt.ptr()

	return p, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// storedTimeLayout has fixed-width fractions so TEXT columns sort chronologically.
const storedTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTime(t *time.Time) string {
	if t == nil {
		return time.Now().UTC().Format(storedTimeLayout)
	}
	return t.UTC().Format(storedTimeLayout)
}

// timestamp scans TEXT columns (SQLite) and TIMESTAMPTZ columns (Postgres).
type timestamp struct {
	t     time.Time
	valid bool
}

var textTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.valid = false
		return nil
	case time.Time:
		ts.t, ts.valid = v.UTC(), true
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.t, ts.valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

func (ts timestamp) ptr() *time.Time {
	if !ts.valid {
		return nil
	}
	t := ts.t
	return &t
}
