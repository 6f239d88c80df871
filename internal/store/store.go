package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bitebook/internal/model"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no place has the requested id.
var ErrNotFound = errors.New("place not found")

// Filter narrows List. Zero values match everything.
type Filter struct {
	Type    string // case-insensitive; "all" or "" matches any type
	Visited *bool
}

// PlaceStore persists places for the service.
type PlaceStore interface {
	List(ctx context.Context, f Filter) ([]model.Place, error)
	Get(ctx context.Context, id string) (model.Place, error)
	Save(ctx context.Context, p model.Place) error
	Delete(ctx context.Context, id string) error
	Close() error
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS places (
    place_id           TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    type               TEXT NOT NULL CHECK(type IN ('Restaurant','Bar','Cafe')),
    location           TEXT,
    full_address       TEXT,
    cuisine            TEXT,
    influence          TEXT,
    visited            INTEGER NOT NULL DEFAULT 0 CHECK(visited IN (0,1)),
    rating             REAL CHECK(rating BETWEEN 0 AND 5 OR rating IS NULL),
    notes              TEXT,
    google_place_id    TEXT,
    website            TEXT,
    social_media       TEXT,
    opening_hours      TEXT,
    permanently_closed INTEGER CHECK(permanently_closed IN (0,1) OR permanently_closed IS NULL),
    created_at         TEXT NOT NULL,
    updated_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_places_type ON places(type);
CREATE INDEX IF NOT EXISTS idx_places_visited ON places(visited);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS places (
    place_id           TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    type               TEXT NOT NULL CHECK(type IN ('Restaurant','Bar','Cafe')),
    location           TEXT,
    full_address       TEXT,
    cuisine            TEXT,
    influence          TEXT,
    visited            BOOLEAN NOT NULL DEFAULT FALSE,
    rating             DOUBLE PRECISION CHECK(rating BETWEEN 0 AND 5 OR rating IS NULL),
    notes              TEXT,
    google_place_id    TEXT,
    website            TEXT,
    social_media       TEXT,
    opening_hours      JSONB,
    permanently_closed BOOLEAN,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_places_type ON places(type);
CREATE INDEX IF NOT EXISTS idx_places_visited ON places(visited);
`

// SQLStore is a PlaceStore over database/sql, for SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens or creates the SQLite database and initializes the schema.
func OpenSQLite(dbPath string) (*SQLStore, error) {
	return open("sqlite", dbPath, dialectSQLite, sqliteSchema)
}

// OpenPostgres connects to Postgres and initializes the schema.
func OpenPostgres(dsn string) (*SQLStore, error) {
	return open("postgres", dsn, dialectPostgres, postgresSchema)
}

func open(driver, dsn string, d dialect, schema string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLStore{db: db, dialect: d}, nil
}

// NewPostgres wraps an existing connection without touching the schema.
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: dialectPostgres}
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
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

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ PlaceStore = (*SQLStore)(nil)

// typeArg canonicalizes a type filter so "bars" matches rows stored as "Bar".
func typeArg(t string) string {
	if pt, err := model.ParsePlaceType(t); err == nil {
		return string(pt)
	}
	return strings.TrimSpace(t)
}
