package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"bitebook/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnNames = []string{
	"place_id", "name", "type", "location", "full_address", "cuisine", "influence", "visited", "rating", "notes",
	"google_place_id", "website", "social_media", "opening_hours", "permanently_closed", "created_at", "updated_at",
}

func setupPostgresMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{dialect: dialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestPostgresGet(t *testing.T) {
	s, mock := setupPostgresMock(t)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columnNames).AddRow(
		"p1", "Thai Spice", "Restaurant", "135 Chinatown St", nil, "Thai", nil, true, 4.5, "spicy",
		"gp1", nil, nil, []byte(`{"Friday":[{"openingHour":17,"openingMinute":0,"closingHour":23,"closingMinute":0}]}`), false, created, created,
	)
	mock.ExpectQuery(`SELECT .* FROM places WHERE place_id = \$1`).
		WithArgs("p1").
		WillReturnRows(rows)

	p, err := s.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Thai Spice", p.Name)
	assert.True(t, p.Visited)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.5, *p.Rating)
	assert.Equal(t, &created, p.CreatedAt)
	assert.Len(t, p.OpeningHours["Friday"], 1)
	require.NotNil(t, p.PermanentlyClosed)
	assert.False(t, *p.PermanentlyClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	s, mock := setupPostgresMock(t)
	mock.ExpectQuery(`SELECT .* FROM places WHERE place_id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresListWithFilters(t *testing.T) {
	s, mock := setupPostgresMock(t)
	visited := false

	mock.ExpectQuery(`SELECT .* FROM places WHERE LOWER\(type\) = LOWER\(\$1\) AND visited = \$2 ORDER BY created_at, place_id`).
		WithArgs("Bar", false).
		WillReturnRows(sqlmock.NewRows(columnNames))

	got, err := s.List(context.Background(), Filter{Type: "bars", Visited: &visited})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSave(t *testing.T) {
	s, mock := setupPostgresMock(t)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO places .* ON CONFLICT \(place_id\) DO UPDATE SET`).
		WithArgs("p1", "Velvet", "Bar", "9 Main St", nil, nil, nil, false, nil, nil,
			nil, nil, nil, nil, nil, "2024-06-01T12:00:00.000000Z", "2024-06-01T12:00:00.000000Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Save(context.Background(), model.Place{
		ID: "p1", Name: "Velvet", Type: model.TypeBar, Location: "9 Main St",
		CreatedAt: &created, UpdatedAt: &created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectExec(`DELETE FROM places WHERE place_id = \$1`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM places WHERE place_id = \$1`).
		WithArgs("p2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.Delete(context.Background(), "p1"))
	assert.ErrorIs(t, s.Delete(context.Background(), "p2"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
