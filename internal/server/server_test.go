package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bitebook/internal/events"
	"bitebook/internal/model"
	"bitebook/internal/places"
	"bitebook/internal/search"
	"bitebook/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetails struct {
	mu      sync.Mutex
	details map[string]*search.Details
	byName  *search.Details
	calls   int
	err     error
}

func (f *fakeDetails) Details(_ context.Context, id string) (*search.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.details[id], nil
}

func (f *fakeDetails) SearchText(context.Context, string) (*search.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byName, f.err
}

func (f *fakeDetails) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PlaceEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.PlaceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	srv       *httptest.Server
	client    *places.Client
	store     *store.SQLStore
	publisher *recordingPublisher
	details   *fakeDetails
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "places.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pub := &recordingPublisher{}
	det := &fakeDetails{details: map[string]*search.Details{}}
	var ids atomic.Int32
	cfg := Config{
		Store:     st,
		Details:   det,
		Publisher: pub,
		Logger:    log.New(io.Discard, "", 0),
		Now:       func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			return fmt.Sprintf("id-%d", ids.Add(1))
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, client: places.NewClient(srv.URL), store: st, publisher: pub, details: det}
}

func TestAddThenList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rating := 4.0
	require.NoError(t, f.client.Add(ctx, model.NewPlace{
		Name: "Thai Spice", Type: "restaurant", Location: "135 Chinatown St", Visited: true, Rating: &rating,
	}))

	got, err := f.client.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "id-1", got[0].ID)
	assert.Equal(t, model.TypeRestaurant, got[0].Type)
	assert.True(t, got[0].Visited)
	require.NotNil(t, got[0].CreatedAt)
	assert.Equal(t, []string{events.PlaceAdded}, f.publisher.types())
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	err := f.client.Add(ctx, model.NewPlace{Name: "", Type: model.TypeBar})
	var he *places.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)

	bad := 6.0
	err = f.client.Add(ctx, model.NewPlace{Name: "X", Type: model.TypeBar, Rating: &bad})
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
}

func TestAddEnrichesFromProvider(t *testing.T) {
	f := newFixture(t, nil)
	f.details.details["gp1"] = &search.Details{
		PlaceID:          "gp1",
		FormattedAddress: "135 Chinatown St, Springfield",
		Website:          "https://thaispice.example",
		OpeningHours:     model.OpeningHours{"Monday": {{OpeningHour: 11, ClosingHour: 22}}},
	}
	ctx := context.Background()

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Thai Spice", Type: model.TypeRestaurant, GooglePlaceID: "gp1"}))

	stored, err := f.store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "135 Chinatown St, Springfield", stored.FullAddress)
	assert.Equal(t, "https://thaispice.example", stored.Website)
	require.NotNil(t, stored.PermanentlyClosed)
	assert.False(t, *stored.PermanentlyClosed)
	assert.Len(t, stored.OpeningHours["Monday"], 1)
}

func TestGetNotFoundAndFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.client.Get(ctx, "missing")
	assert.True(t, places.IsNotFound(err))

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Cafe Luna", Type: model.TypeCafe}))
	p, err := f.client.Get(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Cafe Luna", p.Name)
}

func TestGetMatchesByNameWhenNoProviderID(t *testing.T) {
	f := newFixture(t, nil)
	f.details.byName = &search.Details{
		PlaceID:          "gp7",
		FormattedAddress: "1 Rue, Paris",
		OpeningHours:     model.OpeningHours{"Friday": {{OpeningHour: 8, ClosingHour: 16}}},
	}
	ctx := context.Background()

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Cafe Luna", Type: model.TypeCafe}))
	p, err := f.client.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "gp7", p.GooglePlaceID)
	assert.Len(t, p.OpeningHours["Friday"], 1)

	stored, err := f.store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "gp7", stored.GooglePlaceID)
	assert.Equal(t, "1 Rue, Paris", stored.FullAddress)
}

func TestGetSurvivesProviderFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Velvet", Type: model.TypeBar, GooglePlaceID: "gp2"}))

	f.details.fail(errors.New("quota exceeded"))
	p, err := f.client.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Velvet", p.Name)
}

func TestUnvisitClearsRatingAndNotes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rating := 4.5
	require.NoError(t, f.client.Add(ctx, model.NewPlace{
		Name: "Thai Spice", Type: model.TypeRestaurant, Cuisine: "Thai", Visited: true, Rating: &rating, Notes: "good",
	}))
	require.NoError(t, f.client.Update(ctx, "id-1", model.UnvisitUpdate()))

	p, err := f.store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, p.Visited)
	assert.Nil(t, p.Rating)
	assert.Empty(t, p.Notes)
	assert.Equal(t, "Thai", p.Cuisine)
	assert.Equal(t, []string{events.PlaceAdded, events.PlaceUpdated}, f.publisher.types())
}

func TestPartialUpdateLeavesOtherFields(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Velvet", Type: model.TypeBar, Location: "9 Main St", Notes: "dim"}))
	require.NoError(t, f.client.Update(ctx, "id-1", model.PlaceUpdate{Name: model.Value("Velvet Lounge"), Type: model.Value(model.PlaceType("bars"))}))

	p, err := f.store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Velvet Lounge", p.Name)
	assert.Equal(t, model.TypeBar, p.Type)
	assert.Equal(t, "9 Main St", p.Location)
	assert.Equal(t, "dim", p.Notes)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.True(t, places.IsNotFound(f.client.Update(ctx, "missing", model.UnvisitUpdate())))

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Velvet", Type: model.TypeBar}))
	err := f.client.Update(ctx, "id-1", model.PlaceUpdate{Rating: model.Value(11.0)})
	var he *places.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)

	for _, body := range []string{`{"name":null}`, `{"type":null}`, `{"visited":null}`} {
		resp, err := http.Post(f.srv.URL+"/places/update/id-1", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	p, err := f.store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Velvet", p.Name)
	assert.Equal(t, model.TypeBar, p.Type)
	assert.Equal(t, []string{events.PlaceAdded}, f.publisher.types())
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Velvet", Type: model.TypeBar}))
	require.NoError(t, f.client.Delete(ctx, "id-1"))
	assert.True(t, places.IsNotFound(f.client.Delete(ctx, "id-1")))

	got, err := f.client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{events.PlaceAdded, events.PlaceDeleted}, f.publisher.types())
}

func TestDeleteRejectsHTTPDelete(t *testing.T) {
	f := newFixture(t, nil)
	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/places/delete/id-1", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestFeedFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "A", Type: model.TypeBar, Visited: true}))
	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "B", Type: model.TypeBar}))
	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "C", Type: model.TypeCafe}))

	get := func(query string) *http.Response {
		resp, err := http.Get(f.srv.URL + "/places/feed" + query)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	body, _ := io.ReadAll(get("?type=bar&visited=true").Body)
	assert.Contains(t, string(body), `"name":"A"`)
	assert.NotContains(t, string(body), `"name":"B"`)

	body, _ = io.ReadAll(get("?type=all").Body)
	assert.Equal(t, 3, strings.Count(string(body), `"placeId"`))

	assert.Equal(t, http.StatusBadRequest, get("?visited=maybe").StatusCode)
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.APIKeys = ParseAPIKeys(" k1 , ,k2") })
	ctx := context.Background()

	_, err := f.client.List(ctx)
	var he *places.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)

	authed := places.NewClient(f.srv.URL, places.WithBearerToken("k2"))
	_, err = authed.List(ctx)
	assert.NoError(t, err)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)
	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/places/delete/x", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestDetailsCachedInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newFixture(t, func(c *Config) { c.DetailsCache = NewDetailsCache(rdb, 0) })
	f.details.details["gp1"] = &search.Details{PlaceID: "gp1", OpeningHours: model.OpeningHours{"Monday": {{OpeningHour: 9, ClosingHour: 17}}}}
	ctx := context.Background()

	require.NoError(t, f.client.Add(ctx, model.NewPlace{Name: "Thai Spice", Type: model.TypeRestaurant, GooglePlaceID: "gp1"}))
	_, err := f.client.Get(ctx, "id-1")
	require.NoError(t, err)
	_, err = f.client.Get(ctx, "id-1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.details.calls)
	assert.True(t, mr.Exists("place-details:gp1"))
	assert.Equal(t, DefaultDetailsTTL, mr.TTL("place-details:gp1"))
}

func TestDetailsCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := NewDetailsCache(rdb, time.Minute)
	ctx := context.Background()

	d, err := c.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, c.Set(ctx, "gp1", &search.Details{PlaceID: "gp1", PermanentlyClosed: true}))
	d, err = c.Get(ctx, "gp1")
	require.NoError(t, err)
	assert.True(t, d.PermanentlyClosed)

	require.NoError(t, c.Invalidate(ctx, "gp1"))
	d, err = c.Get(ctx, "gp1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := loggingMiddleware(log.New(&buf, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/places/feed", nil))
	assert.Contains(t, buf.String(), "GET /places/feed 418")
}
