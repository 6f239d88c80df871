package places

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitebook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
	auth   string
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.body = string(data)
		rec.auth = r.Header.Get("Authorization")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestListDecodesAndNormalizes(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `[
		{"placeId":"1","name":"Thai Spice","type":"Restaurant","visited":"yes","rating":4.5},
		{"placeId":"2","name":"Velvet","type":"Bar","visited":0}
	]`)

	got, err := NewClient(srv.URL).List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/places/feed", rec.path)
	require.Len(t, got, 2)
	assert.True(t, got[0].Visited)
	assert.False(t, got[1].Visited)
	assert.Equal(t, 4.5, *got[0].Rating)
}

func TestGetEmptyBodyReturnsNil(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "")

	p, err := NewClient(srv.URL).Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, "/places/place/abc", rec.path)
}

func TestGetDecodesPlace(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"placeId":"abc","name":"Cafe Luna","visited":true}`)

	p, err := NewClient(srv.URL).Get(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Cafe Luna", p.Name)
}

func TestAddPostsPayload(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "")

	rating := 4.0
	err := NewClient(srv.URL).Add(context.Background(), model.NewPlace{
		Name:     "Thai Spice",
		Type:     model.TypeRestaurant,
		Location: "135 Chinatown St",
		Visited:  true,
		Rating:   &rating,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/places/add", rec.path)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.body), &sent))
	assert.Equal(t, "Thai Spice", sent["name"])
	assert.Equal(t, true, sent["visited"])
	assert.Equal(t, 4.0, sent["rating"])
}

func TestUpdateSendsExplicitNulls(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "")

	err := NewClient(srv.URL).Update(context.Background(), "p1", model.UnvisitUpdate())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/places/update/p1", rec.path)
	assert.JSONEq(t, `{"visited":false,"rating":null,"notes":null}`, rec.body)
}

func TestDeleteUsesPut(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "")

	require.NoError(t, NewClient(srv.URL).Delete(context.Background(), "p1"))
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/places/delete/p1", rec.path)
}

func TestNon2xxReturnsHTTPError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, "place not found")

	err := NewClient(srv.URL).Delete(context.Background(), "missing")
	require.Error(t, err)

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
	assert.Contains(t, err.Error(), "place not found")
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))

	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "list places", ne.Op)
}

func TestLookupSwallowsErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, "boom")
	assert.Nil(t, NewClient(srv.URL).Lookup(context.Background(), "x"))
}

func TestBearerToken(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "[]")

	_, err := NewClient(srv.URL, WithBearerToken("s3cret")).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", rec.auth)
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("").BaseURL())
	assert.Equal(t, "http://example.com", NewClient("http://example.com/").BaseURL())
}
