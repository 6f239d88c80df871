package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"bitebook/internal/model"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is where the places service listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:8080"

// maxErrorBody caps how much of a failed response is kept in HTTPError.
const maxErrorBody = 512

// Client talks to the places REST service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken authenticates every request with a static bearer token.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token == "" {
			return
		}
		c.httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
	}
}

// NewClient creates a client for the service at baseURL. An empty baseURL
// means DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches every place.
func (c *Client) List(ctx context.Context) ([]model.Place, error) {
	body, err := c.do(ctx, "list places", http.MethodGet, "/places/feed", nil)
	if err != nil {
		return nil, err
	}

	var places []model.Place
	if len(bytes.TrimSpace(body)) == 0 {
		return places, nil
	}
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("failed to decode places: %w", err)
	}
	return places, nil
}

// Get fetches one place. An empty response body yields (nil, nil).
func (c *Client) Get(ctx context.Context, id string) (*model.Place, error) {
	body, err := c.do(ctx, "get place", http.MethodGet, "/places/place/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil, nil
	}

	var p model.Place
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode place: %w", err)
	}
	return &p, nil
}

// Lookup is Get for callers that can fall back to a copy they already hold.
// Failures are logged and reported as nil.
func (c *Client) Lookup(ctx context.Context, id string) *model.Place {
	p, err := c.Get(ctx, id)
	if err != nil {
		log.Printf("warning: failed to fetch place %s: %v", id, err)
		return nil
	}
	return p
}

// Add creates a place. The service assigns the id and timestamps, so callers
// re-fetch the list to see it.
func (c *Client) Add(ctx context.Context, p model.NewPlace) error {
	_, err := c.do(ctx, "add place", http.MethodPost, "/places/add", p)
	return err
}

// Update applies a partial update. Null fields in u are sent as JSON null.
func (c *Client) Update(ctx context.Context, id string, u model.PlaceUpdate) error {
	_, err := c.do(ctx, "update place", http.MethodPost, "/places/update/"+url.PathEscape(id), u)
	return err
}

// Delete removes a place. The service exposes delete as PUT.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete place", http.MethodPut, "/places/delete/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: request creation failed: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return body, nil
}
