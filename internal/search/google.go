package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bitebook/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	placesAPIBase   = "https://places.googleapis.com/v1"
	staticMapAPIURL = "https://maps.googleapis.com/maps/api/staticmap"

	// MinQueryLength is the shortest query sent to autocomplete.
	MinQueryLength = 2

	memoSize = 128
	memoTTL  = 5 * time.Minute
)

const detailsFieldMask = "id,displayName,formattedAddress,websiteUri,businessStatus,regularOpeningHours,types,location"

// GoogleClient wraps the Google Places API (New) and the Static Maps API.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	staticURL  string
	httpClient *http.Client
	memo       *expirable.LRU[string, []Suggestion]
}

// Option configures a GoogleClient.
type Option func(*GoogleClient)

// WithBaseURL points the Places calls somewhere other than Google.
func WithBaseURL(u string) Option {
	return func(c *GoogleClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithStaticMapURL points StaticMap somewhere other than Google.
func WithStaticMapURL(u string) Option {
	return func(c *GoogleClient) { c.staticURL = u }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GoogleClient) { c.httpClient = hc }
}

// NewGoogleClient creates a new Google Places API client.
func NewGoogleClient(apiKey string, opts ...Option) *GoogleClient {
	c := &GoogleClient{
		apiKey:     apiKey,
		baseURL:    placesAPIBase,
		staticURL:  staticMapAPIURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		memo:       expirable.NewLRU[string, []Suggestion](memoSize, nil, memoTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suggestion represents an autocomplete prediction.
type Suggestion struct {
	PlaceID     string
	Name        string // main text, usually the business name
	Address     string // secondary text
	Description string // full one-line text
}

// LatLng is a coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Details is the subset of a place's provider record that we store.
type Details struct {
	PlaceID           string
	Name              string
	FormattedAddress  string
	Website           string
	BusinessStatus    string
	PermanentlyClosed bool
	OpeningHours      model.OpeningHours
	Types             []string
	Location          *LatLng
}

// SuggestedType maps provider place types onto ours.
func (d Details) SuggestedType() model.PlaceType {
	for _, t := range d.Types {
		switch t {
		case "bar", "night_club", "pub", "wine_bar":
			return model.TypeBar
		case "cafe", "coffee_shop", "bakery", "tea_house":
			return model.TypeCafe
		}
	}
	return model.TypeRestaurant
}

// ShortLocation is the street part of the formatted address.
func (d Details) ShortLocation() string {
	if i := strings.Index(d.FormattedAddress, ","); i > 0 {
		return strings.TrimSpace(d.FormattedAddress[:i])
	}
	return d.FormattedAddress
}

// Autocomplete returns establishment predictions for query. Queries shorter
// than MinQueryLength return no results. Answers are memoized for a few minutes.
func (c *GoogleClient) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []Suggestion{}, nil
	}
	key := strings.ToLower(query)
	if cached, ok := c.memo.Get(key); ok {
		return cached, nil
	}

	reqBody := autocompleteRequest{
		Input:                query,
		IncludedPrimaryTypes: []string{"establishment"},
	}

	var result autocompleteResponse
	if err := c.post(ctx, c.baseURL+"/places:autocomplete", "", reqBody, &result); err != nil {
		return []Suggestion{}, err
	}

	suggestions := make([]Suggestion, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		p := s.PlacePrediction
		if p == nil || p.PlaceID == "" {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			PlaceID:     p.PlaceID,
			Name:        p.StructuredFormat.MainText.Text,
			Address:     p.StructuredFormat.SecondaryText.Text,
			Description: p.Text.Text,
		})
	}

	c.memo.Add(key, suggestions)
	return suggestions, nil
}

// Details fetches the full provider record for placeID.
func (c *GoogleClient) Details(ctx context.Context, placeID string) (*Details, error) {
	reqURL := fmt.Sprintf("%s/places/%s", c.baseURL, url.PathEscape(placeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	c.authorize(req, detailsFieldMask)

	var place placeResource
	if err := c.send(req, &place); err != nil {
		return nil, err
	}
	return place.toDetails(), nil
}

// SearchText finds the best match for a free-text query such as a place name.
// It returns nil when nothing matches.
func (c *GoogleClient) SearchText(ctx context.Context, query string) (*Details, error) {
	fieldMask := "places." + strings.ReplaceAll(detailsFieldMask, ",", ",places.")

	var result searchTextResponse
	if err := c.post(ctx, c.baseURL+"/places:searchText", fieldMask, searchTextRequest{TextQuery: query}, &result); err != nil {
		return nil, err
	}
	if len(result.Places) == 0 {
		return nil, nil
	}
	return result.Places[0].toDetails(), nil
}

// StaticMap fetches a map image centred on query with a single marker.
func (c *GoogleClient) StaticMap(ctx context.Context, query string, width, height int) (image.Image, error) {
	params := url.Values{}
	params.Set("center", query)
	params.Set("zoom", "16")
	params.Set("size", fmt.Sprintf("%dx%d", width, height))
	params.Set("markers", query)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.staticURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image decode error: %w", err)
	}
	return img, nil
}

func (c *GoogleClient) authorize(req *http.Request, fieldMask string) {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if fieldMask != "" {
		req.Header.Set("X-Goog-FieldMask", fieldMask)
	}
}

func (c *GoogleClient) post(ctx context.Context, reqURL, fieldMask string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("request encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, fieldMask)

	return c.send(req, out)
}

func (c *GoogleClient) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	return nil
}

// API request/response types

type autocompleteRequest struct {
	Input                string   `json:"input"`
	IncludedPrimaryTypes []string `json:"includedPrimaryTypes,omitempty"`
}

type autocompleteResponse struct {
	Suggestions []struct {
		PlacePrediction *placePrediction `json:"placePrediction"`
	} `json:"suggestions"`
}

type placePrediction struct {
	PlaceID          string        `json:"placeId"`
	Text             formattedText `json:"text"`
	StructuredFormat struct {
		MainText      formattedText `json:"mainText"`
		SecondaryText formattedText `json:"secondaryText"`
	} `json:"structuredFormat"`
}

type formattedText struct {
	Text string `json:"text"`
}

type searchTextRequest struct {
	TextQuery string `json:"textQuery"`
}

type searchTextResponse struct {
	Places []placeResource `json:"places"`
}

type placeResource struct {
	ID                  string        `json:"id"`
	DisplayName         formattedText `json:"displayName"`
	FormattedAddress    string        `json:"formattedAddress"`
	WebsiteURI          string        `json:"websiteUri"`
	BusinessStatus      string        `json:"businessStatus"`
	Types               []string      `json:"types"`
	Location            *LatLng       `json:"location"`
	RegularOpeningHours *struct {
		OpenNow bool           `json:"openNow"`
		Periods []openingRange `json:"periods"`
	} `json:"regularOpeningHours"`
}

type openingRange struct {
	Open  *dayTime `json:"open"`
	Close *dayTime `json:"close"`
}

type dayTime struct {
	Day    int `json:"day"` // 0 is Sunday
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (p placeResource) toDetails() *Details {
	d := &Details{
		PlaceID:           p.ID,
		Name:              p.DisplayName.Text,
		FormattedAddress:  p.FormattedAddress,
		Website:           p.WebsiteURI,
		BusinessStatus:    p.BusinessStatus,
		PermanentlyClosed: strings.Contains(p.BusinessStatus, "CLOSED"),
		Types:             p.Types,
		Location:          p.Location,
	}
	if p.RegularOpeningHours != nil {
		d.OpeningHours = toOpeningHours(p.RegularOpeningHours.Periods)
	}
	return d
}

// toOpeningHours groups periods by the weekday they open on. A period with
// no close time is open for the rest of the day.
func toOpeningHours(periods []openingRange) model.OpeningHours {
	hours := model.OpeningHours{}
	for _, r := range periods {
		if r.Open == nil || r.Open.Day < 0 || r.Open.Day > 6 {
			continue
		}
		period := model.OpeningPeriod{
			OpeningHour:   r.Open.Hour,
			OpeningMinute: r.Open.Minute,
			ClosingHour:   23,
			ClosingMinute: 59,
		}
		if r.Close != nil {
			period.ClosingHour = r.Close.Hour
			period.ClosingMinute = r.Close.Minute
		}
		day := time.Weekday(r.Open.Day).String()
		hours[day] = append(hours[day], period)
	}
	return hours
}
