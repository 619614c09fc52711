// Package kakao is a thin client for the Kakao Local REST API:
// address geocoding and nearby place search. Callers own throttling
// and retry policy.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"modu-catholic/internal/model"
)

const (
	defaultBaseURL = "https://dapi.kakao.com"

	geocodePath  = "/v2/local/search/address.json"
	keywordPath  = "/v2/local/search/keyword.json"
	categoryPath = "/v2/local/search/category.json"

	requestTimeout = 15 * time.Second

	// Search window: a 1km radius, a handful of results, ranked by
	// relevance rather than raw distance.
	searchRadius = 1000
	searchSize   = 3
	sortAccuracy = "accuracy"
)

// Place is one search result document.
type Place struct {
	Name         string `json:"place_name"`
	CategoryName string `json:"category_group_name"`
	Distance     string `json:"distance"`
	RoadAddress  string `json:"road_address_name"`
	Address      string `json:"address_name"`
	X            string `json:"x"`
	Y            string `json:"y"`
}

type searchResponse struct {
	Documents []Place `json:"documents"`
}

// Client calls the Kakao Local API with a REST API key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client. An empty baseURL selects the real API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Geocode resolves an address to coordinates. An address the API does
// not know yields nil without an error.
func (c *Client) Geocode(ctx context.Context, address string) (*model.Location, error) {
	if address == "" {
		return nil, nil
	}

	params := url.Values{"query": {address}}
	docs, err := c.search(ctx, geocodePath, params)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(docs[0].Y, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", docs[0].Y, err)
	}
	lng, err := strconv.ParseFloat(docs[0].X, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", docs[0].X, err)
	}
	return &model.Location{Lat: lat, Lng: lng}, nil
}

// SearchCategory finds places of a category group near a point.
func (c *Client) SearchCategory(ctx context.Context, loc *model.Location, code string) ([]Place, error) {
	if loc == nil {
		return nil, nil
	}
	params := c.spatialParams(loc)
	params.Set("category_group_code", code)
	return c.search(ctx, categoryPath, params)
}

// SearchKeyword finds places matching a keyword near a point.
func (c *Client) SearchKeyword(ctx context.Context, loc *model.Location, keyword string) ([]Place, error) {
	if loc == nil {
		return nil, nil
	}
	params := c.spatialParams(loc)
	params.Set("query", keyword)
	return c.search(ctx, keywordPath, params)
}

func (c *Client) spatialParams(loc *model.Location) url.Values {
	return url.Values{
		"x":      {strconv.FormatFloat(loc.Lng, 'f', -1, 64)},
		"y":      {strconv.FormatFloat(loc.Lat, 'f', -1, 64)},
		"radius": {strconv.Itoa(searchRadius)},
		"sort":   {sortAccuracy},
		"size":   {strconv.Itoa(searchSize)},
	}
}

func (c *Client) search(ctx context.Context, path string, params url.Values) ([]Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kakao api status %d: %s", resp.StatusCode, body)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding kakao response: %w", err)
	}
	return parsed.Documents, nil
}
