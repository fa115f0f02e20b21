package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"foodmap-api/internal/models"
)

// ErrMissingAPIKey is a fatal configuration error raised before any
// per-address processing begins. It is the only hard failure this package
// produces; everything per-address collapses to a nil result.
var ErrMissingAPIKey = errors.New("geocoder: api key missing")

// Client resolves a single address against a LocationIQ-style search
// endpoint, requesting only the provider's top match. The address string is
// never logged anywhere in this package.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient fails only when the API credential is absent.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// The provider returns coordinates as strings.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeOne resolves one canonical address string to a coordinate. Every
// ordinary failure, an HTTP error, an empty candidate list, or coordinates
// that do not parse as finite numbers, returns nil rather than an error.
func (c *Client) GeocodeOne(ctx context.Context, address string) *models.LatLon {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil || len(results) == 0 {
		return nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil ||
		math.IsNaN(lat) || math.IsInf(lat, 0) ||
		math.IsNaN(lon) || math.IsInf(lon, 0) {
		return nil
	}
	return &models.LatLon{Lat: lat, Lon: lon}
}
