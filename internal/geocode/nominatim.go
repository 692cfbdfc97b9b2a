package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/smukkama/openweather-panel/internal/location"
	"github.com/smukkama/openweather-panel/internal/owm"
)

// DefaultBaseURL is the public Nominatim instance
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

var (
	ErrEmptyQuery = &GeocodeError{"empty search query"}
)

// GeocodeError represents a geocoding error
type GeocodeError struct {
	msg string
}

func (e *GeocodeError) Error() string {
	return e.msg
}

// Result is one Nominatim search hit. Coordinates arrive as strings.
type Result struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Coordinate returns the "lat,lon" text shown next to a result
func (r Result) Coordinate() string {
	return r.Lat + "," + r.Lon
}

// Location converts the result to an OpenWeatherMap location entry
func (r Result) Location() (location.Location, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
	if err != nil {
		return location.Location{}, fmt.Errorf("latitude %q: %w", r.Lat, location.ErrInvalidLocation)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Lon), 64)
	if err != nil {
		return location.Location{}, fmt.Errorf("longitude %q: %w", r.Lon, location.ErrInvalidLocation)
	}
	return location.Location{
		Latitude:  lat,
		Longitude: lon,
		Name:      r.DisplayName,
		Provider:  location.ProviderOpenWeatherMap,
	}, nil
}

// Client searches locations by free text
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Nominatim client limited to one request per second.
// An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Search runs a free text query
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", owm.ExpandUserAgent(c.userAgent))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim error (status %d): %s", resp.StatusCode, string(body))
	}

	var results []Result
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("server returned an invalid response: %w", err)
	}
	return results, nil
}
