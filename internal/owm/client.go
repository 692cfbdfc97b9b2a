package owm

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
)

const (
	// DefaultBaseURL is the OpenWeatherMap 2.5 API root
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	// CityBaseURL is the public city page root
	CityBaseURL = "https://openweathermap.org/city/"

	// DefaultAgent is appended to a User-Agent that ends in a space
	DefaultAgent = "Go-http-client/1.1"

	// KeyLength is the length of a valid API key
	KeyLength = 32
)

// APIError is returned for non-200 responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweathermap: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the OpenWeatherMap current weather and forecast endpoints
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit limits outgoing requests. rps may be fractional.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient creates a client. An empty apiKey omits the appid parameter.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name
func (c *Client) Name() string {
	return "OpenWeatherMap"
}

// HasKey reports whether requests carry an API key
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// CityURL returns the provider's page for a city id
func (c *Client) CityURL(cityID int) string {
	return CityBaseURL + strconv.Itoa(cityID)
}

// Current fetches current conditions for coord. A non-empty lang asks the
// provider for translated descriptions; an empty one omits the parameter.
func (c *Client) Current(ctx context.Context, coord location.Coordinate, lang string) (*CurrentWeather, error) {
	var cw CurrentWeather
	if err := c.get(ctx, "weather", coord, lang, &cw); err != nil {
		return nil, err
	}
	return &cw, nil
}

// Forecast fetches the 5 day / 3 hour forecast for coord
func (c *Client) Forecast(ctx context.Context, coord location.Coordinate, lang string) (*ForecastResponse, error) {
	var fr ForecastResponse
	if err := c.get(ctx, "forecast", coord, lang, &fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

func (c *Client) get(ctx context.Context, endpoint string, coord location.Coordinate, lang string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	params.Set("units", "metric")
	if lang != "" {
		params.Set("lang", lang)
	}
	if c.apiKey != "" {
		params.Set("appid", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", ExpandUserAgent(c.userAgent))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

// UserAgent builds "<id>/<version> ". The trailing space asks the client to
// append DefaultAgent. An empty version yields "<id> ".
func UserAgent(id, version string) string {
	ua := id
	if strings.TrimSpace(version) != "" {
		ua += "/" + version
	}
	return ua + " "
}

// ExpandUserAgent appends DefaultAgent to a User-Agent ending in a space
func ExpandUserAgent(ua string) string {
	if strings.HasSuffix(ua, " ") {
		return ua + DefaultAgent
	}
	return ua
}

// APIKey returns key when it is a usable 32 character key and the default
// key is not requested, otherwise "".
func APIKey(key string, useDefault bool) string {
	if useDefault {
		return ""
	}
	key = strings.TrimSpace(key)
	if len(key) != KeyLength {
		return ""
	}
	return key
}
