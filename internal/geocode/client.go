package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a thin Nominatim API client. Nominatim needs no API key but
// requires a identifying User-Agent on every request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a Nominatim client with a bounded per-request timeout
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
	}
}

// address holds the granularities of a reverse geocode response we care
// about. Nominatim fills different fields depending on the place.
type address struct {
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Hamlet        string `json:"hamlet"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`

	State         string `json:"state"`
	StateDistrict string `json:"state_district"`
	Region        string `json:"region"`
	Province      string `json:"province"`
	County        string `json:"county"`

	Country string `json:"country"`
}

type reverseResponse struct {
	DisplayName string   `json:"display_name"`
	Address     *address `json:"address"`
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// reverse resolves coordinates to address components
func (c *Client) reverse(ctx context.Context, lat, lon float64) (*reverseResponse, error) {
	endpoint := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%s&lon=%s",
		c.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
	)

	var resp reverseResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// search resolves a free-text place query to ranked candidates
func (c *Client) search(ctx context.Context, query string) ([]searchResult, error) {
	endpoint := fmt.Sprintf("%s/search?format=jsonv2&limit=1&addressdetails=1&q=%s",
		c.baseURL, url.QueryEscape(query))

	var results []searchResult
	if err := c.get(ctx, endpoint, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
