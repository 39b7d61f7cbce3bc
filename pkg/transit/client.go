package transit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lintang/timemap/pkg/datastructure"
	"lintang/timemap/pkg/lookup"
)

var ErrUnexpectedStatus = errors.New("unexpected status from transit service")

// Client http client buat station search & journey search (hafas style REST api).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

type locationResponse struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Location datastructure.Location `json:"location"`
}

type journeysResponse struct {
	Journeys []datastructure.Journey `json:"journeys"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %d: %s", ErrUnexpectedStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// SearchStation best match untuk nama station.
func (c *Client) SearchStation(ctx context.Context, name string) (datastructure.StationDetails, error) {
	q := url.Values{}
	q.Set("query", name)
	q.Set("results", "1")

	var locations []locationResponse
	if err := c.get(ctx, "/locations", q, &locations); err != nil {
		return datastructure.StationDetails{}, err
	}
	if len(locations) == 0 || locations[0].Name == "" {
		return datastructure.StationDetails{}, fmt.Errorf("%w: %s", lookup.ErrNoMatch, name)
	}
	best := locations[0]
	return datastructure.StationDetails{
		ID:   best.ID,
		Name: best.Name,
		Lat:  best.Location.Latitude,
		Lon:  best.Location.Longitude,
	}, nil
}

// SearchJourneys journey options dari fromID ke toID, berangkat >= when.
func (c *Client) SearchJourneys(ctx context.Context, fromID, toID string, when time.Time) ([]datastructure.Journey, error) {
	q := url.Values{}
	q.Set("from", fromID)
	q.Set("to", toID)
	q.Set("departure", when.Format(time.RFC3339))

	var res journeysResponse
	if err := c.get(ctx, "/journeys", q, &res); err != nil {
		return nil, err
	}
	return res.Journeys, nil
}
