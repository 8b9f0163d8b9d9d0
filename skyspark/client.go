// Package skyspark fetches sensor grids from a SkySpark-style HTTP API.
package skyspark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"skyspark_sync/config"

	"github.com/hashicorp/go-retryablehttp"
)

// ColDescriptor is the metadata the API attaches to one grid column.
// The first column of every grid is the timestamp column; every other
// column describes one sensor point.
type ColDescriptor struct {
	Name      string `json:"name"`
	EquipRef  string `json:"equipRef"`
	GroupRef  string `json:"groupRef"`
	Unit      string `json:"unit"`
	Indicator string `json:"indicator"`
	NavName   string `json:"navName"`
	SiteRef   string `json:"siteRef"`
	RegionRef string `json:"regionRef"`
}

// RawDocument is the column/row grid returned by the API. Rows are sparse:
// a column with no reading at a given timestamp is simply absent from the
// row's map.
type RawDocument struct {
	Cols []ColDescriptor     `json:"cols"`
	Rows []map[string]string `json:"rows"`
}

// Client fetches sensor grids over HTTP with retries.
type Client struct {
	apiURL string
	apiKey string
	http   *retryablehttp.Client
}

// NewClient creates a client from the skyspark section of the configuration.
func NewClient(cfg config.SkySparkConfig) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	rc.Logger = nil

	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		http:   rc,
	}
}

// Fetch retrieves the sensor grid. A non-empty since value is forwarded as
// the incremental cursor so the API only returns readings after it.
func (c *Client) Fetch(ctx context.Context, since string) (*RawDocument, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %s: %w", c.apiURL, err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	if since != "" {
		q.Set("since", since)
	}
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sensor data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor API returned status %d", resp.StatusCode)
	}

	var doc RawDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode sensor data: %w", err)
	}

	return &doc, nil
}
