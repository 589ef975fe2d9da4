// Package airsrc pulls pollutant readings from an upstream air quality API.
package airsrc

import (
	"context"
	"fmt"
	"time"

	"AirPulse/internal/domain/models"
	"AirPulse/pkg/cache"
	xhttp "AirPulse/pkg/http"
	applogger "AirPulse/pkg/logger"
)

const defaultCacheTTL = 10 * time.Minute

// Option configures the Client.
type Option func(*Client)

// Client fetches hourly readings over REST, with an optional cache in
// front of the upstream.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	cache    cache.Service
	cacheTTL time.Duration
	l        *applogger.Logger
}

// NewClient creates an upstream readings client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:     xhttp.NewClient(),
		baseURL:  baseURL,
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache enables response caching.
func WithCache(svc cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = svc
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.l = l }
}

// measurementsResponse decodes results straight into Reading so string and
// empty value fields coerce the same way as API request bodies.
type measurementsResponse struct {
	Results []models.Reading `json:"results"`
}

// Fetch returns readings for a station and parameter over [from, to].
// Results are cached per station, parameter and hour-truncated range.
func (c *Client) Fetch(ctx context.Context, stationID, parameter string, from, to time.Time) ([]models.Reading, error) {
	key := cache.Key("measurements", stationID, parameter,
		from.UTC().Truncate(time.Hour).Unix(), to.UTC().Truncate(time.Hour).Unix())

	if c.cache != nil {
		var cached []models.Reading
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			if c.l != nil {
				c.l.Debug("upstream cache hit", applogger.String("key", key))
			}
			return cached, nil
		}
	}

	var resp measurementsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v3/measurements",
		QueryParams: map[string][]string{
			"station_id": {stationID},
			"parameter":  {parameter},
			"date_from":  {from.UTC().Format(time.RFC3339)},
			"date_to":    {to.UTC().Format(time.RFC3339)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch measurements: %w", err)
	}

	readings := resp.Results
	if readings == nil {
		readings = []models.Reading{}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, readings, c.cacheTTL); err != nil && c.l != nil {
			c.l.Warn("upstream cache set error", applogger.Error(err))
		}
	}
	if c.l != nil {
		c.l.Info("upstream fetch ok",
			applogger.String("station", stationID),
			applogger.String("parameter", parameter),
			applogger.Int("readings", len(readings)),
		)
	}
	return readings, nil
}
