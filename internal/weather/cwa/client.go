// Package cwa fetches current observations and 36-hour forecasts from the
// Central Weather Administration open-data API.
package cwa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-card/internal/weather"
)

const (
	// DefaultBaseURL is the datastore root of the open-data API.
	DefaultBaseURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore"

	observationDataset = "O-A0003-001"
	forecastDataset    = "F-C0032-001"
)

// Config holds the client settings.
type Config struct {
	BaseURL string
	// RequestsPerSecond limits calls per endpoint. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Client implements weather.Source.
type Client struct {
	baseURL     string
	observation *endpoint
	forecast    *endpoint
}

var _ weather.Source = (*Client)(nil)

// NewClient creates a Client that shares httpClient between both datasets.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL:     base,
		observation: newEndpoint("observation", httpClient, cfg),
		forecast:    newEndpoint("forecast", httpClient, cfg),
	}
}

func newEndpoint(name string, httpClient *http.Client, cfg Config) *endpoint {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "cwa-" + name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: countsAsSuccess,
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &endpoint{
		name:    name,
		client:  httpClient,
		circuit: cb,
		limiter: limiter,
	}
}

// FetchObservation returns the current conditions of the named station.
func (c *Client) FetchObservation(ctx context.Context, credentialKey, observationName string) (weather.ObservationRecord, error) {
	var rec weather.ObservationRecord
	err := c.observation.do(ctx, c.datasetURL(observationDataset, credentialKey, observationName), func(r io.Reader) error {
		var decodeErr error
		rec, decodeErr = decodeObservation(r)
		return decodeErr
	})
	if err != nil {
		return weather.ObservationRecord{}, err
	}
	return rec, nil
}

// FetchForecast returns the nearest forecast window of the named city.
func (c *Client) FetchForecast(ctx context.Context, credentialKey, forecastName string) (weather.ForecastRecord, error) {
	var rec weather.ForecastRecord
	err := c.forecast.do(ctx, c.datasetURL(forecastDataset, credentialKey, forecastName), func(r io.Reader) error {
		var decodeErr error
		rec, decodeErr = decodeForecast(r)
		return decodeErr
	})
	if err != nil {
		return weather.ForecastRecord{}, err
	}
	return rec, nil
}

func (c *Client) datasetURL(dataset, credentialKey, locationName string) string {
	values := url.Values{}
	values.Set("Authorization", credentialKey)
	values.Set("locationName", locationName)
	return fmt.Sprintf("%s/%s?%s", c.baseURL, dataset, values.Encode())
}
