// Package openmeteo fetches hourly forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/couchcryptid/weather-clock-service/internal/adapter/httpclient"
	"github.com/couchcryptid/weather-clock-service/internal/domain"
)

// DefaultBaseURL is the public forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Getter fetches a URL body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client implements pipeline.ForecastSource for Open-Meteo.
type Client struct {
	baseURL string
	http    Getter
}

// NewClient creates an Open-Meteo client.
func NewClient(baseURL string, http Getter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, http: http}
}

var _ Getter = (*httpclient.Client)(nil)

func (c *Client) Name() string { return "openmeteo" }

// ForecastURL builds the request for c: 24 past and the forecast hours with
// daily sun times, all in UTC unix seconds and wind in m/s.
func (c *Client) ForecastURL(coord domain.Coordinate) (string, error) {
	if err := coord.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", domain.ErrInvalidCoordinate, err)
	}
	q := url.Values{
		"latitude":       {strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"longitude":      {strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
		"hourly":         {"temperature_2m,precipitation,weathercode,cloudcover,windspeed_10m"},
		"past_days":      {"1"},
		"daily":          {"sunrise,sunset"},
		"timezone":       {"UTC"},
		"timeformat":     {"unixtime"},
		"windspeed_unit": {"ms"},
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads and decodes the forecast at forecastURL.
func (c *Client) Fetch(ctx context.Context, forecastURL string, _ domain.Coordinate) (domain.Forecast, error) {
	body, err := c.http.Get(ctx, forecastURL)
	if err != nil {
		return domain.Forecast{}, err
	}
	return domain.ParseOpenMeteo(body)
}
