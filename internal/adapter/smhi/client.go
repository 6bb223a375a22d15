// Package smhi fetches point forecasts from the Swedish Meteorological and
// Hydrological Institute open data API.
//
// SMHI publishes no sun times, so sunrise and sunset are computed for every day
// the forecast covers. Polar days and nights have neither and their hours are
// skipped by ingestion like any other hour without sun times.
package smhi

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/nathan-osman/go-sunrise"
)

// DefaultBaseURL is the pmp3g point forecast API.
const DefaultBaseURL = "https://opendata-download-metfcst.smhi.se/api/category/pmp3g/version/2"

// Getter fetches a URL body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client implements pipeline.ForecastSource for SMHI.
type Client struct {
	baseURL string
	http    Getter
}

// NewClient creates an SMHI client.
func NewClient(baseURL string, http Getter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http}
}

func (c *Client) Name() string { return "smhi" }

// ForecastURL builds the point request for coord. SMHI accepts at most six
// decimals.
func (c *Client) ForecastURL(coord domain.Coordinate) (string, error) {
	if err := coord.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/geotype/point/lon/%.6f/lat/%.6f/data.json", c.baseURL, coord.Lon, coord.Lat), nil
}

// Fetch downloads the forecast at forecastURL and adds sun times for coord.
func (c *Client) Fetch(ctx context.Context, forecastURL string, coord domain.Coordinate) (domain.Forecast, error) {
	body, err := c.http.Get(ctx, forecastURL)
	if err != nil {
		return domain.Forecast{}, err
	}
	return Parse(body, coord)
}

type response struct {
	TimeSeries []timeSlot `json:"timeSeries"`
}

type timeSlot struct {
	ValidTime  time.Time   `json:"validTime"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Parse decodes an SMHI point forecast. Slots without temperature, symbol or
// precipitation are dropped; missing wind counts as calm.
func Parse(body []byte, coord domain.Coordinate) (domain.Forecast, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Forecast{}, fmt.Errorf("%w: decode smhi body: %v", domain.ErrParse, err)
	}

	f := domain.Forecast{Scheme: domain.SchemeSMHI}
	days := make(map[domain.NaiveDate]struct{})
	for _, slot := range resp.TimeSeries {
		values := slot.values()
		temp, ok := values["t"]
		if !ok {
			continue
		}
		symbol, ok := values["Wsymb2"]
		if !ok {
			continue
		}
		precip, ok := values["pmean"]
		if !ok {
			if precip, ok = values["pmin"]; !ok {
				continue
			}
		}

		at := slot.ValidTime.UTC()
		f.Time = append(f.Time, at)
		f.Temperature = append(f.Temperature, temp)
		f.WeatherCode = append(f.WeatherCode, int(symbol))
		f.Precipitation = append(f.Precipitation, precip)
		f.WindSpeed = append(f.WindSpeed, values["ws"])

		// Neighbours cover calendars that are not UTC.
		for _, d := range []time.Time{at.AddDate(0, 0, -1), at, at.AddDate(0, 0, 1)} {
			days[domain.NaiveDateOf(d, time.UTC)] = struct{}{}
		}
	}

	dates := make([]domain.NaiveDate, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, domain.NaiveDate.Compare)
	for _, d := range dates {
		rise, set := sunrise.SunriseSunset(coord.Lat, coord.Lon, d.Year, d.Month, d.Day)
		if rise.IsZero() || set.IsZero() {
			continue
		}
		f.Sunrise = append(f.Sunrise, rise.UTC())
		f.Sunset = append(f.Sunset, set.UTC())
	}

	if err := f.Validate(); err != nil {
		return domain.Forecast{}, err
	}
	return f, nil
}

func (s timeSlot) values() map[string]float64 {
	out := make(map[string]float64, len(s.Parameters))
	for _, p := range s.Parameters {
		if len(p.Values) > 0 {
			out[p.Name] = p.Values[0]
		}
	}
	return out
}
