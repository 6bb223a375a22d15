package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/adapter/httpclient"
	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTP() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Name:            "openmeteo",
		Timeout:         2 * time.Second,
		InitialInterval: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestForecastURL(t *testing.T) {
	c := NewClient("", nil)
	raw, err := c.ForecastURL(domain.Coordinate{Lat: 59.8586, Lon: 17.6389})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.open-meteo.com", u.Host)
	assert.Equal(t, "/v1/forecast", u.Path)

	q := u.Query()
	assert.Equal(t, "59.8586", q.Get("latitude"))
	assert.Equal(t, "17.6389", q.Get("longitude"))
	assert.Equal(t, "temperature_2m,precipitation,weathercode,cloudcover,windspeed_10m", q.Get("hourly"))
	assert.Equal(t, "1", q.Get("past_days"))
	assert.Equal(t, "sunrise,sunset", q.Get("daily"))
	assert.Equal(t, "UTC", q.Get("timezone"))
	assert.Equal(t, "unixtime", q.Get("timeformat"))
	assert.Equal(t, "ms", q.Get("windspeed_unit"))
}

func TestForecastURL_IsStablePerCoordinate(t *testing.T) {
	c := NewClient("", nil)
	a, err := c.ForecastURL(domain.Coordinate{Lat: 1.5, Lon: 2.5})
	require.NoError(t, err)
	b, err := c.ForecastURL(domain.Coordinate{Lat: 1.5, Lon: 2.5})
	require.NoError(t, err)
	d, err := c.ForecastURL(domain.Coordinate{Lat: 1.5000001, Lon: 2.5})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, d)
}

func TestForecastURL_InvalidCoordinate(t *testing.T) {
	c := NewClient("", nil)
	_, err := c.ForecastURL(domain.Coordinate{Lat: math.NaN(), Lon: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestFetch(t *testing.T) {
	body, err := os.ReadFile("../../domain/testdata/openmeteo_forecast.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "59.86", r.URL.Query().Get("latitude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testHTTP())
	coord := domain.Coordinate{Lat: 59.86, Lon: 17.64}
	u, err := c.ForecastURL(coord)
	require.NoError(t, err)

	f, err := c.Fetch(context.Background(), u, coord)
	require.NoError(t, err)
	assert.Equal(t, domain.SchemeWMO, f.Scheme)
	assert.Len(t, f.Time, 5)
	assert.Len(t, f.Sunset, 1)
}

func TestFetch_Errors(t *testing.T) {
	t.Run("service unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, testHTTP()).Fetch(context.Background(), srv.URL, domain.Coordinate{})
		assert.ErrorIs(t, err, domain.ErrNetwork)
	})

	t.Run("garbage body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"hourly":`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, testHTTP()).Fetch(context.Background(), srv.URL, domain.Coordinate{})
		assert.ErrorIs(t, err, domain.ErrParse)
	})

	for name, body := range map[string]string{
		"error object": `{"error":true,"reason":"Latitude must be in range of -90 to 90"}`,
		"null values": `{"hourly":{"time":[1717200000],"temperature_2m":[null],"precipitation":[null],` +
			`"weathercode":[null],"windspeed_10m":[5]},"daily":{"sunrise":[1717213800],"sunset":[1717271100]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			f, err := NewClient(srv.URL, testHTTP()).Fetch(context.Background(), srv.URL, domain.Coordinate{})
			require.ErrorIs(t, err, domain.ErrParse)
			assert.Empty(t, f.Time)
		})
	}
}
