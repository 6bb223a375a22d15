package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CodeScheme names the weather-code table a provider uses.
type CodeScheme int

const (
	// SchemeWMO is the WMO code table used by Open-Meteo.
	SchemeWMO CodeScheme = iota
	// SchemeSMHI is the SMHI Wsymb2 symbol table.
	SchemeSMHI
)

// Forecast is one provider response decoded into parallel arrays. Hourly arrays
// must all have the same length; Sunrise and Sunset are independent.
type Forecast struct {
	Scheme CodeScheme

	Time          []time.Time
	Temperature   []float64
	Precipitation []float64
	WeatherCode   []int
	WindSpeed     []float64

	Sunrise []time.Time
	Sunset  []time.Time
}

// Validate reports a length mismatch between the hourly arrays.
func (f Forecast) Validate() error {
	n := len(f.Time)
	for _, c := range []struct {
		name string
		n    int
	}{
		{"temperature_2m", len(f.Temperature)},
		{"precipitation", len(f.Precipitation)},
		{"weathercode", len(f.WeatherCode)},
		{"windspeed_10m", len(f.WindSpeed)},
	} {
		if c.n != n {
			return fmt.Errorf("%w: hourly.%s has %d entries, hourly.time has %d", ErrParse, c.name, c.n, n)
		}
	}
	return nil
}

// openMeteoResponse is the subset of the Open-Meteo forecast body requested with
// timeformat=unixtime. Elements are pointers so a null is told apart from zero.
type openMeteoResponse struct {
	Hourly struct {
		Time          []*int64   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		Precipitation []*float64 `json:"precipitation"`
		WeatherCode   []*int     `json:"weathercode"`
		WindSpeed10m  []*float64 `json:"windspeed_10m"`
	} `json:"hourly"`
	Daily struct {
		Sunrise []*int64 `json:"sunrise"`
		Sunset  []*int64 `json:"sunset"`
	} `json:"daily"`
}

// ParseOpenMeteo decodes an Open-Meteo forecast body. Decode errors, missing
// arrays, null elements and hourly length mismatches wrap ErrParse.
func ParseOpenMeteo(body []byte) (Forecast, error) {
	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Forecast{}, fmt.Errorf("%w: decode open-meteo body: %v", ErrParse, err)
	}

	h, d := resp.Hourly, resp.Daily
	times, err := required("hourly.time", h.Time)
	if err != nil {
		return Forecast{}, err
	}
	temps, err := required("hourly.temperature_2m", h.Temperature2m)
	if err != nil {
		return Forecast{}, err
	}
	precip, err := required("hourly.precipitation", h.Precipitation)
	if err != nil {
		return Forecast{}, err
	}
	codes, err := required("hourly.weathercode", h.WeatherCode)
	if err != nil {
		return Forecast{}, err
	}
	wind, err := required("hourly.windspeed_10m", h.WindSpeed10m)
	if err != nil {
		return Forecast{}, err
	}
	rises, err := required("daily.sunrise", d.Sunrise)
	if err != nil {
		return Forecast{}, err
	}
	sets, err := required("daily.sunset", d.Sunset)
	if err != nil {
		return Forecast{}, err
	}

	f := Forecast{
		Scheme:        SchemeWMO,
		Time:          unixSlice(times),
		Temperature:   temps,
		Precipitation: precip,
		WeatherCode:   codes,
		WindSpeed:     wind,
		Sunrise:       unixSlice(rises),
		Sunset:        unixSlice(sets),
	}
	if err := f.Validate(); err != nil {
		return Forecast{}, err
	}
	return f, nil
}

// required dereferences a decoded array. A missing or null array and any null
// element are parse errors.
func required[T any](name string, vals []*T) ([]T, error) {
	if vals == nil {
		return nil, fmt.Errorf("%w: %s is missing", ErrParse, name)
	}
	out := make([]T, len(vals))
	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("%w: %s[%d] is null", ErrParse, name, i)
		}
		out[i] = *v
	}
	return out, nil
}

func unixSlice(secs []int64) []time.Time {
	out := make([]time.Time, len(secs))
	for i, s := range secs {
		out[i] = time.Unix(s, 0).UTC()
	}
	return out
}
