package domain

import (
	"maps"
	"slices"
	"time"
)

// Category is the closed set of weather kinds the clock can draw.
type Category string

const (
	CategoryClear       Category = "clear"
	CategoryMainlyClear Category = "mainlyClear"
	CategoryLightCloud  Category = "lightCloud"
	CategoryCloud       Category = "cloud"
	CategoryFog         Category = "fog"
	CategoryRain        Category = "rain"
	CategorySnow        Category = "snow"
	CategoryLightning   Category = "lightning"
	CategoryWind        Category = "wind"
	CategoryUnknown     Category = "unknown"
)

// HourKey is the unix second of an hour-aligned timestamp. It keys the weather map
// because time.Time carries a location and is not a reliable map key.
type HourKey int64

// HourKeyOf returns the key for t.
func HourKeyOf(t time.Time) HourKey {
	return HourKey(t.Unix())
}

// Time returns the key as a UTC time.
func (k HourKey) Time() time.Time {
	return time.Unix(int64(k), 0).UTC()
}

// WeatherRecord is the normalized weather for one hour.
type WeatherRecord struct {
	Time                     time.Time              `json:"time"`
	TemperatureCelsius       float64                `json:"temperature_celsius"`
	Category                 Category               `json:"category"`
	PrecipitationMillimeters float64                `json:"precipitation_mm"`
	PrecipitationIntensity   PrecipitationIntensity `json:"precipitation_intensity"`
	IsDaytime                bool                   `json:"is_daytime"`
}

// Maps is the normalized state read by the renderer. A Maps value handed out by
// the session is never mutated; ingestion always builds a new one.
type Maps struct {
	Weather map[HourKey]WeatherRecord
	Sunrise map[NaiveDate]time.Time
	Sunset  map[NaiveDate]time.Time
}

// NewMaps returns empty, non-nil maps.
func NewMaps() Maps {
	return Maps{
		Weather: make(map[HourKey]WeatherRecord),
		Sunrise: make(map[NaiveDate]time.Time),
		Sunset:  make(map[NaiveDate]time.Time),
	}
}

// Clone returns a copy that shares no map with m. Nil maps become empty maps.
func (m Maps) Clone() Maps {
	out := NewMaps()
	maps.Copy(out.Weather, m.Weather)
	maps.Copy(out.Sunrise, m.Sunrise)
	maps.Copy(out.Sunset, m.Sunset)
	return out
}

// Hours returns the weather keys in ascending order.
func (m Maps) Hours() []HourKey {
	keys := make([]HourKey, 0, len(m.Weather))
	for k := range m.Weather {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
