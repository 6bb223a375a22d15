package http

import (
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/session"
)

// snapshot is the GET /v1/weather body.
type snapshot struct {
	Locality      domain.Locality                `json:"locality"`
	Location      *domain.Coordinate             `json:"location,omitempty"`
	Unit          domain.TemperatureUnit         `json:"unit"`
	UpdatedAt     *time.Time                     `json:"updated_at,omitempty"`
	WeatherByHour []hour                         `json:"weather_by_hour"`
	SunriseByDate map[domain.NaiveDate]time.Time `json:"sunrise_by_date"`
	SunsetByDate  map[domain.NaiveDate]time.Time `json:"sunset_by_date"`
}

// hour is a WeatherRecord with its temperature in the response unit.
type hour struct {
	Time                     time.Time                     `json:"time"`
	Temperature              float64                       `json:"temperature"`
	Category                 domain.Category               `json:"category"`
	PrecipitationMillimeters float64                       `json:"precipitation_mm"`
	PrecipitationIntensity   domain.PrecipitationIntensity `json:"precipitation_intensity"`
	LineWidth                float64                       `json:"line_width"`
	IsDaytime                bool                          `json:"is_daytime"`
}

func newSnapshot(v session.View) snapshot {
	out := snapshot{
		Locality:      v.Locality,
		Location:      v.Location,
		Unit:          v.Unit,
		WeatherByHour: make([]hour, 0, len(v.Maps.Weather)),
		SunriseByDate: v.Maps.Sunrise,
		SunsetByDate:  v.Maps.Sunset,
	}
	if !v.UpdatedAt.IsZero() {
		at := v.UpdatedAt.UTC()
		out.UpdatedAt = &at
	}
	if out.SunriseByDate == nil {
		out.SunriseByDate = map[domain.NaiveDate]time.Time{}
	}
	if out.SunsetByDate == nil {
		out.SunsetByDate = map[domain.NaiveDate]time.Time{}
	}
	for _, k := range v.Maps.Hours() {
		rec := v.Maps.Weather[k]
		out.WeatherByHour = append(out.WeatherByHour, hour{
			Time:                     rec.Time,
			Temperature:              v.Unit.Convert(rec.TemperatureCelsius),
			Category:                 rec.Category,
			PrecipitationMillimeters: rec.PrecipitationMillimeters,
			PrecipitationIntensity:   rec.PrecipitationIntensity,
			LineWidth:                rec.PrecipitationIntensity.LineWidth(),
			IsDaytime:                rec.IsDaytime,
		})
	}
	return out
}
