package domain

import (
	"fmt"
	"time"
)

// WeatherSource selects where forecasts come from.
type WeatherSource string

const (
	SourceReal WeatherSource = "real" // network provider
	SourceFake WeatherSource = "fake" // every category, for drawing checks
	SourceDemo WeatherSource = "demo" // a plausible summer day, for screenshots
)

// ParseWeatherSource validates a WEATHER_SOURCE value.
func ParseWeatherSource(s string) (WeatherSource, error) {
	switch WeatherSource(s) {
	case SourceReal, SourceFake, SourceDemo:
		return WeatherSource(s), nil
	default:
		return "", fmt.Errorf("unknown weather source %q", s)
	}
}

type cannedHour struct {
	temp     float64
	category Category
	mm       float64
	day      bool
}

type cannedDay struct {
	sunriseH, sunriseM int
	sunsetH, sunsetM   int
	hours              [24]cannedHour
}

var fakeDay = cannedDay{
	sunriseH: 6, sunriseM: 20,
	sunsetH: 20, sunsetM: 10,
	hours: [24]cannedHour{
		{1, CategorySnow, 1, false},
		{-11, CategoryMainlyClear, 0, false},
		{10, CategoryClear, 1, false},
		{15, CategoryLightning, 0, false},
		{20, CategoryLightning, 9, false},
		{26, CategoryCloud, 100, false},
		{27, CategoryLightCloud, 1, false},
		{32, CategoryRain, 0, true},
		{8, CategoryWind, 0, true},
		{9, CategoryCloud, 0, true},
		{10, CategoryLightning, 0, true},
		{11, CategoryFog, 10, true},
		{12, CategoryFog, 0, true},
		{13, CategoryLightning, 10, true},
		{14, CategoryClear, 10, true},
		{16, CategoryLightCloud, 10, true},
		{-23, CategoryLightCloud, 10, true},
		{-12, CategoryLightCloud, 0, true},
		{17, CategoryWind, 10, true},
		{24, CategoryCloud, 0, false},
		{35, CategoryLightning, 1, false},
		{1, CategoryFog, 0, false},
		{10, CategoryFog, 0, false},
		{13, CategoryFog, 0, false},
	},
}

var demoDay = cannedDay{
	sunriseH: 6, sunriseM: 20,
	sunsetH: 19, sunsetM: 30,
	hours: [24]cannedHour{
		{1, CategoryClear, 0, false},
		{-1, CategoryMainlyClear, 0, false},
		{3, CategoryClear, 0, false},
		{7, CategoryClear, 0, false},
		{14, CategoryLightCloud, 0, false},
		{18, CategoryLightCloud, 0, false},
		{20, CategoryLightCloud, 1, false},
		{20, CategoryRain, 5, true},
		{19, CategoryRain, 10, true},
		{20, CategoryRain, 1, true},
		{19, CategoryLightCloud, 0, true},
		{17, CategoryLightCloud, 0, true},
		{23, CategoryClear, 0, true},
		{25, CategoryClear, 0, true},
		{24, CategoryClear, 0, true},
		{27, CategoryLightCloud, 0, true},
		{26, CategoryLightCloud, 0, true},
		{32, CategoryLightCloud, 0, true},
		{30, CategoryWind, 0, true},
		{28, CategoryClear, 0, false},
		{23, CategoryClear, 0, false},
		{20, CategoryClear, 0, false},
		{16, CategoryClear, 0, false},
		{18, CategoryClear, 0, false},
	},
}

// CannedMaps returns a full day of made-up weather for the day of now in loc.
// The day flags are fixed by hand rather than derived from sunrise and sunset.
func CannedMaps(source WeatherSource, now time.Time, loc *time.Location, table IntensityTable) (Maps, error) {
	var day cannedDay
	switch source {
	case SourceFake:
		day = fakeDay
	case SourceDemo:
		day = demoDay
	default:
		return Maps{}, fmt.Errorf("no canned data for source %q", source)
	}
	if table == nil {
		table = DefaultIntensityTable
	}

	today := NaiveDateOf(now, loc)
	m := NewMaps()
	m.Sunrise[today] = today.At(day.sunriseH, day.sunriseM, loc)
	m.Sunset[today] = today.At(day.sunsetH, day.sunsetM, loc)
	for h, c := range day.hours {
		t := today.At(h, 0, loc)
		m.Weather[HourKeyOf(t)] = WeatherRecord{
			Time:                     t.UTC(),
			TemperatureCelsius:       c.temp,
			Category:                 c.category,
			PrecipitationMillimeters: c.mm,
			PrecipitationIntensity:   table.Classify(c.mm),
			IsDaytime:                c.day,
		}
	}
	return m, nil
}
