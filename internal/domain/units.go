package domain

import "fmt"

// TemperatureUnit is the unit temperatures are presented in. Records always store
// Celsius.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
)

// ParseTemperatureUnit accepts "C" or "F" and the empty string, which means unset.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch TemperatureUnit(s) {
	case "", Celsius, Fahrenheit:
		return TemperatureUnit(s), nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// Convert returns celsius in unit u.
func (u TemperatureUnit) Convert(celsius float64) float64 {
	if u == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}

// DefaultUnitForCountry suggests Fahrenheit for the United States and Celsius
// everywhere else.
func DefaultUnitForCountry(country string) TemperatureUnit {
	if country == "United States" {
		return Fahrenheit
	}
	return Celsius
}
