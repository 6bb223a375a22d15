package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Locality is the place label shown above the clock.
type Locality struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// ResolveLocality reverse geocodes c. A nil geocoder or a failed lookup yields an
// empty Locality; the clock simply shows no label.
func ResolveLocality(ctx context.Context, geocoder Geocoder, c Coordinate, logger *slog.Logger) Locality {
	if geocoder == nil {
		return Locality{}
	}
	result, err := geocoder.ReverseGeocode(ctx, c.Lat, c.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", c.Lat,
			"lon", c.Lon,
			"error", err,
		)
		return Locality{}
	}
	return Locality{Name: result.Locality, Country: result.Country}
}

// ResolveCoordinate forward geocodes a configured place name.
func ResolveCoordinate(ctx context.Context, geocoder Geocoder, query string) (Coordinate, error) {
	if geocoder == nil {
		return Coordinate{}, errors.New("no geocoder configured")
	}
	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		return Coordinate{}, fmt.Errorf("forward geocode %q: %w", query, err)
	}
	if result.FormattedAddress == "" {
		return Coordinate{}, fmt.Errorf("forward geocode %q: no match", query)
	}
	c := Coordinate{Lat: result.Lat, Lon: result.Lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}
