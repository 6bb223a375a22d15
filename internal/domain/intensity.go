package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PrecipitationIntensity is an ordinal bucket of millimeters per hour.
type PrecipitationIntensity int

const (
	IntensityNone PrecipitationIntensity = iota
	IntensityLight
	IntensityModerate
	IntensityHeavy
	IntensityViolent
)

var intensityNames = [...]string{"none", "light", "moderate", "heavy", "violent"}

func (p PrecipitationIntensity) String() string {
	if p < IntensityNone || p > IntensityViolent {
		return "unknown"
	}
	return intensityNames[p]
}

// MarshalText writes the bucket name rather than its ordinal.
func (p PrecipitationIntensity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (p *PrecipitationIntensity) UnmarshalText(b []byte) error {
	for i, name := range intensityNames {
		if name == string(b) {
			*p = PrecipitationIntensity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown precipitation intensity %q", b)
}

// LineWidth is the stroke width the clock uses for rain at this intensity.
func (p PrecipitationIntensity) LineWidth() float64 {
	switch p {
	case IntensityLight:
		return 1
	case IntensityModerate:
		return 2
	case IntensityHeavy:
		return 3
	case IntensityViolent:
		return 5
	default:
		return 0
	}
}

// IntensityBucket assigns Intensity to amounts up to and including UpTo.
type IntensityBucket struct {
	UpTo      float64
	Intensity PrecipitationIntensity
}

// IntensityTable holds ascending buckets. Amounts at or below zero are always
// none and amounts above the last bucket are violent.
type IntensityTable []IntensityBucket

// DefaultIntensityTable uses the usual hourly rain-rate bands:
//
//	<= 0        none
//	(0, 2.5]    light
//	(2.5, 7.6]  moderate
//	(7.6, 50]   heavy
//	> 50        violent
var DefaultIntensityTable = IntensityTable{
	{UpTo: 2.5, Intensity: IntensityLight},
	{UpTo: 7.6, Intensity: IntensityModerate},
	{UpTo: 50, Intensity: IntensityHeavy},
}

// NewIntensityTable builds a table from the upper bounds of light, moderate and
// heavy. Bounds must be positive and strictly increasing.
func NewIntensityTable(light, moderate, heavy float64) (IntensityTable, error) {
	if light <= 0 || moderate <= light || heavy <= moderate {
		return nil, fmt.Errorf("intensity bounds must be positive and increasing: %v, %v, %v", light, moderate, heavy)
	}
	return IntensityTable{
		{UpTo: light, Intensity: IntensityLight},
		{UpTo: moderate, Intensity: IntensityModerate},
		{UpTo: heavy, Intensity: IntensityHeavy},
	}, nil
}

// ParseIntensityTable parses "light,moderate,heavy" upper bounds, e.g. "2.5,7.6,50".
func ParseIntensityTable(s string) (IntensityTable, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("want 3 comma-separated bounds, got %d", len(parts))
	}
	var bounds [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bound %q: %w", p, err)
		}
		bounds[i] = v
	}
	return NewIntensityTable(bounds[0], bounds[1], bounds[2])
}

// Classify returns the bucket for mm of precipitation in one hour.
func (t IntensityTable) Classify(mm float64) PrecipitationIntensity {
	if mm <= 0 || math.IsNaN(mm) {
		return IntensityNone
	}
	for _, b := range t {
		if mm <= b.UpTo {
			return b.Intensity
		}
	}
	return IntensityViolent
}
