package domain

import "time"

// IngestStats summarizes one ingestion.
type IngestStats struct {
	Records int // hours written to the weather map
	Skipped int // hours dropped for lack of sunrise or sunset
}

// Ingestor turns a Forecast into updated Maps.
type Ingestor struct {
	// Calendar is the reference zone for NaiveDate keys. Nil means UTC.
	Calendar *time.Location
	// Intensity buckets precipitation. Nil means DefaultIntensityTable.
	Intensity IntensityTable
}

// NewIngestor returns an Ingestor for the given calendar and intensity table.
func NewIngestor(calendar *time.Location, intensity IntensityTable) *Ingestor {
	return &Ingestor{Calendar: calendar, Intensity: intensity}
}

// Ingest merges f into a copy of current and returns the copy. current is never
// modified. On error the returned Maps is the zero value and the caller keeps
// current as it was.
//
// Day and night are decided only from the sunrise and sunset in f itself. An hour
// whose date has no sunrise or no sunset in f is skipped, never defaulted. An hour
// exactly at sunrise or sunset is night.
func (in *Ingestor) Ingest(f Forecast, current Maps) (Maps, IngestStats, error) {
	if err := f.Validate(); err != nil {
		return Maps{}, IngestStats{}, err
	}

	table := in.Intensity
	if table == nil {
		table = DefaultIntensityTable
	}
	classify := Classify
	if f.Scheme == SchemeSMHI {
		classify = ClassifySMHI
	}

	sunrise := make(map[NaiveDate]time.Time, len(f.Sunrise))
	for _, t := range f.Sunrise {
		sunrise[NaiveDateOf(t, in.Calendar)] = t
	}
	sunset := make(map[NaiveDate]time.Time, len(f.Sunset))
	for _, t := range f.Sunset {
		sunset[NaiveDateOf(t, in.Calendar)] = t
	}

	next := current.Clone()
	for d, t := range sunrise {
		next.Sunrise[d] = t
	}
	for d, t := range sunset {
		next.Sunset[d] = t
	}

	var stats IngestStats
	for i, hour := range f.Time {
		day := NaiveDateOf(hour, in.Calendar)
		rise, ok := sunrise[day]
		if !ok {
			stats.Skipped++
			continue
		}
		set, ok := sunset[day]
		if !ok {
			stats.Skipped++
			continue
		}

		mm := f.Precipitation[i]
		next.Weather[HourKeyOf(hour)] = WeatherRecord{
			Time:                     hour.UTC(),
			TemperatureCelsius:       f.Temperature[i],
			Category:                 classify(f.WeatherCode[i], f.WindSpeed[i]),
			PrecipitationMillimeters: mm,
			PrecipitationIntensity:   table.Classify(mm),
			IsDaytime:                hour.After(rise) && hour.Before(set),
		}
		stats.Records++
	}

	return next, stats, nil
}
