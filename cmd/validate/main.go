// Command validate parses a saved forecast response, runs it through ingestion
// and checks the normalized records: every hour is aligned and classified, the
// day flag agrees with the sun times, and skipped hours are exactly those
// without sun times for their date.
//
// Usage:
//
//	go run ./cmd/validate -in data/mock/openmeteo_240601.json
//	go run ./cmd/validate -in smhi.json -provider smhi -lat 59.86 -lon 17.64
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/adapter/smhi"
	"github.com/couchcryptid/weather-clock-service/internal/config"
	"github.com/couchcryptid/weather-clock-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	path      string
	provider  string
	coord     domain.Coordinate
	calendar  *time.Location
	intensity domain.IntensityTable
}

func main() {
	in := flag.String("in", "", "forecast response JSON file")
	provider := flag.String("provider", config.ProviderOpenMeteo, "response format: openmeteo or smhi")
	lat := flag.Float64("lat", 0, "latitude, needed for smhi sun times")
	lon := flag.Float64("lon", 0, "longitude, needed for smhi sun times")
	tz := flag.String("calendar", "UTC", "IANA zone used to date hours")
	thresholds := flag.String("intensity", "", "light,moderate,heavy upper bounds in mm")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(1)
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: calendar: %v\n", err)
		os.Exit(1)
	}
	opts := options{path: *in, provider: *provider, coord: domain.Coordinate{Lat: *lat, Lon: *lon}, calendar: loc}
	if *thresholds != "" {
		if opts.intensity, err = domain.ParseIntensityTable(*thresholds); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: intensity: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(run(os.Stdout, opts))
}

func run(w io.Writer, opts options) int {
	fmt.Fprintln(w, "=== Forecast Ingestion Validation ===")
	fmt.Fprintln(w)

	body, err := os.ReadFile(opts.path)
	if err != nil {
		fmt.Fprintf(w, "FATAL: read %s: %v\n", opts.path, err)
		return 1
	}

	var f domain.Forecast
	switch opts.provider {
	case config.ProviderOpenMeteo:
		f, err = domain.ParseOpenMeteo(body)
	case config.ProviderSMHI:
		f, err = smhi.Parse(body, opts.coord)
	default:
		err = fmt.Errorf("unknown provider %q", opts.provider)
	}
	if err != nil {
		fmt.Fprintf(w, "FATAL: parse: %v\n", err)
		return 1
	}

	ingestor := domain.NewIngestor(opts.calendar, opts.intensity)
	maps, stats, err := ingestor.Ingest(f, domain.NewMaps())
	if err != nil {
		fmt.Fprintf(w, "FATAL: ingest: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCoverage(f, maps, stats, opts.calendar),
		validateRecords(maps),
		validateDaylight(maps, opts.calendar),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	printSummary(w, maps, stats)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// validateCoverage checks that every input hour was either stored or skipped
// for lack of sun times, and nothing else.
func validateCoverage(f domain.Forecast, m domain.Maps, stats domain.IngestStats, cal *time.Location) *phase {
	p := &phase{name: "Coverage"}
	if stats.Records+stats.Skipped != len(f.Time) {
		p.errorf("%d stored + %d skipped != %d input hours", stats.Records, stats.Skipped, len(f.Time))
	}
	for _, t := range f.Time {
		d := domain.NaiveDateOf(t, cal)
		_, hasRise := m.Sunrise[d]
		_, hasSet := m.Sunset[d]
		_, stored := m.Weather[domain.HourKeyOf(t)]
		switch {
		case hasRise && hasSet && !stored:
			p.errorf("%s: has sun times but was not stored", t.Format(time.RFC3339))
		case !(hasRise && hasSet) && stored:
			p.errorf("%s: stored without sun times for %s", t.Format(time.RFC3339), d)
		}
	}
	return p
}

func validateRecords(m domain.Maps) *phase {
	p := &phase{name: "Record fields"}
	known := map[domain.Category]bool{
		domain.CategoryClear: true, domain.CategoryMainlyClear: true, domain.CategoryLightCloud: true,
		domain.CategoryCloud: true, domain.CategoryFog: true, domain.CategoryRain: true,
		domain.CategorySnow: true, domain.CategoryLightning: true, domain.CategoryWind: true,
		domain.CategoryUnknown: true,
	}
	for _, k := range m.Hours() {
		rec := m.Weather[k]
		ts := rec.Time.Format(time.RFC3339)
		if !rec.Time.Equal(k.Time()) {
			p.errorf("%s: stored under key %d", ts, k)
		}
		if !rec.Time.Truncate(time.Hour).Equal(rec.Time) {
			p.errorf("%s: not hour aligned", ts)
		}
		if !known[rec.Category] {
			p.errorf("%s: category %q outside the closed set", ts, rec.Category)
		}
		if rec.PrecipitationMillimeters <= 0 && rec.PrecipitationIntensity != domain.IntensityNone {
			p.errorf("%s: %v mm but intensity %s", ts, rec.PrecipitationMillimeters, rec.PrecipitationIntensity)
		}
	}
	return p
}

func validateDaylight(m domain.Maps, cal *time.Location) *phase {
	p := &phase{name: "Day and night"}
	for _, k := range m.Hours() {
		rec := m.Weather[k]
		d := domain.NaiveDateOf(rec.Time, cal)
		rise, set := m.Sunrise[d], m.Sunset[d]
		want := rec.Time.After(rise) && rec.Time.Before(set)
		if rec.IsDaytime != want {
			p.errorf("%s: is_daytime=%v, sunrise %s, sunset %s",
				rec.Time.Format(time.RFC3339), rec.IsDaytime, rise.Format(time.Kitchen), set.Format(time.Kitchen))
		}
	}
	return p
}

func printSummary(w io.Writer, m domain.Maps, stats domain.IngestStats) {
	fmt.Fprintf(w, "Hours: %d stored, %d skipped, %d days with sun times\n", stats.Records, stats.Skipped, len(m.Sunrise))

	hours := m.Hours()
	if len(hours) > 0 {
		fmt.Fprintf(w, "Range: %s .. %s\n",
			hours[0].Time().Format(time.RFC3339), hours[len(hours)-1].Time().Format(time.RFC3339))
	}

	categories := map[string]int{}
	intensities := map[string]int{}
	day := 0
	for _, rec := range m.Weather {
		categories[string(rec.Category)]++
		intensities[rec.PrecipitationIntensity.String()]++
		if rec.IsDaytime {
			day++
		}
	}
	fmt.Fprintf(w, "Daytime: %d, night: %d\n", day, len(m.Weather)-day)
	printCounts(w, "Categories", categories)
	printCounts(w, "Intensity", intensities)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-12s %d\n", k, counts[k])
	}
}
