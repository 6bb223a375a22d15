package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // CALENDAR_TZ must resolve in minimal images

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Provider names accepted in WEATHER_PROVIDER.
const (
	ProviderOpenMeteo = "openmeteo"
	ProviderSMHI      = "smhi"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Forecast source.
	WeatherSource    domain.WeatherSource
	WeatherProvider  string
	OpenMeteoBaseURL string
	SMHIBaseURL      string
	FetchTimeout     time.Duration
	FetchRetries     int

	// Location. Coordinates win over LocationQuery when both are set.
	Location      *domain.Coordinate
	LocationQuery string

	// Refresh and normalization.
	RefreshTick     time.Duration
	RefreshInterval time.Duration
	Calendar        *time.Location
	Intensity       domain.IntensityTable
	TemperatureUnit domain.TemperatureUnit
	IngestQueueSize int

	// Kafka publishing is off when KAFKA_BROKERS is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// KafkaEnabled reports whether ingested records are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where
// unset. Variables from ENV_FILE (default .env) are loaded first without
// overriding the real environment. All validation problems are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(envOrDefault("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var errs *multierror.Error
	collect := func(err error) {
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	cfg := &Config{
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		WeatherProvider:  envOrDefault("WEATHER_PROVIDER", ProviderOpenMeteo),
		OpenMeteoBaseURL: envOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		SMHIBaseURL:      envOrDefault("SMHI_BASE_URL", "https://opendata-download-metfcst.smhi.se/api/category/pmp3g/version/2"),
		LocationQuery:    os.Getenv("LOCATION"),
		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       envOrDefault("KAFKA_TOPIC", "weather-hourly"),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
	}

	var err error
	cfg.ShutdownTimeout, err = parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	collect(err)
	cfg.FetchTimeout, err = parsePositiveDuration("FETCH_TIMEOUT", "15s")
	collect(err)
	cfg.RefreshTick, err = parsePositiveDuration("REFRESH_TICK", "10s")
	collect(err)
	cfg.RefreshInterval, err = parsePositiveDuration("REFRESH_INTERVAL", "1h")
	collect(err)
	cfg.MapboxTimeout, err = parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	collect(err)

	cfg.FetchRetries, err = parseIntInRange("FETCH_RETRIES", 2, 0, 10)
	collect(err)
	cfg.IngestQueueSize, err = parseIntInRange("INGEST_QUEUE_SIZE", 8, 1, 1024)
	collect(err)
	cfg.MapboxCacheSize = parseMapboxCacheSize()

	cfg.WeatherSource, err = domain.ParseWeatherSource(envOrDefault("WEATHER_SOURCE", string(domain.SourceReal)))
	if err != nil {
		collect(fmt.Errorf("invalid WEATHER_SOURCE: %w", err))
	}
	if cfg.WeatherProvider != ProviderOpenMeteo && cfg.WeatherProvider != ProviderSMHI {
		collect(fmt.Errorf("invalid WEATHER_PROVIDER %q: want %s or %s", cfg.WeatherProvider, ProviderOpenMeteo, ProviderSMHI))
	}

	cfg.Calendar, err = time.LoadLocation(envOrDefault("CALENDAR_TZ", "UTC"))
	if err != nil {
		collect(fmt.Errorf("invalid CALENDAR_TZ: %w", err))
	}

	cfg.Intensity = domain.DefaultIntensityTable
	if s := os.Getenv("INTENSITY_THRESHOLDS"); s != "" {
		cfg.Intensity, err = domain.ParseIntensityTable(s)
		if err != nil {
			collect(fmt.Errorf("invalid INTENSITY_THRESHOLDS: %w", err))
		}
	}

	cfg.TemperatureUnit, err = domain.ParseTemperatureUnit(os.Getenv("TEMPERATURE_UNIT"))
	if err != nil {
		collect(fmt.Errorf("invalid TEMPERATURE_UNIT: %w", err))
	}

	cfg.Location, err = parseCoordinate()
	collect(err)

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		collect(errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set"))
	}
	if cfg.LocationQuery != "" && cfg.Location == nil && !cfg.MapboxEnabled {
		collect(errors.New("LOCATION requires MAPBOX_TOKEN for forward geocoding"))
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		collect(errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

// parseCoordinate reads LATITUDE and LONGITUDE. Both unset means no fixed location.
func parseCoordinate() (*domain.Coordinate, error) {
	latStr, lonStr := os.Getenv("LATITUDE"), os.Getenv("LONGITUDE")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		return nil, errors.New("invalid LATITUDE/LONGITUDE: both must be set to decimal degrees")
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid LATITUDE/LONGITUDE: %w", err)
	}
	return &c, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
