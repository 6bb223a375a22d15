package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/observability"
	"github.com/couchcryptid/weather-clock-service/internal/pipeline"
	"github.com/couchcryptid/weather-clock-service/internal/session"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	mu       sync.Mutex
	fetched  []string
	forecast domain.Forecast
	err      error
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) ForecastURL(c domain.Coordinate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://forecast.test/?lat=%v&lon=%v", c.Lat, c.Lon), nil
}

func (m *mockSource) Fetch(_ context.Context, url string, _ domain.Coordinate) (domain.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	return m.forecast, m.err
}

func (m *mockSource) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

type mockGeocoder struct {
	reverse atomic.Int32
	result  domain.GeocodingResult
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	if query == "Atlantis" {
		return domain.GeocodingResult{}, nil
	}
	return m.result, nil
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverse.Add(1)
	return m.result, nil
}

type mockPublisher struct {
	mu      sync.Mutex
	batches [][]domain.WeatherRecord
	err     error
}

func (m *mockPublisher) Publish(_ context.Context, records []domain.WeatherRecord, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, records)
	return m.err
}

// --- helpers ---

var (
	uppsala = domain.Coordinate{Lat: 59.86, Lon: 17.64}
	start   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleForecast() domain.Forecast {
	return domain.Forecast{
		Time:          []time.Time{start, start.Add(time.Hour)},
		Temperature:   []float64{17.2, 16.9},
		Precipitation: []float64{0, 3.1},
		WeatherCode:   []int{2, 63},
		WindSpeed:     []float64{4, 6},
		Sunrise:       []time.Time{time.Date(2024, 6, 1, 1, 40, 0, 0, time.UTC)},
		Sunset:        []time.Time{time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)},
	}
}

type fixture struct {
	session  *session.Session
	pipeline *pipeline.Pipeline
	source   *mockSource
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
}

func newFixture(t *testing.T, geocoder domain.Geocoder, mode domain.WeatherSource, opts ...session.Option) *fixture {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	s := session.New(domain.NewIngestor(time.UTC, nil), discardLogger(), metrics, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	f := &fixture{
		session: s,
		source:  &mockSource{forecast: sampleForecast()},
		clock:   clockwork.NewFakeClockAt(start),
		metrics: metrics,
	}
	f.pipeline = pipeline.New(s, f.source, geocoder, pipeline.Config{
		Mode:     mode,
		Calendar: time.UTC,
		Clock:    f.clock,
	}, discardLogger(), metrics)

	t.Cleanup(func() {
		f.pipeline.Wait()
		cancel()
		<-done
	})
	return f
}

func (f *fixture) ready() bool {
	return f.session.CheckReadiness(context.Background()) == nil
}

// --- tests ---

func TestTick_WithoutLocationDoesNothing(t *testing.T) {
	f := newFixture(t, nil, domain.SourceReal)

	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()

	assert.Empty(t, f.source.calls())
	assert.Equal(t, domain.RefreshState{}, f.session.RefreshState())
}

func TestTick_FetchesAndIngests(t *testing.T) {
	f := newFixture(t, nil, domain.SourceReal)
	f.session.SetLocation(uppsala)

	f.pipeline.Tick(context.Background())
	require.Eventually(t, f.ready, time.Second, 5*time.Millisecond)

	require.Len(t, f.source.calls(), 1)
	records := f.session.Records()
	require.Len(t, records, 2)
	assert.Equal(t, domain.CategoryLightCloud, records[0].Category)
	assert.Equal(t, domain.CategoryRain, records[1].Category)
	assert.True(t, records[1].IsDaytime)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchesDispatched), 0)
}

func TestTick_RefreshPolicy(t *testing.T) {
	f := newFixture(t, nil, domain.SourceReal)
	f.session.SetLocation(uppsala)

	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()

	// Same URL, any time later: throttled.
	f.clock.Advance(10 * time.Second)
	f.pipeline.Tick(context.Background())
	f.clock.Advance(3 * time.Hour)
	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()
	assert.Len(t, f.source.calls(), 1)

	// New URL inside the hour: throttled.
	f.session.Admit("reset", f.clock.Now())
	f.clock.Advance(30 * time.Minute)
	f.session.SetLocation(domain.Coordinate{Lat: 59.8601, Lon: 17.64})
	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()
	assert.Len(t, f.source.calls(), 1)

	// New URL after the hour: fetched.
	f.clock.Advance(31 * time.Minute)
	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()

	want := []string{
		"https://forecast.test/?lat=59.86&lon=17.64",
		"https://forecast.test/?lat=59.8601&lon=17.64",
	}
	if diff := cmp.Diff(want, f.source.calls()); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.FetchesThrottled), 0)
}

func TestTick_InvalidCoordinateAbortsSilently(t *testing.T) {
	f := newFixture(t, nil, domain.SourceReal)
	f.session.SetLocation(domain.Coordinate{Lat: math.NaN(), Lon: 17.64})

	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()

	assert.Empty(t, f.source.calls())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchFailures.WithLabelValues("url")), 0)
	assert.Equal(t, domain.RefreshState{}, f.session.RefreshState(), "nothing dispatched")
}

func TestTick_FetchFailureKeepsStateAndDoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"network", fmt.Errorf("%w: 503", domain.ErrNetwork), "network"},
		{"parse", fmt.Errorf("%w: truncated body", domain.ErrParse), "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, domain.SourceReal)
			f.source.err = tt.err
			f.session.SetLocation(uppsala)

			f.pipeline.Tick(context.Background())
			f.pipeline.Wait()

			assert.False(t, f.ready())
			assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchFailures.WithLabelValues(tt.kind)), 0)
			assert.Equal(t, "https://forecast.test/?lat=59.86&lon=17.64", f.session.RefreshState().LastURL,
				"state is recorded at dispatch")

			f.clock.Advance(time.Minute)
			f.pipeline.Tick(context.Background())
			f.pipeline.Wait()
			assert.Len(t, f.source.calls(), 1)
		})
	}
}

func TestTick_CannedDemo(t *testing.T) {
	f := newFixture(t, nil, domain.SourceDemo)

	f.pipeline.Tick(context.Background())
	require.Eventually(t, f.ready, time.Second, 5*time.Millisecond)

	records := f.session.Records()
	require.Len(t, records, 24)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), records[0].Time)
	assert.Equal(t, "canned:demo:2024-06-01", f.session.RefreshState().LastURL)

	f.clock.Advance(time.Minute)
	f.pipeline.Tick(context.Background())
	assert.Equal(t, start, f.session.RefreshState().LastFetch, "one load per day")
	assert.Empty(t, f.source.calls(), "canned mode never touches the network")
}

func TestTick_LocalityResolvedOncePerLocation(t *testing.T) {
	geo := &mockGeocoder{result: domain.GeocodingResult{
		Locality: "Uppsala", Country: "Sweden", FormattedAddress: "Uppsala, Sweden",
	}}
	f := newFixture(t, geo, domain.SourceReal)
	f.session.SetLocation(uppsala)

	f.pipeline.Tick(context.Background())
	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()

	view := f.session.View()
	assert.Equal(t, domain.Locality{Name: "Uppsala", Country: "Sweden"}, view.Locality)
	assert.Equal(t, domain.Celsius, view.Unit)
	assert.Equal(t, int32(1), geo.reverse.Load())

	f.session.SetLocation(domain.Coordinate{Lat: 59.87, Lon: 17.64})
	f.pipeline.Tick(context.Background())
	f.pipeline.Wait()
	assert.Equal(t, int32(2), geo.reverse.Load())
}

func TestUpdateLocation(t *testing.T) {
	f := newFixture(t, nil, domain.SourceReal)

	err := f.pipeline.UpdateLocation(context.Background(), domain.Coordinate{Lat: 95, Lon: 0})
	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
	_, ok := f.session.Location()
	assert.False(t, ok)

	require.NoError(t, f.pipeline.UpdateLocation(context.Background(), uppsala))
	require.Eventually(t, f.ready, time.Second, 5*time.Millisecond)
	c, ok := f.session.Location()
	require.True(t, ok)
	assert.Equal(t, uppsala, c)
}

func TestResolveInitialLocation(t *testing.T) {
	geo := &mockGeocoder{result: domain.GeocodingResult{
		Lat: 55.70, Lon: 13.19, Locality: "Lund", FormattedAddress: "Lund, Sweden",
	}}

	t.Run("coordinate wins", func(t *testing.T) {
		f := newFixture(t, geo, domain.SourceReal)
		require.NoError(t, f.pipeline.ResolveInitialLocation(context.Background(), &uppsala, "Lund"))
		c, _ := f.session.Location()
		assert.Equal(t, uppsala, c)
	})

	t.Run("forward geocoded", func(t *testing.T) {
		f := newFixture(t, geo, domain.SourceReal)
		require.NoError(t, f.pipeline.ResolveInitialLocation(context.Background(), nil, "Lund"))
		c, _ := f.session.Location()
		assert.Equal(t, domain.Coordinate{Lat: 55.70, Lon: 13.19}, c)
	})

	t.Run("no match", func(t *testing.T) {
		f := newFixture(t, geo, domain.SourceReal)
		require.Error(t, f.pipeline.ResolveInitialLocation(context.Background(), nil, "Atlantis"))
		_, ok := f.session.Location()
		assert.False(t, ok)
	})

	t.Run("nothing configured", func(t *testing.T) {
		f := newFixture(t, nil, domain.SourceReal)
		require.NoError(t, f.pipeline.ResolveInitialLocation(context.Background(), nil, ""))
		_, ok := f.session.Location()
		assert.False(t, ok)
	})
}

func TestRun_TicksOnceAndStops(t *testing.T) {
	f := newFixture(t, nil, domain.SourceReal)
	f.session.SetLocation(uppsala)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.pipeline.Run(ctx) }()

	require.Eventually(t, f.ready, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PipelineRunning), 0)

	cancel()
	require.NoError(t, <-done)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.PipelineRunning), 0)
}

func TestPublishHook(t *testing.T) {
	pub := &mockPublisher{}
	f := newFixture(t, nil, domain.SourceReal, session.WithAppliedHook(pipeline.PublishHook(pub, discardLogger())))
	f.session.SetLocation(uppsala)

	f.pipeline.Tick(context.Background())
	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.batches) == 1
	}, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.batches[0], 2)
}

func TestPublishHook_SkipsEmptyAndSurvivesErrors(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	hook := pipeline.PublishHook(pub, discardLogger())

	hook(context.Background(), session.Applied{Origin: "mock"})
	assert.Empty(t, pub.batches)

	hook(context.Background(), session.Applied{Origin: "mock", Changed: []domain.WeatherRecord{{Time: start}}})
	assert.Len(t, pub.batches, 1)
}
