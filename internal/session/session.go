// Package session owns the normalized weather state of one running instance.
//
// A Session holds the weather, sunrise and sunset maps together with the refresh
// state, the current location and its locality label. Readers may call any
// getter from any goroutine. The maps are only ever replaced by the goroutine
// running [Session.Run], which applies queued updates one at a time, so two
// fetches completing together are serialized rather than interleaved.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/observability"
)

// Update is one unit of work for the session consumer.
type Update struct {
	// Origin names where the data came from, e.g. "openmeteo" or "demo".
	Origin string
	// URL is the request that produced Forecast, for logging.
	URL string
	// Forecast is ingested when Canned is nil.
	Forecast domain.Forecast
	// Canned maps are merged as they are, bypassing ingestion.
	Canned *domain.Maps
}

// Applied describes an update after it replaced the maps.
type Applied struct {
	Origin  string
	Stats   domain.IngestStats
	Changed []domain.WeatherRecord // new or modified records, by hour
	At      time.Time
}

// AppliedHook is called by the consumer after each successful update.
type AppliedHook func(ctx context.Context, a Applied)

// View is a consistent read of the session for the renderer.
type View struct {
	Maps      domain.Maps
	Locality  domain.Locality
	Unit      domain.TemperatureUnit
	Location  *domain.Coordinate
	UpdatedAt time.Time
}

// Session is the single owner of the weather maps.
type Session struct {
	ingestor *domain.Ingestor
	policy   domain.RefreshPolicy
	logger   *slog.Logger
	metrics  *observability.Metrics
	queue    chan Update
	hooks    []AppliedHook
	now      func() time.Time

	mu        sync.RWMutex
	maps      domain.Maps
	refresh   domain.RefreshState
	location  *domain.Coordinate
	locality  domain.Locality
	unit      domain.TemperatureUnit
	updatedAt time.Time

	ready atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithQueueSize sets how many updates may wait for the consumer.
func WithQueueSize(n int) Option {
	return func(s *Session) { s.queue = make(chan Update, n) }
}

// WithRefreshPolicy replaces the default one-hour policy.
func WithRefreshPolicy(p domain.RefreshPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithAppliedHook registers a hook run after every applied update.
func WithAppliedHook(h AppliedHook) Option {
	return func(s *Session) { s.hooks = append(s.hooks, h) }
}

// WithUnit sets the initial temperature unit. Empty means not chosen yet.
func WithUnit(u domain.TemperatureUnit) Option {
	return func(s *Session) { s.unit = u }
}

// WithNow sets the time source used to stamp updates.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a Session with empty maps.
func New(ingestor *domain.Ingestor, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Session {
	s := &Session{
		ingestor: ingestor,
		logger:   logger,
		metrics:  metrics,
		queue:    make(chan Update, 8),
		now:      time.Now,
		maps:     domain.NewMaps(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue hands an update to the consumer. It blocks while the queue is full.
func (s *Session) Enqueue(ctx context.Context, u Update) error {
	select {
	case s.queue <- u:
		s.metrics.IngestQueueDepth.Set(float64(len(s.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued updates until ctx is cancelled. Exactly one goroutine may
// call Run.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session consumer started", "queue_size", cap(s.queue))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session consumer stopping", "reason", ctx.Err())
			return nil
		case u := <-s.queue:
			s.metrics.IngestQueueDepth.Set(float64(len(s.queue)))
			s.apply(ctx, u)
		}
	}
}

// apply runs on the consumer goroutine only.
func (s *Session) apply(ctx context.Context, u Update) {
	s.mu.RLock()
	current := s.maps
	s.mu.RUnlock()

	var (
		next  domain.Maps
		stats domain.IngestStats
		err   error
	)
	if u.Canned != nil {
		next = mergeCanned(current, *u.Canned)
		stats.Records = len(u.Canned.Weather)
	} else {
		next, stats, err = s.ingestor.Ingest(u.Forecast, current)
	}
	if err != nil {
		s.logger.Warn("ingestion failed, keeping previous data",
			"origin", u.Origin,
			"url", u.URL,
			"error", err,
		)
		s.metrics.FetchFailures.WithLabelValues("parse").Inc()
		return
	}

	if stats.Skipped > 0 {
		s.logger.Debug("hours skipped without sunrise or sunset",
			"origin", u.Origin,
			"skipped", stats.Skipped,
			"error", domain.ErrMissingClassificationData,
		)
	}

	at := s.now()
	s.mu.Lock()
	s.maps = next
	s.updatedAt = at
	s.mu.Unlock()
	s.ready.Store(true)

	s.metrics.Ingestions.Inc()
	s.metrics.HoursIngested.Add(float64(stats.Records))
	s.metrics.HoursSkipped.Add(float64(stats.Skipped))
	s.metrics.RecordsStored.Set(float64(len(next.Weather)))
	s.metrics.LastIngestTimestamp.Set(float64(at.Unix()))

	s.logger.Info("weather data updated",
		"origin", u.Origin,
		"records", stats.Records,
		"skipped", stats.Skipped,
		"stored", len(next.Weather),
	)

	if len(s.hooks) == 0 {
		return
	}
	a := Applied{Origin: u.Origin, Stats: stats, Changed: changedRecords(current, next), At: at}
	for _, h := range s.hooks {
		h(ctx, a)
	}
}

// mergeCanned overlays canned maps on current, last write wins per key.
func mergeCanned(current, canned domain.Maps) domain.Maps {
	next := current.Clone()
	for k, v := range canned.Weather {
		next.Weather[k] = v
	}
	for d, t := range canned.Sunrise {
		next.Sunrise[d] = t
	}
	for d, t := range canned.Sunset {
		next.Sunset[d] = t
	}
	return next
}

func changedRecords(prev, next domain.Maps) []domain.WeatherRecord {
	var out []domain.WeatherRecord
	for _, k := range next.Hours() {
		rec := next.Weather[k]
		if old, ok := prev.Weather[k]; ok && sameRecord(old, rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sameRecord(a, b domain.WeatherRecord) bool {
	return a.Time.Equal(b.Time) &&
		a.TemperatureCelsius == b.TemperatureCelsius &&
		a.Category == b.Category &&
		a.PrecipitationMillimeters == b.PrecipitationMillimeters &&
		a.PrecipitationIntensity == b.PrecipitationIntensity &&
		a.IsDaytime == b.IsDaytime
}

// Admit consults the refresh policy for candidateURL and records the dispatch
// when it is accepted.
func (s *Session) Admit(candidateURL string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Admit(&s.refresh, candidateURL, now)
}

// RefreshState returns a copy of the refresh bookkeeping.
func (s *Session) RefreshState() domain.RefreshState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetLocation replaces the current location.
func (s *Session) SetLocation(c domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = &c
}

// Location returns the current location, if any.
func (s *Session) Location() (domain.Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.location == nil {
		return domain.Coordinate{}, false
	}
	return *s.location, true
}

// SetLocality stores the place label and, when no unit has been chosen yet,
// picks the customary unit for its country.
func (s *Session) SetLocality(l domain.Locality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locality = l
	if s.unit == "" && l.Country != "" {
		s.unit = domain.DefaultUnitForCountry(l.Country)
	}
}

// SetUnit records an explicit unit choice.
func (s *Session) SetUnit(u domain.TemperatureUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit = u
}

// View returns the current state. The maps in the result must not be modified.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		Maps:      s.maps,
		Locality:  s.locality,
		Unit:      s.unit,
		UpdatedAt: s.updatedAt,
	}
	if s.location != nil {
		c := *s.location
		v.Location = &c
	}
	if v.Unit == "" {
		v.Unit = domain.Celsius
	}
	return v
}

// Records returns the stored records in hour order.
func (s *Session) Records() []domain.WeatherRecord {
	m := s.View().Maps
	out := make([]domain.WeatherRecord, 0, len(m.Weather))
	for _, k := range m.Hours() {
		out = append(out, m.Weather[k])
	}
	return out
}

// CheckReadiness returns nil once at least one update has been applied.
func (s *Session) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no weather data ingested yet")
	}
	return nil
}
