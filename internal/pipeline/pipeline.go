// Package pipeline decides when to fetch a forecast and hands the result to the
// session. A tick never blocks on the network: admitted fetches run on their own
// goroutine and reach the session through its queue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/observability"
	"github.com/couchcryptid/weather-clock-service/internal/session"
	"github.com/jonboulle/clockwork"
)

// ForecastSource builds request URLs for a coordinate and fetches them.
type ForecastSource interface {
	Name() string
	ForecastURL(c domain.Coordinate) (string, error)
	Fetch(ctx context.Context, url string, c domain.Coordinate) (domain.Forecast, error)
}

// RecordPublisher forwards changed records downstream.
type RecordPublisher interface {
	Publish(ctx context.Context, records []domain.WeatherRecord, ingestedAt time.Time) error
}

// Config selects canned or network data and the calendar used to date it.
type Config struct {
	Mode      domain.WeatherSource // empty means real
	Calendar  *time.Location       // nil means UTC
	Intensity domain.IntensityTable
	Clock     clockwork.Clock // nil means the real clock
}

// Pipeline runs the refresh tick.
type Pipeline struct {
	session  *session.Session
	source   ForecastSource
	geocoder domain.Geocoder
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics

	inflight sync.WaitGroup

	mu          sync.Mutex
	localityFor *domain.Coordinate
	runCtx      context.Context
}

// New creates a Pipeline. source may be nil in canned mode and geocoder may be
// nil to disable locality labels.
func New(s *session.Session, source ForecastSource, geocoder domain.Geocoder, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.Mode == "" {
		cfg.Mode = domain.SourceReal
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		session:  s,
		source:   source,
		geocoder: geocoder,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Tick runs one refresh decision. It returns once the fetch, if any, has been
// dispatched.
func (p *Pipeline) Tick(ctx context.Context) {
	if p.cfg.Mode != domain.SourceReal {
		p.tickCanned(ctx)
		return
	}

	coord, ok := p.session.Location()
	if !ok {
		p.logger.Debug("no location yet, skipping refresh")
		return
	}
	p.refreshLocality(ctx, coord)

	url, err := p.source.ForecastURL(coord)
	if err != nil {
		p.metrics.FetchFailures.WithLabelValues("url").Inc()
		p.logger.Debug("cannot build forecast url", "location", coord.String(), "error", err)
		return
	}

	if !p.session.Admit(url, p.cfg.Clock.Now()) {
		p.metrics.FetchesThrottled.Inc()
		return
	}
	p.metrics.FetchesDispatched.Inc()
	p.logger.Info("fetching forecast", "source", p.source.Name(), "location", coord.String())

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.fetch(ctx, url, coord)
	}()
}

func (p *Pipeline) fetch(ctx context.Context, url string, coord domain.Coordinate) {
	start := p.cfg.Clock.Now()
	f, err := p.source.Fetch(ctx, url, coord)
	p.metrics.FetchDuration.Observe(p.cfg.Clock.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		kind := "network"
		if errors.Is(err, domain.ErrParse) {
			kind = "parse"
		}
		p.metrics.FetchFailures.WithLabelValues(kind).Inc()
		p.logger.Warn("forecast fetch failed, keeping previous data",
			"source", p.source.Name(),
			"kind", kind,
			"error", err,
		)
		return
	}

	if err := p.session.Enqueue(ctx, session.Update{Origin: p.source.Name(), URL: url, Forecast: f}); err != nil {
		p.logger.Debug("forecast dropped on shutdown", "error", err)
	}
}

// tickCanned loads the canned day once per calendar date.
func (p *Pipeline) tickCanned(ctx context.Context) {
	now := p.cfg.Clock.Now()
	key := fmt.Sprintf("canned:%s:%s", p.cfg.Mode, domain.NaiveDateOf(now, p.cfg.Calendar))
	if !p.session.Admit(key, now) {
		return
	}

	m, err := domain.CannedMaps(p.cfg.Mode, now, p.cfg.Calendar, p.cfg.Intensity)
	if err != nil {
		p.logger.Error("canned weather unavailable", "mode", p.cfg.Mode, "error", err)
		return
	}
	if err := p.session.Enqueue(ctx, session.Update{Origin: string(p.cfg.Mode), URL: key, Canned: &m}); err != nil {
		p.logger.Debug("canned weather dropped on shutdown", "error", err)
	}
}

// refreshLocality reverse geocodes coord once per distinct location.
func (p *Pipeline) refreshLocality(ctx context.Context, coord domain.Coordinate) {
	if p.geocoder == nil {
		return
	}
	p.mu.Lock()
	if p.localityFor != nil && *p.localityFor == coord {
		p.mu.Unlock()
		return
	}
	p.localityFor = &coord
	p.mu.Unlock()

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.session.SetLocality(domain.ResolveLocality(ctx, p.geocoder, coord, p.logger))
	}()
}

// UpdateLocation stores a new location and runs a tick for it. The refresh
// policy still applies, so a move within the hour only updates the locality.
func (p *Pipeline) UpdateLocation(ctx context.Context, c domain.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	p.session.SetLocation(c)
	p.Tick(p.lifetime(ctx))
	return nil
}

// lifetime returns the context passed to Run. Before Run it detaches ctx, since
// a request context ends with its response and the fetch must outlive it.
func (p *Pipeline) lifetime(ctx context.Context) context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runCtx != nil {
		return p.runCtx
	}
	return context.WithoutCancel(ctx)
}

// ResolveInitialLocation sets the configured coordinate, or forward geocodes the
// configured place name. With neither, the pipeline idles until a location
// arrives over HTTP.
func (p *Pipeline) ResolveInitialLocation(ctx context.Context, coord *domain.Coordinate, query string) error {
	switch {
	case coord != nil:
		p.session.SetLocation(*coord)
	case query != "":
		c, err := domain.ResolveCoordinate(ctx, p.geocoder, query)
		if err != nil {
			return err
		}
		p.logger.Info("location resolved", "query", query, "location", c.String())
		p.session.SetLocation(c)
	}
	return nil
}

// Run marks the pipeline running, ticks once, and waits for ctx to end. Ticks
// after the first come from the scheduler.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "mode", p.cfg.Mode)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.mu.Lock()
	p.runCtx = ctx
	p.mu.Unlock()

	p.Tick(ctx)
	<-ctx.Done()
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	p.Wait()
	return nil
}

// Wait blocks until every dispatched fetch and locality lookup has finished.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// PublishHook returns a session hook that publishes changed records. Failures
// are logged; the session state is already updated and is not rolled back.
func PublishHook(pub RecordPublisher, logger *slog.Logger) session.AppliedHook {
	return func(ctx context.Context, a session.Applied) {
		if len(a.Changed) == 0 {
			return
		}
		if err := pub.Publish(ctx, a.Changed, a.At); err != nil {
			logger.Error("publish weather records failed",
				"origin", a.Origin,
				"records", len(a.Changed),
				"error", err,
			)
		}
	}
}
