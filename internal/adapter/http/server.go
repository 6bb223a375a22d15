package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/session"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds PUT request bodies.
const maxBodyBytes = 1 << 10

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// WeatherState is the read side of the session.
type WeatherState interface {
	ReadinessChecker
	View() session.View
}

// LocationUpdater accepts a new device location.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, c domain.Coordinate) error
}

// Server exposes health, readiness, metrics and the weather API.
type Server struct {
	httpServer *http.Server
	state      WeatherState
	locations  LocationUpdater
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 weather routes.
func NewServer(addr string, state WeatherState, locations LocationUpdater, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		state:     state,
		locations: locations,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(state))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/weather", s.handleWeather)
	mux.HandleFunc("PUT /v1/location", s.handleLocation)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleWeather returns the current maps. ?unit=C|F overrides the session unit
// for this response only.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	view := s.state.View()
	if q := r.URL.Query().Get("unit"); q != "" {
		unit, err := domain.ParseTemperatureUnit(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view.Unit = unit
	}
	writeJSON(w, http.StatusOK, newSnapshot(view))
}

type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	c := domain.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
	if err := s.locations.UpdateLocation(r.Context(), c); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidCoordinate) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	s.logger.Info("location updated", "lat", c.Lat, "lon", c.Lon)
	writeJSON(w, http.StatusAccepted, c)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
