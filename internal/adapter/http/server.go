package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AlertProvider answers alert and forecast queries for a location.
type AlertProvider interface {
	Alerts(ctx context.Context, location string) domain.Report
	OfficialAlerts(ctx context.Context, location string) ([]domain.Alert, error)
	OfficialSource() string
	Forecast(ctx context.Context, location string) ([]domain.Observation, error)
	ForecastSource() string
}

// Server exposes the alert API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	alerts     AlertProvider
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /api alert routes.
func NewServer(addr string, alerts AlertProvider, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second, // covers two provider round trips
			IdleTimeout:  60 * time.Second,
		},
		alerts:  alerts,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/alerts/{location}", s.handleAlerts)
	mux.HandleFunc("GET /api/official-alerts/{location}", s.handleOfficialAlerts)
	mux.HandleFunc("GET /api/forecast/{location}", s.handleForecast)

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

type alertsResponse struct {
	Success bool `json:"success"`
	domain.Report
}

type officialAlertsResponse struct {
	Success bool           `json:"success"`
	Alerts  []domain.Alert `json:"alerts"`
	Source  string         `json:"source"`
	Total   int            `json:"total"`
}

type forecastResponse struct {
	Success      bool                 `json:"success"`
	Location     string               `json:"location"`
	Source       string               `json:"source"`
	Observations []domain.Observation `json:"observations"`
	Total        int                  `json:"total"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	location, ok := locationParam(w, r)
	if !ok {
		return
	}
	s.metrics.AlertRequests.WithLabelValues("http").Inc()

	report := s.alerts.Alerts(r.Context(), location)
	writeJSON(w, http.StatusOK, alertsResponse{Success: true, Report: report})
}

func (s *Server) handleOfficialAlerts(w http.ResponseWriter, r *http.Request) {
	location, ok := locationParam(w, r)
	if !ok {
		return
	}
	s.metrics.AlertRequests.WithLabelValues("http").Inc()

	alerts, err := s.alerts.OfficialAlerts(r.Context(), location)
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "official alert provider is not configured"})
		return
	case err != nil:
		s.logger.Error("official alerts fetch failed", "location", location, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch official alerts"})
		return
	}

	writeJSON(w, http.StatusOK, officialAlertsResponse{
		Success: true,
		Alerts:  alerts,
		Source:  s.alerts.OfficialSource(),
		Total:   len(alerts),
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	location, ok := locationParam(w, r)
	if !ok {
		return
	}

	obs, err := s.alerts.Forecast(r.Context(), location)
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "forecast provider is not configured"})
		return
	case err != nil:
		s.logger.Error("forecast fetch failed", "location", location, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch forecast data"})
		return
	}

	writeJSON(w, http.StatusOK, forecastResponse{
		Success:      true,
		Location:     location,
		Source:       s.alerts.ForecastSource(),
		Observations: obs,
		Total:        len(obs),
	})
}

func locationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	location := strings.TrimSpace(r.PathValue("location"))
	if location == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrEmptyLocation.Error()})
		return "", false
	}
	return location, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
