package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
)

// Source names used when a collaborator is not wired at all.
const (
	unwiredForecastName = "forecast"
	unwiredOfficialName = "official-alerts"
)

// AlertService fetches both alert sources for a location and merges them
// into a ranked report. It is safe for concurrent use.
type AlertService struct {
	forecast   domain.ForecastFetcher
	official   domain.OfficialAlertFetcher
	analyzer   *domain.Analyzer
	normalizer *domain.Normalizer
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewAlertService wires the collaborators. Either fetcher may be nil, in
// which case that source is reported as unconfigured.
func NewAlertService(forecast domain.ForecastFetcher, official domain.OfficialAlertFetcher, logger *slog.Logger, metrics *observability.Metrics) *AlertService {
	return &AlertService{
		forecast:   forecast,
		official:   official,
		analyzer:   domain.NewAnalyzer(""),
		normalizer: domain.NewNormalizer(""),
		logger:     logger,
		metrics:    metrics,
	}
}

// Alerts returns the aggregated report for location. Source failures
// become empty contributions recorded in Report.Sources; Alerts never fails.
func (s *AlertService) Alerts(ctx context.Context, location string) domain.Report {
	start := time.Now()

	var (
		wg       sync.WaitGroup
		obs      []domain.Observation
		raws     []domain.RawOfficialAlert
		obsErr   error
		rawsErr  error
		forecast = s.forecastName()
		official = s.officialName()
	)
	wg.Go(func() { obs, obsErr = s.fetchForecast(ctx, location) })
	wg.Go(func() { raws, rawsErr = s.fetchOfficial(ctx, location) })
	wg.Wait()

	sources := []domain.SourceStatus{
		s.recordSource(location, forecast, len(obs), obsErr),
		s.recordSource(location, official, len(raws), rawsErr),
	}

	candidates := s.analyzer.Analyze(domain.OrderObservations(obs))
	officialAlerts := s.normalize(location, raws)

	alerts, dropped := domain.AggregateWithStats(candidates, officialAlerts)
	s.metrics.DuplicatesDropped.Add(float64(dropped))
	for _, a := range alerts {
		s.metrics.AlertsEmitted.WithLabelValues(a.Certainty, string(a.Severity)).Inc()
	}

	report := domain.NewReport(location, alerts, sources)
	s.metrics.AggregationDuration.Observe(time.Since(start).Seconds())

	if report.AllSourcesFailed() {
		s.logger.Warn("no alert source available", "location", location, "request_id", report.RequestID)
	}
	s.logger.Info("alerts aggregated",
		"location", location,
		"request_id", report.RequestID,
		"detected", len(candidates),
		"official", len(officialAlerts),
		"duplicates", dropped,
		"total", report.Total,
		"critical", report.Critical,
	)
	return report
}

// OfficialAlerts returns only the normalized official alerts for location,
// ranked by severity. It fails with domain.ErrSourceUnavailable when no
// official provider is configured, and with the fetch error otherwise.
func (s *AlertService) OfficialAlerts(ctx context.Context, location string) ([]domain.Alert, error) {
	raws, err := s.fetchOfficial(ctx, location)
	s.recordSource(location, s.officialName(), len(raws), err)
	if err != nil {
		return nil, err
	}
	return domain.Aggregate(nil, s.normalize(location, raws)), nil
}

// Forecast returns the normalized forecast observations for location in
// time order. It fails with domain.ErrSourceUnavailable when no forecast
// provider is configured, and with the fetch error otherwise.
func (s *AlertService) Forecast(ctx context.Context, location string) ([]domain.Observation, error) {
	obs, err := s.fetchForecast(ctx, location)
	s.recordSource(location, s.forecastName(), len(obs), err)
	if err != nil {
		return nil, err
	}
	ordered := domain.OrderObservations(obs)
	if ordered == nil {
		ordered = []domain.Observation{}
	}
	return ordered, nil
}

// ForecastSource returns the name of the forecast provider.
func (s *AlertService) ForecastSource() string {
	return s.forecastName()
}

// OfficialSource returns the name stamped on official alerts.
func (s *AlertService) OfficialSource() string {
	return s.normalizer.Source()
}

// CheckReadiness returns nil when at least one alert source is wired.
func (s *AlertService) CheckReadiness(_ context.Context) error {
	if s.forecast == nil && s.official == nil {
		return errors.New("no alert source configured")
	}
	return nil
}

func (s *AlertService) fetchForecast(ctx context.Context, location string) ([]domain.Observation, error) {
	if s.forecast == nil {
		return nil, fmt.Errorf("%s: %w", unwiredForecastName, domain.ErrSourceUnavailable)
	}
	return s.forecast.FetchForecast(ctx, location)
}

func (s *AlertService) fetchOfficial(ctx context.Context, location string) ([]domain.RawOfficialAlert, error) {
	if s.official == nil {
		return nil, fmt.Errorf("%s: %w", unwiredOfficialName, domain.ErrSourceUnavailable)
	}
	return s.official.FetchOfficialAlerts(ctx, location)
}

func (s *AlertService) normalize(location string, raws []domain.RawOfficialAlert) []domain.Alert {
	alerts, err := s.normalizer.Normalize(raws)
	for _, skipped := range domain.SkippedRecords(err) {
		s.metrics.MalformedRecords.Inc()
		s.logger.Warn("official alert skipped",
			"location", location,
			"index", skipped.Index,
			"event", skipped.Event,
			"reason", skipped.Reason,
		)
	}
	return alerts
}

func (s *AlertService) recordSource(location, name string, count int, err error) domain.SourceStatus {
	status := domain.SourceStatusFromError(name, count, err)
	s.metrics.SourceFetches.WithLabelValues(name, string(status.State)).Inc()

	switch status.State {
	case domain.SourceUnavailable:
		s.logger.Warn("alert source failed", "source", name, "location", location, "error", err)
	case domain.SourceUnconfigured:
		s.logger.Debug("alert source not configured", "source", name)
	}
	return status
}

func (s *AlertService) forecastName() string {
	if s.forecast == nil {
		return unwiredForecastName
	}
	return s.forecast.Name()
}

func (s *AlertService) officialName() string {
	if s.official == nil {
		return unwiredOfficialName
	}
	return s.official.Name()
}
