package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
)

// AlertTransformer implements Transformer by answering one alert request
// per message.
type AlertTransformer struct {
	service *AlertService
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates an AlertTransformer backed by service.
func NewTransformer(service *AlertService, logger *slog.Logger, metrics *observability.Metrics) *AlertTransformer {
	return &AlertTransformer{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Transform parses the request and returns the serialized report for it.
func (t *AlertTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseAlertRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	t.metrics.AlertRequests.WithLabelValues("kafka").Inc()
	report := t.service.Alerts(ctx, req.Location)
	return domain.NewReportEvent(report)
}
