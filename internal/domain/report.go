package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SourceState describes whether a collaborator contributed to a report.
type SourceState string

const (
	SourceOK           SourceState = "ok"
	SourceUnavailable  SourceState = "unavailable"
	SourceUnconfigured SourceState = "unconfigured"
)

// SourceStatus is the outcome of one upstream fetch.
type SourceStatus struct {
	Name  string      `json:"name"`
	State SourceState `json:"state"`
	Count int         `json:"count"` // observations or raw records received
	Error string      `json:"error,omitempty"`
}

// SourceStatusFromError classifies a fetch result. A nil error is ok, an
// error wrapping ErrSourceUnavailable is unconfigured, anything else is
// unavailable.
func SourceStatusFromError(name string, count int, err error) SourceStatus {
	switch {
	case err == nil:
		return SourceStatus{Name: name, State: SourceOK, Count: count}
	case errors.Is(err, ErrSourceUnavailable):
		return SourceStatus{Name: name, State: SourceUnconfigured, Error: err.Error()}
	default:
		return SourceStatus{Name: name, State: SourceUnavailable, Error: err.Error()}
	}
}

// Report is the aggregated alert list for one location.
type Report struct {
	RequestID   string         `json:"request_id"`
	Location    string         `json:"location"`
	Alerts      []Alert        `json:"alerts"`
	Total       int            `json:"total"`
	Critical    int            `json:"critical"`
	Sources     []SourceStatus `json:"sources"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// NewReport assembles a Report from an already aggregated alert list.
func NewReport(location string, alerts []Alert, sources []SourceStatus) Report {
	if alerts == nil {
		alerts = []Alert{}
	}
	return Report{
		RequestID:   uuid.NewString(),
		Location:    location,
		Alerts:      alerts,
		Total:       len(alerts),
		Critical:    CountCritical(alerts),
		Sources:     sources,
		GeneratedAt: clock.Now().UTC(),
	}
}

// AllSourcesFailed reports whether no collaborator contributed. An empty
// alert list then means "unknown" rather than "no hazards".
func (r Report) AllSourcesFailed() bool {
	if len(r.Sources) == 0 {
		return true
	}
	for _, s := range r.Sources {
		if s.State == SourceOK {
			return false
		}
	}
	return true
}
