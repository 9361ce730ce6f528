package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStatusFromError(t *testing.T) {
	ok := SourceStatusFromError("openweathermap", 40, nil)
	assert.Equal(t, SourceOK, ok.State)
	assert.Equal(t, 40, ok.Count)
	assert.Empty(t, ok.Error)

	unconfigured := SourceStatusFromError("weatherapi", 0, fmt.Errorf("weatherapi: %w", ErrSourceUnavailable))
	assert.Equal(t, SourceUnconfigured, unconfigured.State)
	assert.Contains(t, unconfigured.Error, "source unavailable")

	failed := SourceStatusFromError("weatherapi", 0, errors.New("status 503"))
	assert.Equal(t, SourceUnavailable, failed.State)
	assert.Equal(t, "status 503", failed.Error)
}

func TestNewReport(t *testing.T) {
	fixed := time.Date(2024, 7, 14, 15, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	alerts := []Alert{
		{Type: TypeThunderstorm, Severity: SeverityHigh},
		{Type: TypeHeatWave, Severity: SeverityMedium},
	}
	sources := []SourceStatus{{Name: "openweathermap", State: SourceOK, Count: 40}}

	r := NewReport("Austin", alerts, sources)

	_, err := uuid.Parse(r.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "Austin", r.Location)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, r.Critical)
	assert.Equal(t, fixed, r.GeneratedAt)
	assert.False(t, r.AllSourcesFailed())
}

func TestNewReport_NilAlertsEncodeAsEmptyArray(t *testing.T) {
	r := NewReport("Nowhere", nil, nil)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alerts":[]`)
	assert.Zero(t, r.Total)
}

func TestReport_AllSourcesFailed(t *testing.T) {
	tests := []struct {
		name     string
		sources  []SourceStatus
		expected bool
	}{
		{"no sources", nil, true},
		{"all failed", []SourceStatus{{State: SourceUnavailable}, {State: SourceUnconfigured}}, true},
		{"one ok", []SourceStatus{{State: SourceUnavailable}, {State: SourceOK}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Report{Sources: tt.sources}.AllSourcesFailed())
		})
	}
}
