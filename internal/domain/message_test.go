package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlertRequest(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawEvent
		expected string
	}{
		{"json object", RawEvent{Value: []byte(`{"location":"Austin"}`)}, "Austin"},
		{"json object trims", RawEvent{Value: []byte(`{"location":"  New York "}`)}, "New York"},
		{"json string", RawEvent{Value: []byte(`"London"`)}, "London"},
		{"bare value", RawEvent{Value: []byte("Paris\n")}, "Paris"},
		{"falls back to key", RawEvent{Key: []byte("Tokyo")}, "Tokyo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseAlertRequest(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Location)
		})
	}
}

func TestParseAlertRequest_Errors(t *testing.T) {
	_, err := ParseAlertRequest(RawEvent{Value: []byte("{invalid json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse alert request")

	_, err = ParseAlertRequest(RawEvent{Value: []byte(`{"location":"   "}`)})
	require.ErrorIs(t, err, ErrEmptyLocation)

	_, err = ParseAlertRequest(RawEvent{})
	require.ErrorIs(t, err, ErrEmptyLocation)
}

func TestNewReportEvent(t *testing.T) {
	generated := time.Date(2024, 7, 14, 15, 30, 0, 0, time.UTC)
	r := Report{
		RequestID:   "req-1",
		Location:    "Austin",
		Alerts:      []Alert{{Type: TypeHeatWave, Severity: SeverityMedium, Time: testPeriod}},
		Total:       1,
		GeneratedAt: generated,
	}

	out, err := NewReportEvent(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("Austin"), out.Key)
	assert.Equal(t, "Austin", out.Headers[HeaderLocation])
	assert.Equal(t, "1", out.Headers[HeaderAlertCount])
	assert.Equal(t, "Medium", out.Headers[HeaderMaxSeverity])
	assert.Equal(t, "2024-07-14T15:30:00Z", out.Headers[HeaderGeneratedAt])

	var decoded Report
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, "req-1", decoded.RequestID)
	require.Len(t, decoded.Alerts, 1)
	assert.Equal(t, TypeHeatWave, decoded.Alerts[0].Type)
}

func TestNewReportEvent_NoAlerts(t *testing.T) {
	out, err := NewReportEvent(Report{Location: "Calm", Alerts: []Alert{}})
	require.NoError(t, err)
	assert.Equal(t, "0", out.Headers[HeaderAlertCount])
	assert.Empty(t, out.Headers[HeaderMaxSeverity])
}
