package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header names attached to published reports.
const (
	HeaderLocation    = "location"
	HeaderAlertCount  = "alert_count"
	HeaderMaxSeverity = "max_severity"
	HeaderGeneratedAt = "generated_at"
)

// ErrEmptyLocation is returned when an alert request names no location.
var ErrEmptyLocation = errors.New("location is required")

// RawEvent represents an unprocessed message from the request topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the report topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// AlertRequest asks for the aggregated alerts of one location.
type AlertRequest struct {
	Location string `json:"location"`
}

// ParseAlertRequest reads a request from a message. The value may be a JSON
// object {"location": "..."}, a JSON string, or a bare location. An empty
// value falls back to the message key.
func ParseAlertRequest(raw RawEvent) (AlertRequest, error) {
	value := bytes.TrimSpace(raw.Value)

	var req AlertRequest
	switch {
	case len(value) == 0:
		req.Location = string(raw.Key)
	case value[0] == '{':
		if err := json.Unmarshal(value, &req); err != nil {
			return AlertRequest{}, fmt.Errorf("parse alert request: %w", err)
		}
	case value[0] == '"':
		if err := json.Unmarshal(value, &req.Location); err != nil {
			return AlertRequest{}, fmt.Errorf("parse alert request: %w", err)
		}
	default:
		req.Location = string(value)
	}

	req.Location = strings.TrimSpace(req.Location)
	if req.Location == "" {
		return AlertRequest{}, ErrEmptyLocation
	}
	return req, nil
}

// NewReportEvent serializes a report for publication, keyed by location.
func NewReportEvent(r Report) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.Location),
		Value: data,
		Headers: map[string]string{
			HeaderLocation:    r.Location,
			HeaderAlertCount:  strconv.Itoa(r.Total),
			HeaderMaxSeverity: string(MaxSeverity(r.Alerts)),
			HeaderGeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
