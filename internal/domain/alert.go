package domain

import (
	"strings"
	"time"
)

// Severity is the canonical three-level hazard scale.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Rank orders severities for sorting: High=3, Medium=2, Low=1, anything else 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the three canonical values.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ParseOfficialSeverity maps a provider severity word onto the canonical
// scale. The mapping is total: unrecognized or empty input yields Medium.
func ParseOfficialSeverity(raw string) Severity {
	switch strings.TrimSpace(raw) {
	case "Extreme", "Severe":
		return SeverityHigh
	case "Moderate":
		return SeverityMedium
	case "Minor":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Certainty records where an alert came from.
const (
	CertaintyDetected = "Detected"
	CertaintyOfficial = "Official"
)

// Alert is one hazard notice, shared by heuristic detection and official feeds.
type Alert struct {
	Type        string     `json:"type"`
	Severity    Severity   `json:"severity"`
	Time        time.Time  `json:"time"`
	Description string     `json:"description"`
	Advice      string     `json:"advice"`
	Certainty   string     `json:"certainty"`
	Source      string     `json:"source"`
	Area        string     `json:"area,omitempty"`
	Expires     *time.Time `json:"expires,omitempty"`
}

// AlertKey identifies equivalent alerts across sources.
type AlertKey struct {
	Type     string
	Time     time.Time // normalized to UTC with the monotonic reading stripped, so equal instants compare ==
	Severity Severity
}

// Key returns the dedup key for the alert.
func (a Alert) Key() AlertKey {
	return AlertKey{Type: a.Type, Time: a.Time.UTC(), Severity: a.Severity}
}

// IsCritical reports whether the alert is at the top of the severity scale.
func (a Alert) IsCritical() bool {
	return a.Severity == SeverityHigh
}
