package domain

import (
	"slices"
	"time"
)

// Observation is one forecasted time slice, already normalized to Celsius and m/s.
type Observation struct {
	Time                     time.Time `json:"time"`
	Condition                string    `json:"condition"`             // provider category, e.g. "Thunderstorm", "Rain", "Clear"
	Description              string    `json:"description,omitempty"` // provider free text, e.g. "heavy intensity rain"
	TemperatureCelsius       float64   `json:"temperature_celsius"`
	WindSpeedMetersPerSecond float64   `json:"wind_speed_mps"`
	PrecipitationMm3h        *float64  `json:"precipitation_mm_3h,omitempty"` // nil when the provider did not report rain
}

const (
	absoluteZeroCelsius = 273.15
	kphPerMps           = 3.6
	mpsPerMph           = 0.44704
)

// KelvinToCelsius converts an absolute temperature to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - absoluteZeroCelsius
}

// FahrenheitToCelsius converts a Fahrenheit temperature to Celsius.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// KphToMetersPerSecond converts km/h to m/s.
func KphToMetersPerSecond(kph float64) float64 {
	return kph / kphPerMps
}

// MphToMetersPerSecond converts miles per hour to m/s.
func MphToMetersPerSecond(mph float64) float64 {
	return mph * mpsPerMph
}

// OrderObservations returns the observations sorted by time with repeated
// timestamps removed. The first observation seen for a timestamp is kept.
// The input slice is not modified.
func OrderObservations(obs []Observation) []Observation {
	if len(obs) == 0 {
		return nil
	}

	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b Observation) int {
		return a.Time.Compare(b.Time)
	})

	return slices.CompactFunc(sorted, func(a, b Observation) bool {
		return a.Time.Equal(b.Time)
	})
}
