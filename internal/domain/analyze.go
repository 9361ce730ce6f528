package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Alert types produced by the heuristic rules.
const (
	TypeThunderstorm = "Thunderstorm"
	TypeHighWinds    = "High Winds"
	TypeHeatWave     = "Heat Wave"
	TypeExtremeCold  = "Extreme Cold"
	TypeHeavyRain    = "Heavy Rain"
)

const (
	conditionThunderstorm = "Thunderstorm"
	conditionRain         = "Rain"

	windAlertMps    = 10.0
	windSevereMps   = 15.0
	heatAlertC      = 35.0
	coldAlertC      = -10.0
	heavyRainMm3h   = 10.0
	defaultAnalyzer = "OpenWeatherMap Analysis"
)

const (
	adviceThunderstorm = "Stay indoors, avoid using electrical appliances, and stay away from windows."
	adviceHighWinds    = "Secure outdoor objects and avoid wooded areas."
	adviceHeatWave     = "Stay hydrated, avoid prolonged sun exposure, and check on vulnerable people."
	adviceExtremeCold  = "Dress warmly, limit time outdoors, and protect pipes from freezing."
	adviceHeavyRain    = "Avoid flooded areas and monitor local warnings."
)

// rule inspects one observation and reports a candidate alert when it fires.
// Source and certainty are filled in by the Analyzer.
type rule func(obs Observation) (Alert, bool)

var rules = []rule{
	thunderstormRule,
	highWindsRule,
	heatWaveRule,
	extremeColdRule,
	heavyRainRule,
}

// Analyzer turns forecast observations into candidate alerts.
type Analyzer struct {
	source string
}

// NewAnalyzer returns an Analyzer that stamps alerts with the given source
// name. An empty name falls back to "OpenWeatherMap Analysis".
func NewAnalyzer(source string) *Analyzer {
	if source == "" {
		source = defaultAnalyzer
	}
	return &Analyzer{source: source}
}

// Source returns the provider name stamped on generated alerts.
func (a *Analyzer) Source() string {
	return a.source
}

// Analyze evaluates every rule against every observation, in observation
// order then rule order. It has no side effects and never fails.
func (a *Analyzer) Analyze(observations []Observation) []Alert {
	alerts := make([]Alert, 0)
	for _, obs := range observations {
		for _, r := range rules {
			alert, ok := r(obs)
			if !ok {
				continue
			}
			alert.Time = obs.Time
			alert.Certainty = CertaintyDetected
			alert.Source = a.source
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func windSeverity(speed float64) Severity {
	if speed > windSevereMps {
		return SeverityHigh
	}
	return SeverityMedium
}

func thunderstormRule(obs Observation) (Alert, bool) {
	if obs.Condition != conditionThunderstorm {
		return Alert{}, false
	}
	return Alert{
		Type:        TypeThunderstorm,
		Severity:    windSeverity(obs.WindSpeedMetersPerSecond),
		Description: "Thunderstorm: " + obs.Description,
		Advice:      adviceThunderstorm,
	}, true
}

func highWindsRule(obs Observation) (Alert, bool) {
	if obs.WindSpeedMetersPerSecond <= windAlertMps {
		return Alert{}, false
	}
	return Alert{
		Type:        TypeHighWinds,
		Severity:    windSeverity(obs.WindSpeedMetersPerSecond),
		Description: fmt.Sprintf("Strong winds: %s m/s", formatNumber(obs.WindSpeedMetersPerSecond)),
		Advice:      adviceHighWinds,
	}, true
}

func heatWaveRule(obs Observation) (Alert, bool) {
	if obs.TemperatureCelsius <= heatAlertC {
		return Alert{}, false
	}
	return Alert{
		Type:        TypeHeatWave,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Extreme heat: %d°C", roundCelsius(obs.TemperatureCelsius)),
		Advice:      adviceHeatWave,
	}, true
}

func extremeColdRule(obs Observation) (Alert, bool) {
	if obs.TemperatureCelsius >= coldAlertC {
		return Alert{}, false
	}
	return Alert{
		Type:        TypeExtremeCold,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Extreme cold: %d°C", roundCelsius(obs.TemperatureCelsius)),
		Advice:      adviceExtremeCold,
	}, true
}

func heavyRainRule(obs Observation) (Alert, bool) {
	if obs.Condition != conditionRain || obs.PrecipitationMm3h == nil || *obs.PrecipitationMm3h <= heavyRainMm3h {
		return Alert{}, false
	}
	return Alert{
		Type:        TypeHeavyRain,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Heavy rainfall: %smm in 3 hours", formatNumber(*obs.PrecipitationMm3h)),
		Advice:      adviceHeavyRain,
	}, true
}

// roundCelsius rounds half up, matching how temperatures are shown to users.
func roundCelsius(c float64) int {
	return int(math.Floor(c + 0.5))
}

// formatNumber prints the shortest decimal representation, e.g. 12.5 or 11.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
