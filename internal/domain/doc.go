// Package domain models weather hazard alerts derived from forecast data and
// from officially issued provider warnings.
//
// # Data Sources
//
// Forecast periods come from the OpenWeatherMap 5-day/3-hour forecast API.
// Each period becomes an [Observation]. Official warnings come from the
// WeatherAPI.com forecast endpoint with alerts=yes and arrive as
// [RawOfficialAlert] records.
//
// # Units
//
// Observations are always stored in SI-ish units regardless of provider:
//
//	temperature    Celsius  (OpenWeatherMap default is Kelvin: K - 273.15)
//	wind speed     m/s      (km/h / 3.6, mph * 0.44704)
//	precipitation  mm accumulated over the preceding 3 hours
//
// Conversion happens once, when an adapter builds the Observation. The
// analyzer rules compare normalized numbers only.
//
// # Heuristic Rules
//
//	Thunderstorm   condition == "Thunderstorm"            High if wind > 15 m/s, else Medium
//	High Winds     wind > 10 m/s                          High if wind > 15 m/s, else Medium
//	Heat Wave      temperature > 35°C                     Medium
//	Extreme Cold   temperature < -10°C                    Medium
//	Heavy Rain     condition == "Rain" and rain3h > 10mm  Medium
//
// All thresholds are strict. Thunderstorm and High Winds may both fire for the
// same period.
//
// # Severity Vocabulary
//
// The canonical scale is Low < Medium < High. Official provider severities map
// as Extreme/Severe -> High, Moderate -> Medium, Minor -> Low. Anything else,
// including an empty string, maps to Medium.
//
// # Aggregation
//
// Candidate alerts are concatenated ahead of official alerts, deduplicated on
// (type, time, severity) keeping the first occurrence, then stably sorted by
// severity rank descending. See [Aggregate].
package domain
