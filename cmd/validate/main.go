// Command validate performs offline integrity checks on the recorded provider
// responses under data/mock and, optionally, on the report fixture produced
// by genmock. It runs the real decoding, detection, normalization, and
// aggregation code and verifies the ordering, dedup, and ranking guarantees
// every report must satisfy.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -forecast data/mock/openweathermap_forecast_austin.json \
//	  -alerts data/mock/weatherapi_alerts_austin.json \
//	  -report data/mock/report_austin.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/adapter/fixture"
	"github.com/couchcryptid/storm-alerts-service/internal/config"
	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"github.com/couchcryptid/storm-alerts-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	forecastPath := flag.String("forecast", "data/mock/openweathermap_forecast_austin.json", "recorded OpenWeatherMap forecast response")
	alertsPath := flag.String("alerts", "data/mock/weatherapi_alerts_austin.json", "recorded WeatherAPI.com forecast response")
	reportPath := flag.String("report", "", "report fixture written by genmock (optional)")
	location := flag.String("location", "Austin", "location the report fixture was generated for")
	flag.Parse()

	if *forecastPath == "" || *alertsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*forecastPath, *alertsPath, *reportPath, *location); code != 0 {
		os.Exit(code)
	}
}

func run(forecastPath, alertsPath, reportPath, location string) int {
	ctx := context.Background()

	// ── Load recorded responses ──
	fmt.Println("=== Weather Alert Fixture Validation ===")
	fmt.Println()

	observations, err := fixture.NewForecast(forecastPath).FetchForecast(ctx, location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load forecast fixture: %v\n", err)
		return 1
	}

	raws, err := fixture.NewOfficialAlerts(alertsPath).FetchOfficialAlerts(ctx, location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load alerts fixture: %v\n", err)
		return 1
	}

	analyzer := domain.NewAnalyzer("")
	candidates := analyzer.Analyze(observations)
	official, normErr := domain.NewNormalizer("").Normalize(raws)
	skipped := domain.SkippedRecords(normErr)

	// ── Run validation phases ──
	phases := []*phase{
		validateForecast(observations),
		validateNormalization(raws, official, skipped),
		validateDetection(analyzer, observations, candidates),
		validateAggregation(candidates, official),
	}
	if reportPath != "" {
		phases = append(phases, validateReportFixture(reportPath, forecastPath, alertsPath, location))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d forecast periods, %d official records (%d malformed), %d detected, %d official alerts\n",
		len(observations), len(raws), len(skipped), len(candidates), len(official))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Forecast ──
// Decoded observations are strictly time-ordered with no repeated periods.

func validateForecast(obs []domain.Observation) *phase {
	p := &phase{name: "Phase 1: Forecast Ordering"}

	if len(obs) == 0 {
		p.errorf("forecast fixture decoded to zero observations")
		return p
	}
	for i, o := range obs {
		if o.Time.IsZero() {
			p.errorf("observation %d: missing timestamp", i)
		}
		if i > 0 && !obs[i-1].Time.Before(o.Time) {
			p.errorf("observation %d: %s does not follow %s", i, o.Time.Format(time.RFC3339), obs[i-1].Time.Format(time.RFC3339))
		}
	}
	return p
}

// ── Phase 2: Normalization ──
// Every raw record is either normalized or reported as malformed.

func validateNormalization(raws []domain.RawOfficialAlert, official []domain.Alert, skipped []*domain.MalformedRecordError) *phase {
	p := &phase{name: "Phase 2: Official Alert Normalization"}

	if got := len(official) + len(skipped); got != len(raws) {
		p.errorf("%d raw records but %d normalized + %d skipped", len(raws), len(official), len(skipped))
	}
	for _, s := range skipped {
		if s.Index < 0 || s.Index >= len(raws) {
			p.errorf("skipped record index %d out of range", s.Index)
		}
		if s.Reason == "" {
			p.errorf("skipped record %d: empty reason", s.Index)
		}
	}
	for i, a := range official {
		checkAlert(p, fmt.Sprintf("official %d", i), a, domain.CertaintyOfficial)
	}
	return p
}

// ── Phase 3: Detection ──
// Candidates come only from observed periods and the rules are deterministic.

func validateDetection(analyzer *domain.Analyzer, obs []domain.Observation, candidates []domain.Alert) *phase {
	p := &phase{name: "Phase 3: Heuristic Detection"}

	periods := make(map[time.Time]bool, len(obs))
	for _, o := range obs {
		periods[o.Time.UTC()] = true
	}

	for i, a := range candidates {
		label := fmt.Sprintf("detected %d", i)
		checkAlert(p, label, a, domain.CertaintyDetected)
		if !periods[a.Time.UTC()] {
			p.errorf("%s: time %s matches no forecast period", label, a.Time.Format(time.RFC3339))
		}
		if a.Source != analyzer.Source() {
			p.errorf("%s: source %q, want %q", label, a.Source, analyzer.Source())
		}
	}

	if diff := cmp.Diff(candidates, analyzer.Analyze(obs)); diff != "" {
		p.errorf("analysis is not deterministic (-first +second):\n%s", diff)
	}
	return p
}

// ── Phase 4: Aggregation ──
// No duplicate keys, ranked by severity, first occurrence kept, idempotent.

func validateAggregation(candidates, official []domain.Alert) *phase {
	p := &phase{name: "Phase 4: Aggregation Invariants"}

	merged, dropped := domain.AggregateWithStats(candidates, official)

	if want := len(candidates) + len(official) - dropped; len(merged) != want {
		p.errorf("merged %d alerts, want %d inputs - %d duplicates = %d", len(merged), len(candidates)+len(official), dropped, want)
	}

	first := map[domain.AlertKey]domain.Alert{}
	for _, a := range append(append([]domain.Alert{}, candidates...), official...) {
		if _, ok := first[a.Key()]; !ok {
			first[a.Key()] = a
		}
	}
	if len(first) != len(merged) {
		p.errorf("%d distinct keys in input, %d alerts in output", len(first), len(merged))
	}

	seen := map[domain.AlertKey]bool{}
	for i, a := range merged {
		k := a.Key()
		if seen[k] {
			p.errorf("alert %d: duplicate key %s/%s/%s", i, k.Type, a.Time.Format(time.RFC3339), k.Severity)
		}
		seen[k] = true

		if want, ok := first[k]; !ok {
			p.errorf("alert %d: key not present in input", i)
		} else if diff := cmp.Diff(want, a); diff != "" {
			p.errorf("alert %d: not the first occurrence (-want +got):\n%s", i, diff)
		}

		if i > 0 && merged[i-1].Severity.Rank() < a.Severity.Rank() {
			p.errorf("alert %d: %s ranked after %s", i, a.Severity, merged[i-1].Severity)
		}
	}

	if diff := cmp.Diff(merged, domain.Aggregate(merged, nil)); diff != "" {
		p.errorf("aggregation is not idempotent (-once +twice):\n%s", diff)
	}
	return p
}

// ── Phase 5: Report Fixture ──
// The committed report matches what the service produces today.

func validateReportFixture(reportPath, forecastPath, alertsPath, location string) *phase {
	p := &phase{name: "Phase 5: Report Fixture"}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		p.errorf("read report fixture: %v", err)
		return p
	}
	var want domain.Report
	if err := json.Unmarshal(data, &want); err != nil {
		p.errorf("decode report fixture: %v", err)
		return p
	}

	logger := observability.NewLogger(&config.Config{LogLevel: "error", LogFormat: "text"})
	svc := pipeline.NewAlertService(
		fixture.NewForecast(forecastPath),
		fixture.NewOfficialAlerts(alertsPath),
		logger,
		observability.NewMetricsForTesting(),
	)
	got := svc.Alerts(context.Background(), location)

	if want.Total != len(want.Alerts) {
		p.errorf("fixture total %d does not match %d alerts", want.Total, len(want.Alerts))
	}
	if want.Critical != domain.CountCritical(want.Alerts) {
		p.errorf("fixture critical %d does not match alerts", want.Critical)
	}
	opts := cmpopts.IgnoreFields(domain.Report{}, "RequestID", "GeneratedAt")
	if diff := cmp.Diff(want, got, opts); diff != "" {
		p.errorf("report fixture is stale, regenerate with genmock (-fixture +current):\n%s", diff)
	}
	return p
}

func checkAlert(p *phase, label string, a domain.Alert, certainty string) {
	if a.Type == "" {
		p.errorf("%s: empty type", label)
	}
	if !a.Severity.Valid() {
		p.errorf("%s: invalid severity %q", label, a.Severity)
	}
	if a.Time.IsZero() {
		p.errorf("%s: missing time", label)
	}
	if a.Certainty != certainty {
		p.errorf("%s: certainty %q, want %q", label, a.Certainty, certainty)
	}
	if a.Source == "" {
		p.errorf("%s: empty source", label)
	}
	if a.Description == "" {
		p.errorf("%s: empty description", label)
	}
}
