// Command genmock runs recorded provider responses through the real alert
// service and writes the resulting report as a JSON fixture. It also prints
// the counts the fixture-driven tests assert on, so they can be updated
// whenever the recorded responses change.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -forecast data/mock/openweathermap_forecast_austin.json \
//	  -alerts data/mock/weatherapi_alerts_austin.json \
//	  -out data/mock/report_austin.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/adapter/fixture"
	"github.com/couchcryptid/storm-alerts-service/internal/config"
	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"github.com/couchcryptid/storm-alerts-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// generatedAt pins Report.GeneratedAt so regenerated fixtures diff cleanly.
var generatedAt = time.Date(2024, time.July, 14, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	forecastPath := flag.String("forecast", "data/mock/openweathermap_forecast_austin.json", "recorded OpenWeatherMap forecast response")
	alertsPath := flag.String("alerts", "data/mock/weatherapi_alerts_austin.json", "recorded WeatherAPI.com forecast response")
	location := flag.String("location", "Austin", "location stamped on the report")
	out := flag.String("out", "", "output path for the report JSON fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	report := buildReport(*forecastPath, *alertsPath, *location)
	for _, s := range report.Sources {
		if s.State != domain.SourceOK {
			return fmt.Errorf("source %s: %s: %s", s.Name, s.State, s.Error)
		}
	}

	// Request IDs are random per run.
	report.RequestID = ""

	if err := writeJSON(*out, report); err != nil {
		return fmt.Errorf("writing report fixture: %w", err)
	}
	log.Printf("wrote report fixture: %s", *out)

	printStats(report)
	return nil
}

// buildReport runs the recorded responses through the same service the
// HTTP and Kafka surfaces use.
func buildReport(forecastPath, alertsPath, location string) domain.Report {
	logger := observability.NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	svc := pipeline.NewAlertService(
		fixture.NewForecast(forecastPath),
		fixture.NewOfficialAlerts(alertsPath),
		logger,
		observability.NewMetricsForTesting(),
	)
	return svc.Alerts(context.Background(), location)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type typeCount struct {
	name  string
	count int
}

func printStats(report domain.Report) {
	bySeverity := map[domain.Severity]int{}
	byCertainty := map[string]int{}
	byType := map[string]int{}
	for _, a := range report.Alerts {
		bySeverity[a.Severity]++
		byCertainty[a.Certainty]++
		byType[a.Type]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", report.Total)
	fmt.Printf("Critical: %d\n", report.Critical)
	fmt.Printf("By severity: high=%d, medium=%d, low=%d\n",
		bySeverity[domain.SeverityHigh], bySeverity[domain.SeverityMedium], bySeverity[domain.SeverityLow])
	fmt.Printf("By certainty: detected=%d, official=%d\n",
		byCertainty[domain.CertaintyDetected], byCertainty[domain.CertaintyOfficial])

	for _, s := range report.Sources {
		fmt.Printf("Source %s: state=%s, count=%d\n", s.Name, s.State, s.Count)
	}

	tc := make([]typeCount, 0, len(byType))
	for name, c := range byType {
		tc = append(tc, typeCount{name, c})
	}
	sort.Slice(tc, func(i, j int) bool {
		if tc[i].count != tc[j].count {
			return tc[i].count > tc[j].count
		}
		return tc[i].name < tc[j].name
	})
	fmt.Printf("Types (%d):", len(tc))
	for _, t := range tc {
		fmt.Printf(" %q=%d", t.name, t.count)
	}
	fmt.Println()

	fmt.Println("\nRanked alerts:")
	for i, a := range report.Alerts {
		fmt.Printf("  %2d. %-6s %-26s %-8s %s\n", i+1, a.Severity, a.Type, a.Certainty, a.Time.Format(time.RFC3339))
	}
}
