package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultOfficialSource = "WeatherAPI"
	adviceOfficialDefault = "Take necessary precautions and stay safe."
)

// RawOfficialAlert is one alert record as returned by the WeatherAPI.com
// forecast endpoint (forecast.json?alerts=yes, alerts.alert[]).
type RawOfficialAlert struct {
	Headline    string `json:"headline" validate:"required_without=Desc"`
	MsgType     string `json:"msgtype"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Areas       string `json:"areas"`
	Category    string `json:"category"`
	Certainty   string `json:"certainty"`
	Event       string `json:"event" validate:"required"`
	Note        string `json:"note"`
	Effective   string `json:"effective" validate:"required"`
	Expires     string `json:"expires"`
	Desc        string `json:"desc" validate:"required_without=Headline"`
	Instruction string `json:"instruction"`
}

// providerTimeLayouts are tried in order. Layouts without a zone are read as UTC.
var providerTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalizer maps official provider alerts onto the canonical Alert shape.
type Normalizer struct {
	source string
}

// NewNormalizer returns a Normalizer that stamps alerts with the given
// provider name. An empty name falls back to "WeatherAPI".
func NewNormalizer(source string) *Normalizer {
	if source == "" {
		source = defaultOfficialSource
	}
	return &Normalizer{source: source}
}

// Source returns the provider name stamped on normalized alerts.
func (n *Normalizer) Source() string {
	return n.source
}

// Normalize converts raw records in order. Malformed records are skipped and
// reported through the returned error as joined *MalformedRecordError values;
// the returned alerts are complete for every other record even when the
// error is non-nil.
func (n *Normalizer) Normalize(raws []RawOfficialAlert) ([]Alert, error) {
	alerts := make([]Alert, 0, len(raws))
	var errs []error

	for i, raw := range raws {
		alert, err := n.normalizeOne(i, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		alerts = append(alerts, alert)
	}

	return alerts, errors.Join(errs...)
}

func (n *Normalizer) normalizeOne(index int, raw RawOfficialAlert) (Alert, error) {
	raw = trimRecord(raw)

	if err := validate.Struct(raw); err != nil {
		return Alert{}, &MalformedRecordError{Index: index, Event: raw.Event, Reason: describeValidation(err)}
	}

	effective, ok := parseProviderTime(raw.Effective)
	if !ok {
		return Alert{}, &MalformedRecordError{
			Index:  index,
			Event:  raw.Event,
			Reason: fmt.Sprintf("unrecognized effective time %q", raw.Effective),
		}
	}

	description := raw.Headline
	if description == "" {
		description = raw.Desc
	}

	advice := raw.Instruction
	if advice == "" {
		advice = adviceOfficialDefault
	}

	alert := Alert{
		Type:        raw.Event,
		Severity:    ParseOfficialSeverity(raw.Severity),
		Time:        effective,
		Description: description,
		Advice:      advice,
		Certainty:   CertaintyOfficial,
		Source:      n.source,
		Area:        raw.Areas,
	}
	if expires, ok := parseProviderTime(raw.Expires); ok {
		alert.Expires = &expires
	}
	return alert, nil
}

func trimRecord(raw RawOfficialAlert) RawOfficialAlert {
	raw.Headline = strings.TrimSpace(raw.Headline)
	raw.Event = strings.TrimSpace(raw.Event)
	raw.Effective = strings.TrimSpace(raw.Effective)
	raw.Expires = strings.TrimSpace(raw.Expires)
	raw.Desc = strings.TrimSpace(raw.Desc)
	raw.Instruction = strings.TrimSpace(raw.Instruction)
	raw.Areas = strings.TrimSpace(raw.Areas)
	return raw
}

// describeValidation flattens validator output into a short reason such as
// "missing event; missing headline or desc".
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	reasons := make([]string, 0, len(verrs))
	seenText := false
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required_without":
			if seenText {
				continue
			}
			seenText = true
			reasons = append(reasons, "missing headline or desc")
		default:
			reasons = append(reasons, "missing "+fe.Field())
		}
	}
	return strings.Join(reasons, "; ")
}

func parseProviderTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range providerTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
