package domain

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable marks a collaborator that cannot contribute, e.g. a
// provider whose API key is not configured. Callers treat it as an empty
// contribution.
var ErrSourceUnavailable = errors.New("source unavailable")

// MalformedRecordError describes an official alert record that was skipped.
type MalformedRecordError struct {
	Index  int    // position in the raw collection
	Event  string // event name as received, may be empty
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("official alert %d skipped: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("official alert %d (%s) skipped: %s", e.Index, e.Event, e.Reason)
}

// SkippedRecords unpacks the malformed records joined into err by
// [Normalizer.Normalize]. It returns nil when err carries none.
func SkippedRecords(err error) []*MalformedRecordError {
	if err == nil {
		return nil
	}

	var out []*MalformedRecordError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, SkippedRecords(e)...)
		}
		return out
	}

	var mre *MalformedRecordError
	if errors.As(err, &mre) {
		out = append(out, mre)
	}
	return out
}
