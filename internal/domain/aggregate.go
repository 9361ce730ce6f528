package domain

import "slices"

// Aggregate merges candidate and official alerts into one ranked list.
//
// Candidates are placed ahead of official alerts, then alerts sharing a
// (type, time, severity) key are collapsed to their first occurrence, and
// the survivors are stably sorted by severity, highest first. Equal
// severities keep their concatenation order. Both inputs may be nil; the
// result is never nil.
func Aggregate(candidates, official []Alert) []Alert {
	merged, _ := aggregate(candidates, official)
	return merged
}

// AggregateWithStats is Aggregate that also reports how many duplicates were
// dropped.
func AggregateWithStats(candidates, official []Alert) ([]Alert, int) {
	return aggregate(candidates, official)
}

func aggregate(candidates, official []Alert) ([]Alert, int) {
	total := len(candidates) + len(official)
	out := make([]Alert, 0, total)
	seen := make(map[AlertKey]struct{}, total)

	for _, batch := range [][]Alert{candidates, official} {
		for _, a := range batch {
			key := a.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, a)
		}
	}

	slices.SortStableFunc(out, func(a, b Alert) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})

	return out, total - len(out)
}

// MaxSeverity returns the highest severity in alerts, or "" when empty.
func MaxSeverity(alerts []Alert) Severity {
	var top Severity
	for _, a := range alerts {
		if a.Severity.Rank() > top.Rank() {
			top = a.Severity
		}
	}
	return top
}

// CountCritical returns how many alerts are High severity.
func CountCritical(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if a.IsCritical() {
			n++
		}
	}
	return n
}
