package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// BlendPair names a single model and the derived model built from it.
type BlendPair struct {
	Source string
	Output string
}

// ParseWeekday accepts English weekday names, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrConfiguration, s)
}

// CutoffDate returns the first target weekday strictly after runDate. A run
// on the target weekday itself cuts off a week later.
func CutoffDate(runDate time.Time, target time.Weekday) time.Time {
	runDate = Midnight(runDate)
	days := (int(target) - int(runDate.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return runDate.AddDate(0, 0, days)
}

// BlendResult is a derived model series plus coverage diagnostics.
type BlendResult struct {
	Records    []ForecastRecord
	FromSource int
	FromGrid   int
	// Uncovered lists grid-mean sub-basins whose source series does not cover
	// every date before the cutoff. Their gaps are left unfilled.
	Uncovered []int
}

// Blend keeps source records dated before cutoff and grid-mean records dated
// on or after it, sorts by sub-basin then date, and relabels every record
// with output and runDate. Inputs are not modified.
func Blend(source, gridMean []ForecastRecord, cutoff, runDate time.Time, output string) BlendResult {
	cutoff = Midnight(cutoff)
	runDate = Midnight(runDate)

	var result BlendResult
	records := make([]ForecastRecord, 0, len(source)+len(gridMean))
	covered := make(map[int]int)
	for _, r := range source {
		if Midnight(r.ForecastDate).Before(cutoff) {
			records = append(records, r)
			covered[r.SubBasinID]++
			result.FromSource++
		}
	}

	gridBasins := make(map[int]struct{})
	for _, r := range gridMean {
		gridBasins[r.SubBasinID] = struct{}{}
		if !Midnight(r.ForecastDate).Before(cutoff) {
			records = append(records, r)
			result.FromGrid++
		}
	}

	for i := range records {
		records[i].ForecastDate = Midnight(records[i].ForecastDate)
		records[i].RunDate = runDate
		records[i].ModelName = output
	}
	SortRecords(records)
	result.Records = records

	window := int(cutoff.Sub(runDate).Hours()/24) - 1
	if window > 0 {
		for id := range gridBasins {
			if covered[id] < window {
				result.Uncovered = append(result.Uncovered, id)
			}
		}
		sort.Ints(result.Uncovered)
	}
	return result
}
