package domain

import (
	"fmt"
	"sort"
	"time"
)

// SortRecords orders records by sub-basin, then forecast date.
func SortRecords(records []ForecastRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SubBasinID != records[j].SubBasinID {
			return records[i].SubBasinID < records[j].SubBasinID
		}
		return records[i].ForecastDate.Before(records[j].ForecastDate)
	})
}

type recordKey struct {
	subBasin int
	date     time.Time
	model    string
	run      time.Time
}

// ValidateBatch checks a batch before it is published: it is non-empty,
// shares one run date, forecasts only future dates and holds at most one
// record per sub-basin, forecast date, model and run date.
func ValidateBatch(records []ForecastRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: empty batch", ErrMalformedInput)
	}

	run := Midnight(records[0].RunDate)
	seen := make(map[recordKey]struct{}, len(records))
	for _, r := range records {
		if !Midnight(r.RunDate).Equal(run) {
			return fmt.Errorf("%w: batch mixes run dates %s and %s",
				ErrMalformedInput, run.Format(DateLayout), r.RunDate.Format(DateLayout))
		}
		if !Midnight(r.ForecastDate).After(run) {
			return fmt.Errorf("%w: sub-basin %d forecast date %s is not after run date %s",
				ErrMalformedInput, r.SubBasinID, r.ForecastDate.Format(DateLayout), run.Format(DateLayout))
		}
		key := recordKey{subBasin: r.SubBasinID, date: Midnight(r.ForecastDate), model: r.ModelName, run: run}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate record for sub-basin %d on %s (%s)",
				ErrMalformedInput, r.SubBasinID, r.ForecastDate.Format(DateLayout), r.ModelName)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ForecastDates returns the distinct forecast dates of records in ascending order.
func ForecastDates(records []ForecastRecord) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range records {
		d := Midnight(r.ForecastDate)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
