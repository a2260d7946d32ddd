package domain

import (
	"fmt"
	"io"
	"sort"
	"time"
)

const gridColumns = 3

// ParseGridPoints reads one grid-mean daily file of lon, lat, rain rows.
// Aligned columns are used when they yield three numeric columns; otherwise
// each line is split on whitespace.
func ParseGridPoints(r io.Reader, source string) ([]GridPoint, error) {
	table, err := ReadFixedWidth(r, source)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", ErrMalformedInput, source)
	}
	if points, err := alignedGridPoints(table); err == nil {
		return points, nil
	}
	return delimitedGridPoints(table)
}

func alignedGridPoints(t Table) ([]GridPoint, error) {
	if len(t.Columns) != gridColumns {
		return nil, fmt.Errorf("%w: %s has %d columns, want lon, lat, rain",
			ErrMalformedInput, t.Source, len(t.Columns))
	}
	points := make([]GridPoint, 0, len(t.Rows))
	for _, tr := range t.Rows {
		nums, err := parseCells(t.Source, tr, 0)
		if err != nil {
			return nil, err
		}
		points = append(points, GridPoint{Lon: nums[0], Lat: nums[1], RainValue: nums[2]})
	}
	return points, nil
}

// GridDay is the parsed grid of one forecast day.
type GridDay struct {
	Offset int
	Source string
	Points []GridPoint
}

// AggregateResult is the grid-mean series for one run.
type AggregateResult struct {
	Records   []ForecastRecord
	Days      int
	Points    int
	Unmatched int
}

// GridAggregator assigns grid points to sub-basins by exact coordinates.
type GridAggregator struct {
	catalog *Catalog
	model   string
}

// NewGridAggregator creates an aggregator labelling its output with model.
func NewGridAggregator(catalog *Catalog, model string) *GridAggregator {
	return &GridAggregator{catalog: catalog, model: model}
}

// AggregateDay joins one day's points onto sub-basins. Points without an
// exact catalog match are dropped and counted.
func (a *GridAggregator) AggregateDay(day GridDay, runDate time.Time) ([]ForecastRecord, int, error) {
	runDate = Midnight(runDate)
	forecastDate := runDate.AddDate(0, 0, day.Offset)

	records := make([]ForecastRecord, 0, a.catalog.Len())
	seen := make(map[int]GridPoint, a.catalog.Len())
	unmatched := 0
	for _, p := range day.Points {
		id, ok := a.catalog.LookupCoordinates(p.Lon, p.Lat)
		if !ok {
			unmatched++
			continue
		}
		if _, dup := seen[id]; dup {
			return nil, 0, fmt.Errorf("%w: %s: sub-basin %d matched twice at (%g, %g)",
				ErrMalformedInput, day.Source, id, p.Lon, p.Lat)
		}
		seen[id] = p
		records = append(records, ForecastRecord{
			SubBasinID:   id,
			ForecastDate: forecastDate,
			RainValue:    p.RainValue,
			RunDate:      runDate,
			ModelName:    a.model,
		})
	}
	return records, unmatched, nil
}

// Aggregate concatenates days 1..horizon in order. Every day must be present
// exactly once: a partial grid-mean series would corrupt every blend built on it.
func (a *GridAggregator) Aggregate(days []GridDay, runDate time.Time, horizon int) (AggregateResult, error) {
	byOffset := make(map[int]GridDay, len(days))
	for _, d := range days {
		if d.Offset < 1 || d.Offset > horizon {
			return AggregateResult{}, fmt.Errorf("%w: %s: day offset %d outside 1..%d",
				ErrMalformedInput, d.Source, d.Offset, horizon)
		}
		if _, dup := byOffset[d.Offset]; dup {
			return AggregateResult{}, fmt.Errorf("%w: day offset %d given twice", ErrMalformedInput, d.Offset)
		}
		byOffset[d.Offset] = d
	}

	offsets := make([]int, 0, len(byOffset))
	for o := range byOffset {
		offsets = append(offsets, o)
	}
	sort.Ints(offsets)
	for want := 1; want <= horizon; want++ {
		if _, ok := byOffset[want]; !ok {
			return AggregateResult{}, fmt.Errorf("grid-mean day %d of %d: %w", want, horizon, ErrNotFound)
		}
	}

	var result AggregateResult
	for _, o := range offsets {
		day := byOffset[o]
		records, unmatched, err := a.AggregateDay(day, runDate)
		if err != nil {
			return AggregateResult{}, err
		}
		result.Records = append(result.Records, records...)
		result.Points += len(day.Points)
		result.Unmatched += unmatched
		result.Days++
	}
	return result, nil
}
