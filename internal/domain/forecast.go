package domain

import (
	"time"

	"github.com/google/uuid"
)

// Layouts used on the wire and in file names.
const (
	DateLayout         = "2006-01-02"
	RunTimestampLayout = "2006-01-02T15:04:05"
)

// SubBasin is a named hydrological catchment registered with the forecast service.
type SubBasin struct {
	ID        int
	Name      string
	Longitude float64
	Latitude  float64
}

// ForecastRecord is one daily rainfall value for one sub-basin. Records are
// values: relabelling produces a copy.
type ForecastRecord struct {
	SubBasinID   int       `json:"sub_basin_id"`
	ForecastDate time.Time `json:"forecast_date"`
	RainValue    float64   `json:"rain_value"`
	RunDate      time.Time `json:"run_date"`
	ModelName    string    `json:"model_name"`
}

// RawBasinRow is one physical row of a bias-corrected basin table.
// Values[i] is the forecast for day offset i+1.
type RawBasinRow struct {
	Line      int
	BasinName string
	Lon       float64
	Lat       float64
	Values    []float64
}

// GridPoint is one point of a grid-mean field for a single forecast day.
type GridPoint struct {
	Lon       float64
	Lat       float64
	RainValue float64
}

// ArchiveMeta describes an uploaded archive of raw or derived files.
type ArchiveMeta struct {
	ModelName    string
	RunTimestamp time.Time
}

// RunTimestamp is the run date anchored at midnight, as the forecast service expects it.
func RunTimestamp(runDate time.Time) string {
	return Midnight(runDate).Format(RunTimestampLayout)
}

// Batch event kinds.
const (
	BatchKindForecast = "forecast"
	BatchKindArchive  = "archive"
)

// BatchEvent announces that a batch or archive reached the forecast service.
type BatchEvent struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	ModelName   string    `json:"model_name"`
	RunDate     string    `json:"run_date"`
	Records     int       `json:"records,omitempty"`
	Archive     string    `json:"archive,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// NewForecastEvent describes a published forecast batch.
func NewForecastEvent(model string, runDate time.Time, records int) BatchEvent {
	return BatchEvent{
		ID:          uuid.NewString(),
		Kind:        BatchKindForecast,
		ModelName:   model,
		RunDate:     Midnight(runDate).Format(DateLayout),
		Records:     records,
		PublishedAt: clock.Now().UTC(),
	}
}

// NewArchiveEvent describes an uploaded archive.
func NewArchiveEvent(meta ArchiveMeta, archive string) BatchEvent {
	return BatchEvent{
		ID:          uuid.NewString(),
		Kind:        BatchKindArchive,
		ModelName:   meta.ModelName,
		RunDate:     Midnight(meta.RunTimestamp).Format(DateLayout),
		Archive:     archive,
		PublishedAt: clock.Now().UTC(),
	}
}
