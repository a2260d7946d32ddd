package registry

import (
	"fmt"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
)

// Forecast service wire types.

type subBasinDTO struct {
	ID   int     `json:"id"`
	Name string  `json:"nome"`
	Lon  float64 `json:"vl_lon"`
	Lat  float64 `json:"vl_lat"`
}

func (d subBasinDTO) toDomain() domain.SubBasin {
	return domain.SubBasin{ID: d.ID, Name: d.Name, Longitude: d.Lon, Latitude: d.Lat}
}

type forecastDTO struct {
	SubBasinID   int     `json:"cd_subbacia"`
	ForecastDate string  `json:"dt_prevista"`
	RainValue    float64 `json:"vl_chuva"`
	RunDate      string  `json:"dt_rodada"`
	ModelName    string  `json:"modelo"`
}

func newForecastDTO(r domain.ForecastRecord) forecastDTO {
	return forecastDTO{
		SubBasinID:   r.SubBasinID,
		ForecastDate: domain.Midnight(r.ForecastDate).Format(domain.DateLayout),
		RainValue:    r.RainValue,
		RunDate:      domain.RunTimestamp(r.RunDate),
		ModelName:    r.ModelName,
	}
}

func (d forecastDTO) toDomain() (domain.ForecastRecord, error) {
	forecast, err := parseWireDate(d.ForecastDate)
	if err != nil {
		return domain.ForecastRecord{}, fmt.Errorf("dt_prevista: %w", err)
	}
	run, err := parseWireDate(d.RunDate)
	if err != nil {
		return domain.ForecastRecord{}, fmt.Errorf("dt_rodada: %w", err)
	}
	return domain.ForecastRecord{
		SubBasinID:   d.SubBasinID,
		ForecastDate: forecast,
		RainValue:    d.RainValue,
		RunDate:      run,
		ModelName:    d.ModelName,
	}, nil
}

// The service echoes dates either bare or with a time of day.
var wireDateLayouts = []string{
	domain.DateLayout,
	domain.RunTimestampLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseWireDate keeps only the calendar date of s.
func parseWireDate(s string) (time.Time, error) {
	for _, layout := range wireDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
