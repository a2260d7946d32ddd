package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGridPoints(t *testing.T) {
	input := " -44.25  -21.75   3.4\n -47.75  -18.25  12.0\n"

	points, err := ParseGridPoints(strings.NewReader(input), "PMEDIA_p030624a040624.dat")
	require.NoError(t, err)
	assert.Equal(t, []GridPoint{
		{Lon: -44.25, Lat: -21.75, RainValue: 3.4},
		{Lon: -47.75, Lat: -18.25, RainValue: 12.0},
	}, points)
}

func TestParseGridPoints_WrongColumnCount(t *testing.T) {
	_, err := ParseGridPoints(strings.NewReader("-44.25 -21.75 3.4 9.9\n"), "p.dat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), "p.dat line 1 has 4 columns")
}

func TestParseGridPoints_BadNumber(t *testing.T) {
	_, err := ParseGridPoints(strings.NewReader("-44.25 -21.75 NaNx\n"), "p.dat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestParseGridPoints_MixedPrecision(t *testing.T) {
	input := "-44.25 -21.75 3.4\n-47.5 -18.25 12.0\n"

	points, err := ParseGridPoints(strings.NewReader(input), "p.dat")
	require.NoError(t, err)
	assert.Equal(t, []GridPoint{
		{Lon: -44.25, Lat: -21.75, RainValue: 3.4},
		{Lon: -47.5, Lat: -18.25, RainValue: 12.0},
	}, points)
}

func TestParseGridPoints_NonFiniteRejected(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-Inf", "+Infinity"} {
		t.Run(v, func(t *testing.T) {
			_, err := ParseGridPoints(strings.NewReader("-44.25 -21.75 "+v+"\n"), "p.dat")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), "p.dat line 1: column 3")
		})
	}
}

func TestParseGridPoints_MisalignedRowWrongFieldCount(t *testing.T) {
	input := "-44.25 -21.75 3.4\n-47.5 -18.25\n"

	_, err := ParseGridPoints(strings.NewReader(input), "p.dat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), "p.dat line 2 has 2 columns")
}

func TestAggregateDay_UnmatchedPointExcluded(t *testing.T) {
	c := testCatalog(t)
	agg := NewGridAggregator(c, "PMEDIA-ONS")
	day := GridDay{Offset: 2, Source: "p.dat", Points: []GridPoint{
		{Lon: -44.25, Lat: -21.75, RainValue: 1},
		{Lon: -10, Lat: -10, RainValue: 99},
		{Lon: -48.1, Lat: -22.3, RainValue: 3},
	}}

	records, unmatched, err := agg.AggregateDay(day, Date(2024, 6, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, unmatched)
	require.Len(t, records, 2)
	assert.Equal(t, 10, records[0].SubBasinID)
	assert.Equal(t, 12, records[1].SubBasinID)
	for _, r := range records {
		assert.Equal(t, Date(2024, 6, 5), r.ForecastDate)
		assert.Equal(t, "PMEDIA-ONS", r.ModelName)
	}
}

func TestAggregateDay_SubBasinMatchedTwice(t *testing.T) {
	c := testCatalog(t)
	day := GridDay{Offset: 1, Source: "p.dat", Points: []GridPoint{
		{Lon: -44.25, Lat: -21.75, RainValue: 1},
		{Lon: -44.25, Lat: -21.75, RainValue: 2},
	}}

	_, _, err := NewGridAggregator(c, "PMEDIA-ONS").AggregateDay(day, Date(2024, 6, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func fullGrid(horizon int) []GridDay {
	days := make([]GridDay, 0, horizon)
	for o := horizon; o >= 1; o-- {
		days = append(days, GridDay{Offset: o, Points: []GridPoint{
			{Lon: -44.25, Lat: -21.75, RainValue: float64(o)},
			{Lon: -47.75, Lat: -18.25, RainValue: float64(o) * 2},
			{Lon: 0, Lat: 0, RainValue: 5},
		}})
	}
	return days
}

func TestAggregate_ConcatenatesDaysInOrder(t *testing.T) {
	c := testCatalog(t)
	runDate := Date(2024, 6, 3)

	result, err := NewGridAggregator(c, "PMEDIA-ONS").Aggregate(fullGrid(14), runDate, 14)
	require.NoError(t, err)

	assert.Equal(t, 14, result.Days)
	assert.Equal(t, 42, result.Points)
	assert.Equal(t, 14, result.Unmatched)
	require.Len(t, result.Records, 28)
	assert.Equal(t, Date(2024, 6, 4), result.Records[0].ForecastDate)
	assert.Equal(t, Date(2024, 6, 17), result.Records[27].ForecastDate)
	require.NoError(t, ValidateBatch(result.Records))
}

func TestAggregate_MissingDayAbortsSeries(t *testing.T) {
	c := testCatalog(t)
	days := fullGrid(14)
	days = append(days[:3], days[4:]...)

	_, err := NewGridAggregator(c, "PMEDIA-ONS").Aggregate(days, Date(2024, 6, 3), 14)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "day 11 of 14")
}

func TestAggregate_OffsetOutOfRange(t *testing.T) {
	c := testCatalog(t)
	days := append(fullGrid(14), GridDay{Offset: 15, Source: "p15.dat"})

	_, err := NewGridAggregator(c, "PMEDIA-ONS").Aggregate(days, Date(2024, 6, 3), 14)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
