package domain

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// basinLeadingColumns are name, lon and lat.
const basinLeadingColumns = 3

// BasinSchema is the inferred layout of a bias-corrected basin table.
type BasinSchema struct {
	// Horizon is the number of day-offset value columns.
	Horizon int
}

// InferBasinSchema derives the forecast horizon from the table's column count.
func InferBasinSchema(t Table) (BasinSchema, error) {
	if len(t.Rows) == 0 {
		return BasinSchema{}, fmt.Errorf("%w: %s has no rows", ErrMalformedInput, t.Source)
	}
	horizon := len(t.Columns) - basinLeadingColumns
	if horizon < 1 {
		return BasinSchema{}, fmt.Errorf("%w: %s has %d columns, need name, lon, lat and at least one day",
			ErrMalformedInput, t.Source, len(t.Columns))
	}
	return BasinSchema{Horizon: horizon}, nil
}

// ParseBasinRows converts table rows into RawBasinRows of exactly schema.Horizon values.
func ParseBasinRows(t Table, schema BasinSchema) ([]RawBasinRow, error) {
	if len(t.Columns) != basinLeadingColumns+schema.Horizon {
		return nil, fmt.Errorf("%w: %s has %d columns, schema expects %d",
			ErrMalformedInput, t.Source, len(t.Columns), basinLeadingColumns+schema.Horizon)
	}

	rows := make([]RawBasinRow, 0, len(t.Rows))
	for _, tr := range t.Rows {
		if tr.Cells[0] == "" {
			return nil, fmt.Errorf("%w: %s line %d: missing basin name", ErrMalformedInput, t.Source, tr.Line)
		}
		nums, err := parseCells(t.Source, tr, basinLeadingColumns-1)
		if err != nil {
			return nil, err
		}
		rows = append(rows, RawBasinRow{
			Line:      tr.Line,
			BasinName: tr.Cells[0],
			Lon:       nums[0],
			Lat:       nums[1],
			Values:    nums[2:],
		})
	}
	return rows, nil
}

// parseCells parses every cell from index from onwards as a finite float.
func parseCells(source string, tr TableRow, from int) ([]float64, error) {
	nums := make([]float64, 0, len(tr.Cells)-from)
	for j := from; j < len(tr.Cells); j++ {
		cell := tr.Cells[j]
		if cell == "" {
			return nil, fmt.Errorf("%w: %s line %d: column %d is blank", ErrMalformedInput, source, tr.Line, j+1)
		}
		v, err := parseNumber(source, tr.Line, j+1, cell)
		if err != nil {
			return nil, err
		}
		nums = append(nums, v)
	}
	return nums, nil
}

// alignedBasinRows parses a table whose columns line up. A name cell ending
// in a number means the coordinates ran into the name column.
func alignedBasinRows(t Table) ([]RawBasinRow, int, error) {
	schema, err := InferBasinSchema(t)
	if err != nil {
		return nil, 0, err
	}
	rows, err := ParseBasinRows(t, schema)
	if err != nil {
		return nil, 0, err
	}
	for _, row := range rows {
		if f := strings.Fields(row.BasinName); len(f) > 1 && isNumber(f[len(f)-1]) {
			return nil, 0, fmt.Errorf("%w: %s line %d: name column %q holds a number",
				ErrMalformedInput, t.Source, row.Line, row.BasinName)
		}
	}
	return rows, schema.Horizon, nil
}

// UnpivotBasinRow spreads a row's values over forecast dates runDate+1 .. runDate+horizon.
func UnpivotBasinRow(row RawBasinRow, subBasinID, horizon int, runDate time.Time, model string) []ForecastRecord {
	runDate = Midnight(runDate)
	records := make([]ForecastRecord, 0, horizon)
	for offset := 1; offset <= horizon && offset <= len(row.Values); offset++ {
		records = append(records, ForecastRecord{
			SubBasinID:   subBasinID,
			ForecastDate: runDate.AddDate(0, 0, offset),
			RainValue:    row.Values[offset-1],
			RunDate:      runDate,
			ModelName:    model,
		})
	}
	return records
}

// DecodeResult is the outcome of decoding one basin table.
type DecodeResult struct {
	Records   []ForecastRecord
	Horizon   int
	Rows      int
	Unmatched []string
}

// BasinDecoder decodes bias-corrected basin tables into forecast records.
type BasinDecoder struct {
	catalog *Catalog
}

// NewBasinDecoder creates a decoder that resolves basin names against catalog.
func NewBasinDecoder(catalog *Catalog) *BasinDecoder {
	return &BasinDecoder{catalog: catalog}
}

// Decode reads one basin table. Aligned columns are tried first; a file whose
// fields do not line up is split on whitespace instead. Rows whose basin name
// is not in the catalog are dropped and reported in Unmatched. A parse error
// fails the whole file.
func (d *BasinDecoder) Decode(r io.Reader, source, model string, runDate time.Time) (DecodeResult, error) {
	table, err := ReadFixedWidth(r, source)
	if err != nil {
		return DecodeResult{}, err
	}
	if len(table.Rows) == 0 {
		return DecodeResult{}, fmt.Errorf("%w: %s has no rows", ErrMalformedInput, source)
	}
	rows, horizon, err := alignedBasinRows(table)
	if err != nil {
		if rows, horizon, err = delimitedBasinRows(table); err != nil {
			return DecodeResult{}, err
		}
	}

	result := DecodeResult{Horizon: horizon, Rows: len(rows)}
	seen := make(map[int]int, len(rows))
	for _, row := range rows {
		id, ok := d.catalog.LookupName(row.BasinName)
		if !ok {
			result.Unmatched = append(result.Unmatched, row.BasinName)
			continue
		}
		if prev, dup := seen[id]; dup {
			return DecodeResult{}, fmt.Errorf("%w: %s line %d: basin %q repeats line %d",
				ErrMalformedInput, source, row.Line, row.BasinName, prev)
		}
		seen[id] = row.Line
		result.Records = append(result.Records, UnpivotBasinRow(row, id, horizon, runDate, model)...)
	}
	return result, nil
}
