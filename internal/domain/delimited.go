package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseNumber parses one numeric field. NaN and infinities are rejected.
func parseNumber(source string, line, column int, text string) (float64, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s line %d: column %d %q is not a number",
			ErrMalformedInput, source, line, column, text)
	}
	return v, nil
}

func isNumber(text string) bool {
	v, err := strconv.ParseFloat(text, 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// delimitedGridPoints splits every line into exactly lon, lat and rain.
func delimitedGridPoints(t Table) ([]GridPoint, error) {
	points := make([]GridPoint, 0, len(t.Rows))
	for _, tr := range t.Rows {
		fields := strings.Fields(tr.Text)
		if len(fields) != gridColumns {
			return nil, fmt.Errorf("%w: %s line %d has %d columns, want lon, lat, rain",
				ErrMalformedInput, t.Source, tr.Line, len(fields))
		}
		nums, err := parseCells(t.Source, TableRow{Line: tr.Line, Cells: fields}, 0)
		if err != nil {
			return nil, err
		}
		points = append(points, GridPoint{Lon: nums[0], Lat: nums[1], RainValue: nums[2]})
	}
	return points, nil
}

// delimitedBasinRows splits basin rows on whitespace. The numeric tail of a
// row is lon, lat and the day values; everything before it is the basin name.
// The tail length shared by most rows fixes the horizon, so a name ending in
// a number stays part of the name.
func delimitedBasinRows(t Table) ([]RawBasinRow, int, error) {
	fields := make([][]string, len(t.Rows))
	tails := make([]int, len(t.Rows))
	votes := make(map[int]int)
	for i, tr := range t.Rows {
		fields[i] = strings.Fields(tr.Text)
		tails[i] = numericTail(fields[i])
		votes[tails[i]]++
	}

	width := 0
	for n, c := range votes {
		if c > votes[width] || (c == votes[width] && n > width) {
			width = n
		}
	}
	width = max(width, basinLeadingColumns)

	rows := make([]RawBasinRow, 0, len(t.Rows))
	for i, tr := range t.Rows {
		f := fields[i]
		if len(f) <= width {
			return nil, 0, fmt.Errorf("%w: %s line %d has %d fields, need name, lon, lat and %d days",
				ErrMalformedInput, t.Source, tr.Line, len(f), width-2)
		}
		if tails[i] < width {
			bad := len(f) - tails[i] - 1
			return nil, 0, fmt.Errorf("%w: %s line %d: column %d %q is not a number",
				ErrMalformedInput, t.Source, tr.Line, bad+1, f[bad])
		}

		split := len(f) - width
		nums, err := parseCells(t.Source, TableRow{Line: tr.Line, Cells: f}, split)
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, RawBasinRow{
			Line:      tr.Line,
			BasinName: strings.Join(f[:split], " "),
			Lon:       nums[0],
			Lat:       nums[1],
			Values:    nums[2:],
		})
	}
	return rows, width - 2, nil
}

// numericTail counts the trailing fields that parse as finite numbers.
func numericTail(fields []string) int {
	n := 0
	for i := len(fields) - 1; i >= 0 && isNumber(fields[i]); i-- {
		n++
	}
	return n
}
