package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Span is a half-open [Start, End) range of rune positions within a line.
type Span struct {
	Start int
	End   int
}

// TableRow holds the trimmed cells of one non-empty physical line and the
// line itself.
type TableRow struct {
	Line  int
	Text  string
	Cells []string
}

// Table is a fixed-width text table after column inference.
type Table struct {
	Source  string
	Columns []Span
	Rows    []TableRow
}

// ReadFixedWidth reads whitespace-aligned text and infers its columns: a
// column is a maximal run of positions that are non-blank on at least one
// line. Empty lines are skipped. Columns whose cells are blank on every line
// are dropped, so trailing padding never counts as data.
func ReadFixedWidth(r io.Reader, source string) (Table, error) {
	var (
		lines   [][]rune
		lineNos []int
		width   int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		runes := []rune(text)
		lines = append(lines, runes)
		lineNos = append(lineNos, n)
		width = max(width, len(runes))
	}
	if err := sc.Err(); err != nil {
		return Table{}, fmt.Errorf("read %s: %w", source, err)
	}

	occupied := make([]bool, width)
	for _, runes := range lines {
		for i, r := range runes {
			if r != ' ' && r != '\t' {
				occupied[i] = true
			}
		}
	}

	var columns []Span
	for i := 0; i < width; {
		if !occupied[i] {
			i++
			continue
		}
		start := i
		for i < width && occupied[i] {
			i++
		}
		columns = append(columns, Span{Start: start, End: i})
	}

	rows := make([]TableRow, len(lines))
	for i, runes := range lines {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = cellText(runes, col)
		}
		rows[i] = TableRow{Line: lineNos[i], Text: string(runes), Cells: cells}
	}

	t := Table{Source: source, Columns: columns, Rows: rows}
	t.dropBlankColumns()
	return t, nil
}

func cellText(runes []rune, col Span) string {
	if col.Start >= len(runes) {
		return ""
	}
	end := min(col.End, len(runes))
	return strings.TrimSpace(string(runes[col.Start:end]))
}

func (t *Table) dropBlankColumns() {
	keep := make([]bool, len(t.Columns))
	kept := 0
	for j := range t.Columns {
		for _, row := range t.Rows {
			if row.Cells[j] != "" {
				keep[j] = true
				kept++
				break
			}
		}
	}
	if kept == len(t.Columns) {
		return
	}

	columns := make([]Span, 0, kept)
	for j, col := range t.Columns {
		if keep[j] {
			columns = append(columns, col)
		}
	}
	for i, row := range t.Rows {
		cells := make([]string, 0, kept)
		for j, cell := range row.Cells {
			if keep[j] {
				cells = append(cells, cell)
			}
		}
		t.Rows[i].Cells = cells
	}
	t.Columns = columns
}
