package evolution

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// Cell holds one parsed CSV value: its raw text, plus a coerced numeric
// value when the text parses cleanly as a float.
type Cell struct {
	Raw      string
	Number   float64
	IsNumber bool
}

// Table is a parsed CSV document: a header row plus zero or more data
// rows. An empty input (no sub-analysis output at all, e.g. a repository
// with too little history for "coupling") parses as a zero-row success,
// not an error.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// ParseCSV parses raw evolution-analyzer CSV output. Every column not
// recognized by a caller is preserved verbatim in Header/Rows rather than
// dropped, since the evolution analyzer's column set varies by
// sub-analysis and by jar version.
func ParseCSV(raw []byte) Table {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		return Table{}
	}

	header := records[0]
	rows := make([][]Cell, 0, len(records)-1)

	for _, record := range records[1:] {
		row := make([]Cell, len(record))

		for i, value := range record {
			cell := Cell{Raw: value}

			if n, numErr := strconv.ParseFloat(value, 64); numErr == nil {
				cell.Number = n
				cell.IsNumber = true
			}

			row[i] = cell
		}

		rows = append(rows, row)
	}

	return Table{Header: header, Rows: rows}
}

// Column returns the index of name within the header, or -1 if absent —
// used by callers that need a specific known column without assuming a
// fixed schema position.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}

	return -1
}
