package blueprint

import (
	"strconv"
	"strings"
)

// Record is one data row keyed by normalized field name.
type Record struct {
	Row    int               // 1-based record number from Tokenize, not a file line number
	Fields map[string]string // Trimmed values, one per header column
}

// Get returns the value of a field, or "" if the record has no such field.
func (r Record) Get(name string) string {
	return r.Fields[name]
}

// Clone returns a record whose field map is independent of r.
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Row: r.Row, Fields: fields}
}

// FieldNames turns a normalized header row into the names used as record keys.
// Empty names become col_<index>; a repeated name gets a _<n> suffix so every
// key in a record is unique.
func FieldNames(headers []string) []string {
	names := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))

	for i, h := range headers {
		name := h
		if name == "" {
			name = "col_" + strconv.Itoa(i)
		}
		if seen[name] {
			base := name
			for n := 1; seen[name]; n++ {
				name = base + "_" + strconv.Itoa(n)
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// BuildRecords pairs each data row with the header names position by position.
// Headers decide record shape: short rows are padded with "" and extra cells
// are dropped. Rows whose cells are all blank are excluded and their record
// numbers returned in emptyRows. The header is record 1, so rows[0] is
// record 2. A quoted field spanning lines counts as one record, so record
// numbers can trail file line numbers.
func BuildRecords(headers []string, rows [][]string) (records []Record, emptyRows []int) {
	return buildRecords(headers, rows, 2)
}

// buildRecords numbers rows[0] as record first.
func buildRecords(headers []string, rows [][]string, first int) (records []Record, emptyRows []int) {
	names := FieldNames(headers)
	records = make([]Record, 0, len(rows))

	for i, row := range rows {
		rowNum := first + i
		if isBlankRow(row) {
			emptyRows = append(emptyRows, rowNum)
			continue
		}

		fields := make(map[string]string, len(names))
		for pos, name := range names {
			value := ""
			if pos < len(row) {
				value = strings.TrimSpace(row[pos])
			}
			fields[name] = value
		}
		records = append(records, Record{Row: rowNum, Fields: fields})
	}
	return records, emptyRows
}

// isBlankRow returns true if every cell is empty or whitespace.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
