package models

import "strings"

// Sheet is the in-memory tabular content of one input file. Column order and
// unknown columns are preserved so the file can be written back unchanged
// apart from the status column.
type Sheet struct {
	Name   string // file base name
	Tab    string // worksheet name for spreadsheet formats
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (s *Sheet) Len() int { return len(s.Rows) }

// Column returns the index of the named column, or -1.
func (s *Sheet) Column(name string) int {
	for i, h := range s.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// MissingColumns returns the names from want that are absent from the header.
func (s *Sheet) MissingColumns(want []string) []string {
	var missing []string
	for _, name := range want {
		if s.Column(name) < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// EnsureColumn appends an empty column when name is not present yet.
func (s *Sheet) EnsureColumn(name string) int {
	if idx := s.Column(name); idx >= 0 {
		return idx
	}
	s.Header = append(s.Header, name)
	for i, r := range s.Rows {
		for len(r) < len(s.Header) {
			r = append(r, "")
		}
		s.Rows[i] = r
	}
	return len(s.Header) - 1
}

// Cell returns the trimmed value at row/column, empty when out of range.
func (s *Sheet) Cell(row int, name string) string {
	col := s.Column(name)
	if col < 0 || row < 0 || row >= len(s.Rows) || col >= len(s.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[row][col])
}

// SetCell writes value at row/column, creating the column and padding the
// row as needed.
func (s *Sheet) SetCell(row int, name, value string) {
	if row < 0 || row >= len(s.Rows) {
		return
	}
	col := s.EnsureColumn(name)
	for len(s.Rows[row]) <= col {
		s.Rows[row] = append(s.Rows[row], "")
	}
	s.Rows[row][col] = value
}
