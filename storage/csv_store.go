package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"matchain-gc/models"
)

// CSVStore reads and writes comma-separated record files.
type CSVStore struct {
	delimiter rune
}

// NewCSVStore creates a CSVStore using ',' as delimiter.
func NewCSVStore() *CSVStore {
	return &CSVStore{delimiter: ','}
}

// Load reads path; the first record is the header.
func (s *CSVStore) Load(path string) (*models.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify("csv: open", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &models.Sheet{Name: filepath.Base(path)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header %q: %w", path, err)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %q: %w", path, err)
		}
		rows = append(rows, row)
	}
	return sheetFrom(filepath.Base(path), "", header, rows), nil
}

// Save writes the sheet to a temp file next to path and renames it in place.
func (s *CSVStore) Save(path string, sheet *models.Sheet) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return classify("csv: create temp", path, err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	w.Comma = s.delimiter
	if err := w.Write(sheet.Header); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range sheet.Rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("csv: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("csv: close: %w", err)
	}
	if err := replaceFile(tmpName, path); err != nil {
		return classify("csv: replace", path, err)
	}
	return nil
}
