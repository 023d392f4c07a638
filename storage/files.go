package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"matchain-gc/models"
)

// Stores routes each path to a RecordStore by file extension.
type Stores struct {
	byExt map[string]RecordStore
}

// NewStores registers the Excel store for .xlsx and the CSV store for .csv.
func NewStores() *Stores {
	return &Stores{byExt: map[string]RecordStore{
		".xlsx": NewExcelStore(),
		".csv":  NewCSVStore(),
	}}
}

// Extensions lists the supported input extensions.
func (s *Stores) Extensions() []string {
	out := make([]string, 0, len(s.byExt))
	for ext := range s.byExt {
		out = append(out, ext)
	}
	return out
}

func (s *Stores) storeFor(path string) (RecordStore, error) {
	ext := strings.ToLower(filepath.Ext(path))
	st, ok := s.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported file type %q", ext)
	}
	return st, nil
}

// Load reads path with the store registered for its extension.
func (s *Stores) Load(path string) (*models.Sheet, error) {
	st, err := s.storeFor(path)
	if err != nil {
		return nil, err
	}
	return st.Load(path)
}

// Save writes sheet to path with the store registered for its extension.
func (s *Stores) Save(path string, sheet *models.Sheet) error {
	st, err := s.storeFor(path)
	if err != nil {
		return err
	}
	return st.Save(path, sheet)
}

// classify maps permission failures onto ErrFileLocked.
func classify(op, path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%s %q: %w: %v", op, path, ErrFileLocked, err)
	}
	return fmt.Errorf("%s %q: %w", op, path, err)
}

// replaceFile moves tmp over path, keeping path's permissions when it exists.
func replaceFile(tmp, path string) error {
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmp, info.Mode().Perm())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// headerFrom trims header names and drops a leading UTF-8 byte order mark.
func headerFrom(row []string) []string {
	h := make([]string, len(row))
	for i, c := range row {
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
		}
		h[i] = strings.TrimSpace(c)
	}
	return h
}

// sheetFrom builds a sheet from a header and its data rows. A row longer than
// the header widens it with "Unnamed: <index>" columns so no cell is lost on
// save; shorter rows are padded.
func sheetFrom(name, tab string, header []string, rows [][]string) *models.Sheet {
	sheet := &models.Sheet{Name: name, Tab: tab, Header: headerFrom(header)}
	width := len(sheet.Header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i := len(sheet.Header); i < width; i++ {
		sheet.Header = append(sheet.Header, fmt.Sprintf("Unnamed: %d", i))
	}
	sheet.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, width)
		copy(row, r)
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
