package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"matchain-gc/models"
)

// ExcelStore reads and writes the first worksheet of an .xlsx workbook. Cells
// are read as their stored values, not their display format, and handled as
// text so codes like "01" survive a round trip.
type ExcelStore struct{}

// NewExcelStore creates an ExcelStore.
func NewExcelStore() *ExcelStore { return &ExcelStore{} }

// Load reads the first worksheet; the first row is the header.
func (s *ExcelStore) Load(path string) (*models.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, classify("excel: open", path, err)
	}
	defer f.Close()

	tab := f.GetSheetName(0)
	rows, err := f.GetRows(tab, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("excel: read rows %q: %w", path, err)
	}

	if len(rows) == 0 {
		return &models.Sheet{Name: filepath.Base(path), Tab: tab}, nil
	}
	return sheetFrom(filepath.Base(path), tab, rows[0], rows[1:]), nil
}

// Save writes the sheet to a temporary workbook and renames it over path.
func (s *ExcelStore) Save(path string, sheet *models.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	tab := sheet.Tab
	if tab == "" {
		tab = "Sheet1"
	}
	if tab != "Sheet1" {
		if err := f.SetSheetName("Sheet1", tab); err != nil {
			return fmt.Errorf("excel: rename sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(tab)
	if err != nil {
		return fmt.Errorf("excel: stream writer: %w", err)
	}
	if err := writeRow(sw, 1, sheet.Header); err != nil {
		return err
	}
	for i, r := range sheet.Rows {
		if err := writeRow(sw, i+2, r); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("excel: flush: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return classify("excel: write", tmp, err)
	}
	if err := replaceFile(tmp, path); err != nil {
		return classify("excel: replace", path, err)
	}
	return nil
}

func writeRow(sw *excelize.StreamWriter, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("excel: cell name: %w", err)
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := sw.SetRow(cell, values); err != nil {
		return fmt.Errorf("excel: write row %d: %w", rowNum, err)
	}
	return nil
}
